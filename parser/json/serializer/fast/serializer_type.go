package fast

import (
	"fmt"

	"github.com/karagenc/sio-core/parser/json/serializer"
	gojson "github.com/karagenc/sio-core/parser/json/serializer/go-json"
	"github.com/karagenc/sio-core/parser/json/serializer/stdjson"
)

type SerializerType int

const (
	SerializerTypeSonic SerializerType = iota
	SerializerTypeGoJSON
)

func (t SerializerType) Name() string {
	switch t {
	case SerializerTypeSonic:
		return "sonic"
	case SerializerTypeGoJSON:
		return "go-json"
	}
	return "<invalid>"
}

// ByName resolves a serializer from its configuration name:
// "std", "go-json", "sonic" or "fast" (the empty string means "fast").
func ByName(name string) (serializer.JSONSerializer, error) {
	config := DefaultConfig()
	switch name {
	case "", "fast":
		return NewWithConfig(config), nil
	case "std", "stdjson":
		return stdjson.New(), nil
	case "go-json", "gojson":
		return gojson.New(config.GoJSON.EncodeOptions, config.GoJSON.DecodeOptions), nil
	case "sonic":
		if Type() != SerializerTypeSonic {
			return nil, fmt.Errorf("serializer/fast: sonic is not supported on this platform")
		}
		return NewWithConfig(config), nil
	}
	return nil, fmt.Errorf("serializer/fast: unknown serializer %q", name)
}
