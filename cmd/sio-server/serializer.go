package main

import (
	"fmt"

	"github.com/karagenc/sio-core/parser/json/serializer"
	"github.com/karagenc/sio-core/parser/json/serializer/fast"
	gojson "github.com/karagenc/sio-core/parser/json/serializer/go-json"
	"github.com/karagenc/sio-core/parser/json/serializer/stdjson"
)

func newSerializer(name string) (serializer.JSONSerializer, error) {
	switch name {
	case "std":
		return stdjson.New(), nil
	case "go-json":
		return gojson.New(nil, nil), nil
	case "sonic":
		return newSonicSerializer()
	case "fast", "":
		return fast.New(), nil
	}
	return nil, fmt.Errorf("unknown serializer %q", name)
}
