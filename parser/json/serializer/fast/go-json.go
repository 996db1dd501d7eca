//go:build !amd64 || (amd64 && !(linux || windows || darwin))

package fast

import (
	"github.com/karagenc/sio-core/parser/json/serializer"
	gojson "github.com/karagenc/sio-core/parser/json/serializer/go-json"
)

func New() serializer.JSONSerializer {
	return NewWithConfig(DefaultConfig())
}

func NewWithConfig(config Config) serializer.JSONSerializer {
	return gojson.New(config.GoJSON.EncodeOptions, config.GoJSON.DecodeOptions)
}

func Type() SerializerType {
	return SerializerTypeGoJSON
}
