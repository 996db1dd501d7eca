package gojson

import (
	"io"

	"github.com/goccy/go-json"
	"github.com/karagenc/sio-core/parser/json/serializer"
)

type (
	gojsonSerializer struct {
		encodeOptions []json.EncodeOptionFunc
		decodeOptions []json.DecodeOptionFunc
	}

	encoder struct {
		e       *json.Encoder
		options []json.EncodeOptionFunc
	}

	decoder struct {
		d       *json.Decoder
		options []json.DecodeOptionFunc
	}
)

func New(encodeOptions []json.EncodeOptionFunc, decodeOptions []json.DecodeOptionFunc) serializer.JSONSerializer {
	return &gojsonSerializer{
		encodeOptions: encodeOptions,
		decodeOptions: decodeOptions,
	}
}

func (s *gojsonSerializer) Marshal(v any) ([]byte, error) {
	return json.MarshalWithOption(v, s.encodeOptions...)
}

func (s *gojsonSerializer) Unmarshal(data []byte, v any) error {
	return json.UnmarshalWithOption(data, v, s.decodeOptions...)
}

func (s *gojsonSerializer) NewEncoder(w io.Writer) serializer.JSONEncoder {
	return encoder{e: json.NewEncoder(w), options: s.encodeOptions}
}

func (s *gojsonSerializer) NewDecoder(r io.Reader) serializer.JSONDecoder {
	return decoder{d: json.NewDecoder(r), options: s.decodeOptions}
}

func (e encoder) Encode(v any) error { return e.e.EncodeWithOption(v, e.options...) }

func (d decoder) Decode(v any) error { return d.d.DecodeWithOption(v, d.options...) }
