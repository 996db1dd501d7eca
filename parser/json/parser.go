package jsonparser

import (
	"github.com/karagenc/sio-core/parser"
	"github.com/karagenc/sio-core/parser/json/serializer"
	"github.com/karagenc/sio-core/parser/json/serializer/fast"
)

// NewCreator returns a creator for the socket.io JSON text codec.
// If json is nil, the platform's fastest serializer is used.
func NewCreator(json serializer.JSONSerializer) parser.Creator {
	if json == nil {
		json = fast.New()
	}
	return func() parser.Codec {
		return &Parser{json: json}
	}
}

// Parser is stateless; a single instance may be shared between goroutines.
type Parser struct {
	json serializer.JSONSerializer
}

var _ parser.Codec = (*Parser)(nil)
