package stdjson

import (
	"encoding/json"
	"io"

	"github.com/karagenc/sio-core/parser/json/serializer"
)

type stdjsonSerializer struct{}

func (stdjsonSerializer) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (stdjsonSerializer) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

func (stdjsonSerializer) NewEncoder(w io.Writer) serializer.JSONEncoder { return json.NewEncoder(w) }

func (stdjsonSerializer) NewDecoder(r io.Reader) serializer.JSONDecoder { return json.NewDecoder(r) }

// New returns a serializer backed by encoding/json.
// It is the reference implementation the faster backends are tested against.
func New() serializer.JSONSerializer {
	return stdjsonSerializer{}
}
