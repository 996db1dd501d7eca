//go:build !amd64 || (amd64 && !(linux || windows || darwin))

package main

import (
	"errors"

	"github.com/karagenc/sio-core/parser/json/serializer"
)

func newSonicSerializer() (serializer.JSONSerializer, error) {
	return nil, errors.New("the sonic serializer is not available on this platform")
}
