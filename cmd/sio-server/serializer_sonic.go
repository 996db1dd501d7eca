//go:build amd64 && (linux || windows || darwin)

package main

import (
	"github.com/karagenc/sio-core/parser/json/serializer"
	"github.com/karagenc/sio-core/parser/json/serializer/fast"
	"github.com/karagenc/sio-core/parser/json/serializer/sonic"
)

func newSonicSerializer() (serializer.JSONSerializer, error) {
	return sonic.New(fast.DefaultConfig().SonicConfig), nil
}
