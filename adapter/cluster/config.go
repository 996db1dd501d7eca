package cluster

import (
	"time"

	"github.com/karagenc/sio-core/debug"
	"github.com/karagenc/sio-core/parser/json/serializer"
	"github.com/karagenc/sio-core/parser/json/serializer/fast"
)

const (
	DefaultPrefix           = "sio"
	DefaultSubscribeTimeout = 5 * time.Second
)

type Config struct {
	// Required.
	Broker Broker

	// Channel prefix. Namespace channels are named "<prefix>#<namespace>#".
	// Default: "sio"
	Prefix string

	// Serializer for the inter-node envelope.
	// Default: fastest available for the platform.
	Serializer serializer.JSONSerializer

	// Bounds the initial subscription, the sync request sent after it,
	// snapshot replies and the goodbye message sent by Close.
	// Default: 5 seconds
	SubscribeTimeout time.Duration

	Debugger debug.Debugger
}

func (c *Config) withDefaults() *Config {
	config := *c
	if config.Prefix == "" {
		config.Prefix = DefaultPrefix
	}
	if config.Serializer == nil {
		config.Serializer = fast.New()
	}
	if config.SubscribeTimeout == 0 {
		config.SubscribeTimeout = DefaultSubscribeTimeout
	}
	if config.Debugger == nil {
		config.Debugger = debug.NewNoop()
	}
	return &config
}

func channelName(prefix, nsp string) string {
	return prefix + "#" + nsp + "#"
}
