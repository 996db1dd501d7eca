package sio

import "github.com/karagenc/sio-core/transport"

type Reason string

const (
	ReasonForcedClose    Reason = transport.ReasonForcedClose
	ReasonTransportClose Reason = transport.ReasonTransportClose
	ReasonTransportError Reason = transport.ReasonTransportError
)

const (
	ReasonForcedServerClose         Reason = "forced server close"
	ReasonClientNamespaceDisconnect Reason = "client namespace disconnect"
	ReasonServerNamespaceDisconnect Reason = "server namespace disconnect"
	ReasonConnectTimeout            Reason = "connect timeout"
)
