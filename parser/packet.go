package parser

import (
	"errors"
	"strconv"
)

var errInvalidPacketType = errors.New("parser: invalid packet type")

type PacketType byte

const (
	PacketTypeConnect PacketType = iota
	PacketTypeDisconnect
	PacketTypeEvent
	PacketTypeAck
	PacketTypeConnectError
	PacketTypeBinaryEvent
	PacketTypeBinaryAck

	packetTypeMax = PacketTypeBinaryAck
)

func (p PacketType) ToChar() byte {
	return byte(p) + '0'
}

func (p *PacketType) FromChar(b byte) error {
	if b < '0' || b > packetTypeMax.ToChar() {
		return errInvalidPacketType
	}
	*p = PacketType(b - '0')
	return nil
}

func (p PacketType) String() string {
	switch p {
	case PacketTypeConnect:
		return "CONNECT"
	case PacketTypeDisconnect:
		return "DISCONNECT"
	case PacketTypeEvent:
		return "EVENT"
	case PacketTypeAck:
		return "ACK"
	case PacketTypeConnectError:
		return "CONNECT_ERROR"
	case PacketTypeBinaryEvent:
		return "BINARY_EVENT"
	case PacketTypeBinaryAck:
		return "BINARY_ACK"
	}
	return "PacketType(" + strconv.Itoa(int(p)) + ")"
}

// Packet is the protocol envelope exchanged with clients.
// Packets are treated as immutable once built: the adapter encodes
// the same packet for every recipient of a broadcast.
type Packet struct {
	Type PacketType

	// Empty or "/" both mean the main namespace.
	Namespace string

	// Acknowledgement ID. It is carried by the codec but never interpreted.
	ID *uint64

	// For EVENT packets this is a []any holding the arguments in call order.
	Data any
}

// NewEvent builds an EVENT packet. v is copied, so the caller may reuse it.
func NewEvent(namespace string, v []any) *Packet {
	data := make([]any, len(v))
	copy(data, v)
	return &Packet{
		Type:      PacketTypeEvent,
		Namespace: namespace,
		Data:      data,
	}
}

func (p *Packet) IsBinary() bool {
	return p.Type == PacketTypeBinaryEvent || p.Type == PacketTypeBinaryAck
}

func (p *Packet) IsEvent() bool {
	return p.Type == PacketTypeEvent || p.Type == PacketTypeBinaryEvent
}

func (p *Packet) IsAck() bool {
	return p.Type == PacketTypeAck || p.Type == PacketTypeBinaryAck
}

// Args returns the event arguments of an EVENT packet, or nil.
func (p *Packet) Args() []any {
	if !p.IsEvent() {
		return nil
	}
	args, _ := p.Data.([]any)
	return args
}
