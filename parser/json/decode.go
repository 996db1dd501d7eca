package jsonparser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/karagenc/sio-core/parser"
)

var (
	errInvalidPacketSize = errors.New("parser/json: invalid packet size")
	errMalformedPacket   = errors.New("parser/json: malformed packet")
)

func (p *Parser) Decode(data []byte) (*parser.Packet, error) {
	if len(data) < 1 {
		return nil, errInvalidPacketSize
	}

	packet := new(parser.Packet)
	err := packet.Type.FromChar(data[0])
	if err != nil {
		return nil, err
	}
	data = data[1:]

	if packet.IsBinary() {
		return nil, ErrBinaryUnsupported
	}

	// Namespace
	if len(data) >= 1 && data[0] == '/' {
		i := 0
		for i < len(data) && data[i] != ',' {
			i++
		}
		packet.Namespace = string(data[:i])
		if i < len(data) {
			i++
		}
		data = data[i:]
	} else {
		packet.Namespace = "/"
	}

	// ID
	if len(data) >= 1 && data[0] >= '0' && data[0] <= '9' {
		i := 0
		for i < len(data) && data[i] >= '0' && data[i] <= '9' {
			i++
		}
		id, err := strconv.ParseUint(string(data[:i]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parser/json: invalid ID: %w", err)
		}
		packet.ID = &id
		data = data[i:]
	}

	switch packet.Type {
	case parser.PacketTypeEvent, parser.PacketTypeAck:
		if len(data) == 0 {
			return nil, errMalformedPacket
		}
		var args []any
		err = p.json.Unmarshal(data, &args)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errMalformedPacket, err)
		}
		if args == nil {
			// The payload was `null`.
			return nil, errMalformedPacket
		}
		packet.Data = args
	case parser.PacketTypeDisconnect:
		// No payload.
	default:
		if len(data) != 0 {
			var v any
			err = p.json.Unmarshal(data, &v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", errMalformedPacket, err)
			}
			packet.Data = v
		}
	}
	return packet, nil
}
