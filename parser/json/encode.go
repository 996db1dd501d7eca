package jsonparser

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/karagenc/sio-core/parser"
)

var (
	ErrBinaryUnsupported = errors.New("parser/json: binary packets are not supported")
	errNilPacket         = errors.New("parser/json: nil packet")
)

func (p *Parser) Encode(packet *parser.Packet) ([]byte, error) {
	if packet == nil {
		return nil, errNilPacket
	}
	if packet.IsBinary() {
		return nil, ErrBinaryUnsupported
	}

	var (
		buf  = bytes.Buffer{}
		grow = 1 + len(packet.Namespace) + 1 + 20
	)
	buf.Grow(grow)

	buf.WriteByte(packet.Type.ToChar())

	if packet.Namespace != "" && packet.Namespace != "/" {
		buf.WriteString(packet.Namespace)
		buf.WriteByte(',')
	}

	if packet.ID != nil {
		buf.WriteString(strconv.FormatUint(*packet.ID, 10))
	}

	if packet.Data != nil {
		data, err := p.json.Marshal(packet.Data)
		if err != nil {
			return nil, fmt.Errorf("parser/json: %w", err)
		}
		buf.Write(data)
	}
	return buf.Bytes(), nil
}
