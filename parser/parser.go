package parser

const ProtocolVersion = 5

type (
	Creator func() Codec

	Encoder interface {
		Encode(packet *Packet) ([]byte, error)
	}

	Decoder interface {
		Decode(data []byte) (*Packet, error)
	}

	// Codec translates between packets and the bytes handed to the transport.
	// Implementations must be safe for concurrent use.
	Codec interface {
		Encoder
		Decoder
	}
)
