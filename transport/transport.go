// Package transport defines the contract between the socket.io server and
// the carrier of its encoded packets.
package transport

type (
	// Conn is one client connection. Send is called by a single goroutine
	// per connection; Close may be called from any goroutine, more than once.
	Conn interface {
		ID() string
		Send(data []byte) error
		Close() error
	}

	// Handler receives connection events from a transport.
	// OnMessage and OnClose for a given connection never run concurrently,
	// and OnClose is the last call made for it.
	Handler interface {
		OnOpen(conn Conn)
		OnMessage(connID string, data []byte)
		OnClose(connID string, reason string)
	}
)

const (
	// The client closed the connection normally.
	ReasonTransportClose = "transport close"
	// The connection was lost or a read failed.
	ReasonTransportError = "transport error"
	// The server closed the connection.
	ReasonForcedClose = "forced close"
)
