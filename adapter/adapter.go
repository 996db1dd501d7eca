package adapter

import (
	"context"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/karagenc/sio-core/parser"
)

type (
	// Creator is called exactly once per namespace, when the namespace is created.
	Creator func(nsp Namespace) Adapter

	// A public ID, sent by the server at the beginning of
	// the Socket.IO session and which can be used for private messaging.
	SocketID string

	Room string
)

// Namespace is the view of a namespace an adapter is given at creation time.
type Namespace interface {
	Name() string
	SocketStore() SocketStore
	ParserCreator() parser.Creator
}

// SocketStore gives the adapter access to the live sockets of its namespace.
type SocketStore interface {
	// Hand an encoded packet to a specific socket.
	// ok is false when no live socket has the given ID.
	SendBuffer(sid SocketID, buffer []byte) (ok bool)
}

// Adapter owns the room membership graph of a namespace and computes
// broadcast targets from it. Every method must be safe for concurrent use.
//
// An adapter backed by a remote service reports backend failures as
// *UnavailableError and leaves its local state untouched when it does.
type Adapter interface {
	ServerCount() int
	Close() error

	// Register a socket with its self-room. Idempotent.
	AddSocket(ctx context.Context, sid SocketID) error
	Join(ctx context.Context, sid SocketID, rooms ...Room) error
	// Leaving the self-room does nothing.
	Leave(ctx context.Context, sid SocketID, room Room) error
	// Remove a socket from every room, self-room included.
	RemoveSocket(ctx context.Context, sid SocketID) error

	// Deliver the packet to every socket selected by opts, at most once each.
	// A nil opts selects every socket of the namespace.
	Broadcast(ctx context.Context, packet *parser.Packet, opts *BroadcastOptions) error

	// The return value 'sids' is a thread safe mapset.Set.
	Sockets(rooms mapset.Set[Room]) (sids mapset.Set[SocketID])
	// The return value 'rooms' is a thread safe mapset.Set.
	SocketRooms(sid SocketID) (rooms mapset.Set[Room], ok bool)
	// The return value 'rooms' is a thread safe mapset.Set.
	Rooms() (rooms mapset.Set[Room])
}
