package sio

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/karagenc/sio-core/adapter"
)

type (
	SocketID = adapter.SocketID
	Room     = adapter.Room
)

type SocketState int32

const (
	SocketStateConnecting SocketState = iota
	SocketStateConnected
	SocketStateDisconnecting
	SocketStateDisconnected
)

func (s SocketState) String() string {
	switch s {
	case SocketStateConnecting:
		return "connecting"
	case SocketStateConnected:
		return "connected"
	case SocketStateDisconnecting:
		return "disconnecting"
	case SocketStateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

type ServerSocket interface {
	// Socket ID. Also the name of the socket's own room.
	ID() SocketID

	// Retrieves the underlying Server.
	Server() *Server

	// Retrieves the Namespace this socket is connected to.
	Namespace() *Namespace

	State() SocketState

	// Is the socket (currently) connected?
	IsConnected() bool

	// Join room(s). Only valid while connected.
	Join(room ...Room) error
	// Leave a room. Only valid while connected.
	Leave(room Room) error

	// Rooms the socket is currently in, including its own room.
	Rooms() mapset.Set[Room]

	// Send an event to this socket only.
	Send(v ...any) error

	// Disconnect from the namespace.
	// If close is true, the whole connection is closed,
	// disconnecting the client from every namespace.
	Disconnect(close bool)

	// Sets a modifier for a subsequent event emission that the event
	// will only be broadcast to clients that have joined the given room.
	//
	// To emit to multiple rooms, you can call To several times.
	To(room ...Room) *BroadcastOperator

	// Alias of To(...)
	In(room ...Room) *BroadcastOperator

	// Sets a modifier for a subsequent event emission that the event
	// will only be broadcast to clients that have not joined the given rooms.
	Except(room ...Room) *BroadcastOperator

	// Sets a modifier for a subsequent event emission that
	// the event data will only be broadcast to the current node.
	Local() *BroadcastOperator

	// Every socket of the namespace except this one.
	Broadcast() *BroadcastOperator

	// Events received from the client.
	OnEvent(f ServerSocketEventFunc)
	OnceEvent(f ServerSocketEventFunc)
	OffEvent(f ...ServerSocketEventFunc)

	OnError(f ServerSocketErrorFunc)
	OnceError(f ServerSocketErrorFunc)
	OffError(f ...ServerSocketErrorFunc)

	OnDisconnecting(f ServerSocketDisconnectingFunc)
	OnceDisconnecting(f ServerSocketDisconnectingFunc)
	OffDisconnecting(f ...ServerSocketDisconnectingFunc)

	OnDisconnect(f ServerSocketDisconnectFunc)
	OnceDisconnect(f ServerSocketDisconnectFunc)
	OffDisconnect(f ...ServerSocketDisconnectFunc)

	// Remove all event handlers.
	OffAll()
}
