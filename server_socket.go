package sio

import (
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/karagenc/sio-core/adapter"
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/parser"
)

type serverSocket struct {
	id SocketID

	// Guards state. Join and Leave hold the read lock across the
	// adapter call, so a socket being removed is never registered again.
	stateMu sync.RWMutex
	state   SocketState

	server  *Server
	conn    *serverConn
	nsp     *Namespace
	adapter adapter.Adapter

	eventHandlers         *handlerStore[ServerSocketEventFunc]
	errorHandlers         *handlerStore[ServerSocketErrorFunc]
	disconnectingHandlers *handlerStore[ServerSocketDisconnectingFunc]
	disconnectHandlers    *handlerStore[ServerSocketDisconnectFunc]

	debug Debugger
}

var _ ServerSocket = (*serverSocket)(nil)

func newServerSocket(server *Server, c *serverConn, nsp *Namespace) (*serverSocket, error) {
	id, err := generateBase64ID(base64IDSize)
	if err != nil {
		return nil, err
	}

	s := &serverSocket{
		id:      SocketID(id),
		state:   SocketStateConnecting,
		server:  server,
		conn:    c,
		nsp:     nsp,
		adapter: nsp.Adapter(),

		eventHandlers:         newHandlerStore[ServerSocketEventFunc](),
		errorHandlers:         newHandlerStore[ServerSocketErrorFunc](),
		disconnectingHandlers: newHandlerStore[ServerSocketDisconnectingFunc](),
		disconnectHandlers:    newHandlerStore[ServerSocketDisconnectFunc](),
	}
	s.debug = server.debug.WithContext("[serverSocket " + nsp.Name() + " " + id + "]")
	return s, nil
}

func (s *serverSocket) ID() SocketID { return s.id }

func (s *serverSocket) Server() *Server { return s.server }

func (s *serverSocket) Namespace() *Namespace { return s.nsp }

func (s *serverSocket) State() SocketState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *serverSocket) IsConnected() bool {
	return s.State() == SocketStateConnected
}

func (s *serverSocket) Join(room ...Room) error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.state != SocketStateConnected {
		return &InvalidStateError{Op: "join", State: s.state}
	}

	ctx, cancel := s.server.adapterContext()
	defer cancel()
	return s.adapter.Join(ctx, s.id, room...)
}

func (s *serverSocket) Leave(room Room) error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.state != SocketStateConnected {
		return &InvalidStateError{Op: "leave", State: s.state}
	}

	ctx, cancel := s.server.adapterContext()
	defer cancel()
	return s.adapter.Leave(ctx, s.id, room)
}

func (s *serverSocket) Rooms() mapset.Set[Room] {
	rooms, ok := s.adapter.SocketRooms(s.id)
	if !ok {
		return mapset.NewSet[Room]()
	}
	return rooms
}

// Send goes through the adapter like any other broadcast,
// targeting the socket's own room.
func (s *serverSocket) Send(v ...any) error {
	// The state lock is not held across the broadcast: delivery to this
	// socket takes the same lock, and a pending writer would block it.
	state := s.State()
	if state != SocketStateConnected {
		return &InvalidStateError{Op: "send", State: state}
	}

	ctx, cancel := s.server.adapterContext()
	defer cancel()
	return s.nsp.BroadcastContext(ctx, []Room{Room(s.id)}, v...)
}

func (s *serverSocket) To(room ...Room) *BroadcastOperator {
	return s.nsp.To(room...)
}

func (s *serverSocket) In(room ...Room) *BroadcastOperator {
	return s.To(room...)
}

func (s *serverSocket) Except(room ...Room) *BroadcastOperator {
	return s.nsp.Except(room...)
}

func (s *serverSocket) Local() *BroadcastOperator {
	return s.nsp.Local()
}

func (s *serverSocket) Broadcast() *BroadcastOperator {
	return s.nsp.ExceptSockets(s.id)
}

// deliver enqueues an encoded packet for the client.
// Packets reaching a socket that is not connected are dropped.
func (s *serverSocket) deliver(buffer []byte) {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	if s.state != SocketStateConnected {
		return
	}
	s.conn.enqueue(buffer)
}

type connectPayload struct {
	SID string `json:"sid"`
}

// onConnect sends the CONNECT packet and marks the socket connected.
// The packet is queued before any broadcast can reach the socket.
func (s *serverSocket) onConnect() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state != SocketStateConnecting {
		return &InvalidStateError{Op: "connect", State: s.state}
	}

	err := s.conn.sendPacket(&parser.Packet{
		Type:      parser.PacketTypeConnect,
		Namespace: s.nsp.Name(),
		Data:      &connectPayload{SID: string(s.id)},
	})
	if err != nil {
		return err
	}

	s.state = SocketStateConnected
	s.debug.Log("connected")
	return nil
}

func (s *serverSocket) onPacket(packet *parser.Packet) {
	switch packet.Type {
	case parser.PacketTypeEvent:
		if !s.IsConnected() {
			return
		}
		args := packet.Args()
		for _, handler := range s.eventHandlers.getAll() {
			handler(args...)
		}
	case parser.PacketTypeAck:
		s.debug.Log("ignoring ACK packet")
	case parser.PacketTypeDisconnect:
		s.onClose(ReasonClientNamespaceDisconnect, false)
	default:
		s.onError(wrapInternalError(fmt.Errorf("unexpected packet type: %s", packet.Type)))
	}
}

func (s *serverSocket) onError(err error) {
	s.debug.Log("error", err)
	for _, handler := range s.errorHandlers.getAll() {
		handler(err)
	}
}

func (s *serverSocket) Disconnect(close bool) {
	if !s.IsConnected() {
		return
	}
	if close {
		s.conn.close(ReasonServerNamespaceDisconnect, true)
		return
	}
	s.onClose(ReasonServerNamespaceDisconnect, true)
}

// onClose walks the socket through DISCONNECTING to DISCONNECTED.
// If notify is true, a DISCONNECT packet is queued for the client.
// A socket that never finished connecting is unregistered silently.
func (s *serverSocket) onClose(reason Reason, notify bool) {
	s.stateMu.Lock()
	prev := s.state
	switch prev {
	case SocketStateConnected:
		s.state = SocketStateDisconnecting
		if notify {
			err := s.conn.sendPacket(&parser.Packet{
				Type:      parser.PacketTypeDisconnect,
				Namespace: s.nsp.Name(),
			})
			if err != nil {
				s.debug.Log("could not send DISCONNECT", err)
			}
		}
	case SocketStateConnecting:
		s.state = SocketStateDisconnected
	default:
		s.stateMu.Unlock()
		return
	}
	s.stateMu.Unlock()

	if prev == SocketStateConnected {
		s.debug.Log("disconnecting", reason)
		// Rooms are still joined at this point.
		for _, handler := range s.disconnectingHandlers.getAll() {
			handler(reason)
		}
	}

	s.nsp.remove(s)
	s.conn.removeSocket(s)

	if prev != SocketStateConnected {
		return
	}

	s.stateMu.Lock()
	s.state = SocketStateDisconnected
	s.stateMu.Unlock()

	s.debug.Log("disconnected", reason)
	for _, handler := range s.disconnectHandlers.getAll() {
		handler(reason)
	}
}
