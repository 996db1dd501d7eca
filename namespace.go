package sio

import (
	"context"

	"github.com/karagenc/sio-core/adapter"
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/parser"
)

type Namespace struct {
	name    string
	server  *Server
	adapter adapter.Adapter
	sockets *namespaceSocketStore

	// Pairs the socket store with the adapter's registration,
	// so a socket is in both or in neither.
	registrationMu sync.Mutex

	connectionHandlers *handlerStore[NamespaceConnectionFunc]

	debug Debugger
}

var _ adapter.Namespace = (*Namespace)(nil)

func newNamespace(name string, server *Server) *Namespace {
	nsp := &Namespace{
		name:               name,
		server:             server,
		sockets:            newNamespaceSocketStore(),
		connectionHandlers: newHandlerStore[NamespaceConnectionFunc](),
		debug:              server.debug.WithContext("[namespace " + name + "]"),
	}
	nsp.adapter = server.adapterCreator(nsp)
	return nsp
}

func (n *Namespace) Name() string { return n.name }

func (n *Namespace) Server() *Server { return n.server }

func (n *Namespace) Adapter() adapter.Adapter { return n.adapter }

func (n *Namespace) SocketStore() adapter.SocketStore { return n.sockets }

func (n *Namespace) ParserCreator() parser.Creator { return n.server.parserCreator }

// Sockets returns a snapshot of the sockets connected to this node.
func (n *Namespace) Sockets() []ServerSocket {
	return n.sockets.getAll()
}

// Broadcast emits an event to the sockets in the given rooms.
// No rooms means every socket of the namespace.
// A socket in several of the rooms receives the event once.
func (n *Namespace) Broadcast(rooms []Room, v ...any) error {
	ctx, cancel := n.server.adapterContext()
	defer cancel()
	return n.BroadcastContext(ctx, rooms, v...)
}

func (n *Namespace) BroadcastContext(ctx context.Context, rooms []Room, v ...any) error {
	return n.To(rooms...).EmitContext(ctx, v...)
}

// Sets a modifier for a subsequent event emission that the event
// will only be broadcast to clients that have joined the given room.
//
// To emit to multiple rooms, you can call To several times.
func (n *Namespace) To(room ...Room) *BroadcastOperator {
	return newBroadcastOperator(n).To(room...)
}

// Alias of To(...)
func (n *Namespace) In(room ...Room) *BroadcastOperator {
	return n.To(room...)
}

// Sets a modifier for a subsequent event emission that the event
// will only be broadcast to clients that have not joined the given rooms.
func (n *Namespace) Except(room ...Room) *BroadcastOperator {
	return newBroadcastOperator(n).Except(room...)
}

// Sets a modifier for a subsequent event emission that the event
// will not be delivered to the given sockets.
func (n *Namespace) ExceptSockets(sid ...SocketID) *BroadcastOperator {
	return newBroadcastOperator(n).ExceptSockets(sid...)
}

// Sets a modifier for a subsequent event emission that
// the event data will only be broadcast to the current node.
func (n *Namespace) Local() *BroadcastOperator {
	return newBroadcastOperator(n).Local()
}

// Gets the sockets connected to this node.
func (n *Namespace) FetchSockets() []ServerSocket {
	return newBroadcastOperator(n).FetchSockets()
}

// Makes every socket connected to this node join the specified rooms.
func (n *Namespace) SocketsJoin(room ...Room) error {
	return newBroadcastOperator(n).SocketsJoin(room...)
}

// Makes every socket connected to this node leave the specified rooms.
func (n *Namespace) SocketsLeave(room ...Room) error {
	return newBroadcastOperator(n).SocketsLeave(room...)
}

// Makes every socket connected to this node disconnect.
//
// If value of close is true, closes the underlying connection.
// Otherwise, it just disconnects the namespace.
func (n *Namespace) DisconnectSockets(close bool) {
	newBroadcastOperator(n).DisconnectSockets(close)
}

func (n *Namespace) add(c *serverConn) (*serverSocket, error) {
	socket, err := newServerSocket(n.server, c, n)
	if err != nil {
		return nil, err
	}

	n.registrationMu.Lock()
	defer n.registrationMu.Unlock()

	ctx, cancel := n.server.adapterContext()
	defer cancel()
	err = n.adapter.AddSocket(ctx, socket.ID())
	if err != nil {
		return nil, err
	}
	n.sockets.set(socket)
	return socket, nil
}

func (n *Namespace) remove(socket *serverSocket) {
	n.registrationMu.Lock()
	defer n.registrationMu.Unlock()

	ctx, cancel := n.server.adapterContext()
	defer cancel()
	err := n.adapter.RemoveSocket(ctx, socket.ID())
	if err != nil {
		n.debug.Log("RemoveSocket failed", socket.ID(), err)
	}
	n.sockets.remove(socket.ID())
}

func (n *Namespace) onConnection(socket *serverSocket) {
	for _, handler := range n.connectionHandlers.getAll() {
		handler(socket)
	}
}
