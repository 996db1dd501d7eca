package sio

import (
	"sync/atomic"
	"time"

	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/parser"
	"github.com/karagenc/sio-core/transport"
)

// Sockets of a single connection, one per namespace.
type connSocketStore struct {
	sockets map[string]*serverSocket
	closed  bool
	mu      sync.Mutex
}

func newConnSocketStore() *connSocketStore {
	return &connSocketStore{
		sockets: make(map[string]*serverSocket),
	}
}

func (s *connSocketStore) get(nsp string) (socket *serverSocket, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	socket, ok = s.sockets[nsp]
	return
}

func (s *connSocketStore) getAll() (sockets []*serverSocket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sockets = make([]*serverSocket, 0, len(s.sockets))
	for _, socket := range s.sockets {
		sockets = append(sockets, socket)
	}
	return
}

// add returns false once the connection is closed.
func (s *connSocketStore) add(socket *serverSocket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.sockets[socket.nsp.Name()] = socket
	return true
}

func (s *connSocketStore) remove(socket *serverSocket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sockets[socket.nsp.Name()] == socket {
		delete(s.sockets, socket.nsp.Name())
	}
}

func (s *connSocketStore) closeAndGetAll() (sockets []*serverSocket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	sockets = make([]*serverSocket, 0, len(s.sockets))
	for _, socket := range s.sockets {
		sockets = append(sockets, socket)
	}
	return
}

// This struct represents a connection to the server.
//
// This is the equivalent of the Client class at: https://github.com/socketio/socket.io/blob/4.3.2/lib/client.ts#L21
type serverConn struct {
	conn   transport.Conn
	queue  *packetQueue
	server *Server

	sockets *connSocketStore

	// Parser is stateless and safe to share between goroutines.
	parser parser.Codec

	connected    atomic.Bool
	connectTimer *time.Timer
	closeOnce    sync.Once

	debug Debugger
}

func newServerConn(server *Server, conn transport.Conn) *serverConn {
	c := &serverConn{
		conn:    conn,
		queue:   newPacketQueue(),
		server:  server,
		sockets: newConnSocketStore(),
		parser:  server.parserCreator(),
		debug:   server.debug.WithContext("[serverConn " + conn.ID() + "]"),
	}

	go c.writeLoop()

	c.connectTimer = time.AfterFunc(server.connectTimeout, func() {
		if !c.connected.Load() {
			c.debug.Log("no namespace was connected in time")
			c.close(ReasonConnectTimeout, false)
		}
	})
	return c
}

func (c *serverConn) ID() string { return c.conn.ID() }

func (c *serverConn) writeLoop() {
	err := c.queue.pollAndSend(c.conn)
	if err != nil {
		c.debug.Log("send failed", err)
	}
	c.queue.close()
	c.conn.Close()
}

func (c *serverConn) onMessage(data []byte) {
	packet, err := c.parser.Decode(data)
	if err != nil {
		c.onError(wrapInternalError(err))
		return
	}
	nsp := normalizeNamespace(packet.Namespace)

	if packet.Type == parser.PacketTypeConnect {
		c.connect(nsp)
		return
	}

	socket, ok := c.sockets.get(nsp)
	if !ok {
		c.debug.Log("no socket for namespace", nsp, packet.Type)
		return
	}
	socket.onPacket(packet)
}

func (c *serverConn) connect(name string) {
	if _, ok := c.sockets.get(name); ok {
		c.debug.Log("already connected to namespace", name)
		return
	}

	nsp := c.server.Of(name)
	socket, err := nsp.add(c)
	if err != nil {
		c.debug.Log("connect failed", name, err)
		c.connectError(name, err)
		return
	}

	if !c.sockets.add(socket) {
		socket.onClose(ReasonForcedServerClose, false)
		return
	}
	c.connected.Store(true)
	c.connectTimer.Stop()

	err = socket.onConnect()
	if err != nil {
		c.debug.Log("connect failed", name, err)
		socket.onClose(ReasonForcedServerClose, false)
		return
	}
	nsp.onConnection(socket)
}

type connectErrorPayload struct {
	Message string `json:"message"`
}

func (c *serverConn) connectError(nsp string, err error) {
	err = c.sendPacket(&parser.Packet{
		Type:      parser.PacketTypeConnectError,
		Namespace: nsp,
		Data:      &connectErrorPayload{Message: err.Error()},
	})
	if err != nil {
		c.debug.Log("could not send CONNECT_ERROR", err)
	}
}

func (c *serverConn) sendPacket(packet *parser.Packet) error {
	buf, err := c.parser.Encode(packet)
	if err != nil {
		return wrapInternalError(err)
	}
	c.enqueue(buf)
	return nil
}

func (c *serverConn) enqueue(buf []byte) {
	c.queue.add(buf)
}

func (c *serverConn) removeSocket(socket *serverSocket) {
	c.sockets.remove(socket)
}

func (c *serverConn) onError(err error) {
	c.debug.Log("error", err)
	for _, socket := range c.sockets.getAll() {
		socket.onError(err)
	}
}

// close disconnects every socket of the connection and closes it.
// If graceful is true, each client is sent a DISCONNECT packet
// and the queued packets are flushed before the transport is closed.
func (c *serverConn) close(reason Reason, graceful bool) {
	c.closeOnce.Do(func() {
		for _, socket := range c.sockets.closeAndGetAll() {
			socket.onClose(reason, graceful)
		}

		if graceful {
			// The writer closes the transport once the queue is drained.
			c.queue.closeGracefully()
			return
		}
		c.queue.close()
		c.conn.Close()
	})
}

func normalizeNamespace(name string) string {
	if name == "" {
		return "/"
	}
	if name[0] != '/' {
		return "/" + name
	}
	return name
}
