package sio

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/karagenc/sio-core/adapter"
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/parser"
	jsonparser "github.com/karagenc/sio-core/parser/json"
	"github.com/karagenc/sio-core/transport"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAdapterTimeout = 5 * time.Second
	DefaultConnectTimeout = 45 * time.Second
)

type ServerConfig struct {
	// Default: JSON parser over the fastest serializer of the platform.
	ParserCreator parser.Creator

	// Called once for every namespace, when the namespace is created.
	//
	// Default: in-memory adapter.
	AdapterCreator adapter.Creator

	// Bounds every adapter call made on behalf of a socket.
	//
	// Default: 5 seconds
	AdapterTimeout time.Duration

	// Duration to wait before a client without namespace is closed.
	//
	// Default: 45 seconds
	ConnectTimeout time.Duration

	// For debugging purposes. Leave it nil if it is of no use.
	Debugger Debugger
}

type Server struct {
	parserCreator  parser.Creator
	adapterCreator adapter.Creator
	adapterTimeout time.Duration
	connectTimeout time.Duration

	nsps  *namespaceStore
	conns *serverConnStore

	closed atomic.Bool

	debug Debugger
}

var _ transport.Handler = (*Server)(nil)

func NewServer(config *ServerConfig) *Server {
	if config == nil {
		config = new(ServerConfig)
	}

	server := &Server{
		parserCreator:  config.ParserCreator,
		adapterCreator: config.AdapterCreator,
		adapterTimeout: config.AdapterTimeout,
		connectTimeout: config.ConnectTimeout,
		nsps:           newNamespaceStore(),
		conns:          newServerConnStore(),
	}

	if server.parserCreator == nil {
		server.parserCreator = jsonparser.NewCreator(nil)
	}
	if server.adapterCreator == nil {
		server.adapterCreator = adapter.NewInMemoryAdapterCreator()
	}
	if server.adapterTimeout == 0 {
		server.adapterTimeout = DefaultAdapterTimeout
	}
	if server.connectTimeout == 0 {
		server.connectTimeout = DefaultConnectTimeout
	}

	if config.Debugger != nil {
		server.debug = config.Debugger
	} else {
		server.debug = NewNoopDebugger()
	}
	server.debug = server.debug.WithContext("[sio/server]")

	return server
}

// Of returns the namespace with the given name, creating it on first use.
// "" and "/" both name the main namespace, and a missing leading slash is added.
func (s *Server) Of(name string) *Namespace {
	name = normalizeNamespace(name)
	nsp, created := s.nsps.getOrCreate(name, func(name string) *Namespace {
		return newNamespace(name, s)
	})
	if created {
		s.debug.Log("namespace created", name)
	}
	return nsp
}

// Namespaces returns a snapshot of the namespaces, sorted by name.
func (s *Server) Namespaces() []*Namespace {
	return s.nsps.getAll()
}

func (s *Server) OnOpen(conn transport.Conn) {
	c := newServerConn(s, conn)
	if !s.conns.set(c) {
		c.close(ReasonForcedServerClose, false)
		return
	}
	s.debug.Log("connection opened", conn.ID())
}

func (s *Server) OnMessage(connID string, data []byte) {
	c, ok := s.conns.get(connID)
	if !ok {
		return
	}
	c.onMessage(data)
}

func (s *Server) OnClose(connID string, reason string) {
	c, ok := s.conns.remove(connID)
	if !ok {
		return
	}
	s.debug.Log("connection closed", connID, reason)
	c.close(Reason(reason), false)
}

// Close forcibly closes every connection, then closes the adapters.
// The first adapter error is returned.
func (s *Server) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	for _, c := range s.conns.closeAndGetAll() {
		c.close(ReasonForcedServerClose, false)
	}

	var g errgroup.Group
	for _, nsp := range s.nsps.getAll() {
		g.Go(nsp.adapter.Close)
	}
	return g.Wait()
}

func (s *Server) adapterContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.adapterTimeout)
}

type serverConnStore struct {
	conns  map[string]*serverConn
	closed bool
	mu     sync.Mutex
}

func newServerConnStore() *serverConnStore {
	return &serverConnStore{
		conns: make(map[string]*serverConn),
	}
}

func (s *serverConnStore) get(id string) (c *serverConn, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok = s.conns[id]
	return
}

// set returns false once the server is closed.
func (s *serverConnStore) set(c *serverConn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c.ID()] = c
	return true
}

func (s *serverConnStore) remove(id string) (c *serverConn, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok = s.conns[id]
	delete(s.conns, id)
	return
}

func (s *serverConnStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

func (s *serverConnStore) closeAndGetAll() (conns []*serverConn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	conns = make([]*serverConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	s.conns = make(map[string]*serverConn)
	return
}
