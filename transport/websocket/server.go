// Package websocket serves socket.io connections over WebSocket
// using nhooyr.io/websocket.
package websocket

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/karagenc/sio-core/debug"
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/transport"
	"nhooyr.io/websocket"
)

const (
	DefaultWriteTimeout = 10 * time.Second
	DefaultReadLimit    = 1 << 20
)

type Config struct {
	// Bounds each write to the peer.
	// Default: 10 seconds
	WriteTimeout time.Duration

	// Maximum size of a message read from the peer.
	// Default: 1 MiB
	ReadLimit int64

	AcceptOptions *websocket.AcceptOptions

	Debugger debug.Debugger
}

type Server struct {
	handler transport.Handler

	writeTimeout  time.Duration
	readLimit     int64
	acceptOptions *websocket.AcceptOptions

	debug debug.Debugger
}

func NewServer(handler transport.Handler, config *Config) *Server {
	if config == nil {
		config = new(Config)
	}

	s := &Server{
		handler:       handler,
		writeTimeout:  config.WriteTimeout,
		readLimit:     config.ReadLimit,
		acceptOptions: config.AcceptOptions,
		debug:         config.Debugger,
	}
	if s.writeTimeout == 0 {
		s.writeTimeout = DefaultWriteTimeout
	}
	if s.readLimit == 0 {
		s.readLimit = DefaultReadLimit
	}
	if s.debug == nil {
		s.debug = debug.NewNoop()
	}
	s.debug = s.debug.WithContext("[websocket]")
	return s
}

// ServeHTTP blocks for the lifetime of the connection.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, s.acceptOptions)
	if err != nil {
		s.debug.Log("accept failed", err)
		return
	}
	ws.SetReadLimit(s.readLimit)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := &serverConn{
		id:           uuid.NewString(),
		ws:           ws,
		ctx:          ctx,
		writeTimeout: s.writeTimeout,
	}
	s.debug.Log("connection opened", c.id)
	s.handler.OnOpen(c)

	reason := s.readLoop(ctx, c)
	c.Close()

	s.debug.Log("connection closed", c.id, reason)
	s.handler.OnClose(c.id, reason)
}

func (s *Server) readLoop(ctx context.Context, c *serverConn) (reason string) {
	for {
		_, data, err := c.ws.Read(ctx)
		if err != nil {
			return c.closeReason(err)
		}
		s.handler.OnMessage(c.id, data)
	}
}

type serverConn struct {
	id           string
	ws           *websocket.Conn
	ctx          context.Context
	writeTimeout time.Duration

	closedByUs atomic.Bool
	closeOnce  sync.Once
	closeErr   error
}

func (c *serverConn) ID() string { return c.id }

func (c *serverConn) Send(data []byte) error {
	ctx, cancel := context.WithTimeout(c.ctx, c.writeTimeout)
	defer cancel()
	return c.ws.Write(ctx, websocket.MessageText, data)
}

func (c *serverConn) Close() error {
	c.closeOnce.Do(func() {
		c.closedByUs.Store(true)
		c.closeErr = c.ws.Close(websocket.StatusNormalClosure, "")
		if isExpectedCloseError(c.closeErr) {
			c.closeErr = nil
		}
	})
	return c.closeErr
}

func (c *serverConn) closeReason(err error) string {
	if c.closedByUs.Load() {
		return transport.ReasonForcedClose
	}
	if isExpectedCloseError(err) {
		return transport.ReasonTransportClose
	}
	return transport.ReasonTransportError
}

func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	status := websocket.CloseStatus(err)
	for _, expected := range expectedCloseCodes {
		if status == expected {
			return true
		}
	}
	return false
}
