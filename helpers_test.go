package sio

import (
	"context"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/karagenc/sio-core/adapter"
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/parser"
	jsonparser "github.com/karagenc/sio-core/parser/json"
	"github.com/karagenc/sio-core/parser/json/serializer/stdjson"
	"github.com/stretchr/testify/require"
)

const testWaitTimeout = 3 * time.Second

func newTestServer(t *testing.T, config *ServerConfig) *Server {
	if config == nil {
		config = new(ServerConfig)
	}
	if config.ParserCreator == nil {
		config.ParserCreator = jsonparser.NewCreator(stdjson.New())
	}
	server := NewServer(config)
	t.Cleanup(func() { server.Close() })
	return server
}

// testClient drives a server through a fake transport connection.
type testClient struct {
	t        *testing.T
	server   *Server
	conn     *testConn
	received chan string
	parser   parser.Codec
}

func newTestClient(t *testing.T, server *Server) *testClient {
	c := &testClient{
		t:        t,
		server:   server,
		conn:     newTestConn(uuid.NewString()),
		received: make(chan string, 4096),
		parser:   jsonparser.NewCreator(stdjson.New())(),
	}
	c.conn.onSend = func(data string) { c.received <- data }
	server.OnOpen(c.conn)
	return c
}

func (c *testClient) send(data string) {
	c.server.OnMessage(c.conn.ID(), []byte(data))
}

// connect connects to the namespace and returns the server side socket.
func (c *testClient) connect(nsp string) *serverSocket {
	c.t.Helper()
	nsp = normalizeNamespace(nsp)
	if nsp == "/" {
		c.send("0")
	} else {
		c.send("0" + nsp + ",")
	}

	packet := c.nextPacket()
	require.Equal(c.t, parser.PacketTypeConnect, packet.Type, "expected CONNECT")
	require.Equal(c.t, nsp, packet.Namespace)
	data, ok := packet.Data.(map[string]any)
	require.True(c.t, ok)
	sid, ok := data["sid"].(string)
	require.True(c.t, ok)

	socket, ok := c.server.Of(nsp).sockets.get(SocketID(sid))
	require.True(c.t, ok)
	return socket
}

func (c *testClient) next() string {
	c.t.Helper()
	select {
	case data := <-c.received:
		return data
	case <-time.After(testWaitTimeout):
		c.t.Fatal("timeout waiting for packet")
		return ""
	}
}

func (c *testClient) nextPacket() *parser.Packet {
	c.t.Helper()
	packet, err := c.parser.Decode([]byte(c.next()))
	require.NoError(c.t, err)
	return packet
}

// expectNothing fails if a packet arrives within a short while.
func (c *testClient) expectNothing() {
	c.t.Helper()
	select {
	case data := <-c.received:
		c.t.Fatalf("unexpected packet: %s", data)
	case <-time.After(50 * time.Millisecond):
	}
}

// drain returns every packet received within a short while.
func (c *testClient) drain() (packets []string) {
	for {
		select {
		case data := <-c.received:
			packets = append(packets, data)
		case <-time.After(50 * time.Millisecond):
			return
		}
	}
}

func (c *testClient) closeTransport(reason string) {
	c.server.OnClose(c.conn.ID(), reason)
}

type broadcastCall struct {
	packet *parser.Packet
	opts   *adapter.BroadcastOptions
}

// mockAdapter records broadcasts and can be told to fail.
type mockAdapter struct {
	adapter.Adapter

	mu         sync.Mutex
	broadcasts []broadcastCall
	failAdd    error
	failJoin   error
	closeErr   error
}

func newMockAdapterCreator(created *[]*mockAdapter, mu *sync.Mutex) adapter.Creator {
	return func(nsp adapter.Namespace) adapter.Adapter {
		m := &mockAdapter{Adapter: adapter.NewInMemoryAdapterCreator()(nsp)}
		mu.Lock()
		*created = append(*created, m)
		mu.Unlock()
		return m
	}
}

func (m *mockAdapter) AddSocket(ctx context.Context, sid adapter.SocketID) error {
	m.mu.Lock()
	err := m.failAdd
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Adapter.AddSocket(ctx, sid)
}

func (m *mockAdapter) Join(ctx context.Context, sid adapter.SocketID, rooms ...adapter.Room) error {
	m.mu.Lock()
	err := m.failJoin
	m.mu.Unlock()
	if err != nil {
		return err
	}
	return m.Adapter.Join(ctx, sid, rooms...)
}

func (m *mockAdapter) Broadcast(ctx context.Context, packet *parser.Packet, opts *adapter.BroadcastOptions) error {
	m.mu.Lock()
	m.broadcasts = append(m.broadcasts, broadcastCall{packet: packet, opts: opts})
	m.mu.Unlock()
	return m.Adapter.Broadcast(ctx, packet, opts)
}

func (m *mockAdapter) Close() error {
	return m.closeErr
}

func (m *mockAdapter) lastBroadcast() broadcastCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.broadcasts[len(m.broadcasts)-1]
}

func roomSet(rooms ...Room) mapset.Set[Room] {
	return mapset.NewSet(rooms...)
}
