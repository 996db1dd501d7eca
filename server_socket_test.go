package sio

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSocketSelfRoom(t *testing.T) {
	server := newTestServer(t, nil)
	socket := newTestClient(t, server).connect("/")

	assert.Equal(t, SocketStateConnected, socket.State())
	assert.True(t, socket.Rooms().Equal(roomSet(Room(socket.ID()))))
}

func TestSocketJoinLeave(t *testing.T) {
	server := newTestServer(t, nil)
	socket := newTestClient(t, server).connect("/")

	require.NoError(t, socket.Join("a", "b"))
	require.NoError(t, socket.Join("a"))
	assert.True(t, socket.Rooms().Equal(roomSet(Room(socket.ID()), "a", "b")))

	require.NoError(t, socket.Leave("a"))
	require.NoError(t, socket.Leave("not-joined"))
	assert.True(t, socket.Rooms().Equal(roomSet(Room(socket.ID()), "b")))
	assert.False(t, server.Of("/").Adapter().Rooms().Contains("a"))
}

func TestSocketLeaveOwnRoom(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server)
	socket := c.connect("/")

	require.NoError(t, socket.Leave(Room(socket.ID())))
	assert.True(t, socket.Rooms().Equal(roomSet(Room(socket.ID()))))

	require.NoError(t, socket.Send("hi"))
	assert.Equal(t, `2["hi"]`, c.next())
}

func TestSocketSend(t *testing.T) {
	server := newTestServer(t, nil)
	a := newTestClient(t, server)
	b := newTestClient(t, server)
	sa := a.connect("/")
	b.connect("/")

	require.NoError(t, sa.Send("hello", map[string]any{"n": 1}))
	assert.Equal(t, `2["hello",{"n":1}]`, a.next())
	b.expectNothing()
}

func TestSocketSendOrdering(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server)
	socket := c.connect("/")

	const n = 100
	for i := 0; i < n; i++ {
		require.NoError(t, socket.Send("seq", i))
	}
	for i := 0; i < n; i++ {
		assert.Equal(t, fmt.Sprintf(`2["seq",%d]`, i), c.next())
	}
}

func TestSocketOperationsAfterDisconnect(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server)
	socket := c.connect("/")
	socket.Disconnect(false)
	assert.Equal(t, "1", c.next())

	var stateErr *InvalidStateError

	err := socket.Join("a")
	require.ErrorIs(t, err, ErrInvalidState)
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, "join", stateErr.Op)
	assert.Equal(t, SocketStateDisconnected, stateErr.State)

	err = socket.Leave("a")
	require.ErrorIs(t, err, ErrInvalidState)

	err = socket.Send("foo")
	require.ErrorIs(t, err, ErrInvalidState)
	c.expectNothing()

	// Disconnecting twice is a no-op.
	socket.Disconnect(false)
	c.expectNothing()
}

func TestSocketEvents(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server)
	socket := c.connect("/chat")

	tw := utils.NewTestWaiter(1)
	socket.OnEvent(func(v ...any) {
		assert.Equal(t, []any{"say", "hi", float64(2)}, v)
		tw.Done()
	})
	c.send(`2/chat,["say","hi",2]`)
	tw.WaitTimeout(t, utils.DefaultTestWaitTimeout)

	// Events for a namespace the client isn't connected to are ignored.
	c.send(`2/other,["say"]`)

	// ACK packets are accepted and ignored.
	c.send(`3/chat,1["ok"]`)
	c.expectNothing()
}

func TestSocketOffEvent(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server)
	socket := c.connect("/")

	calls := 0
	handler := func(v ...any) { calls++ }
	socket.OnEvent(handler)
	c.send(`2["a"]`)
	socket.OffEvent(handler)
	c.send(`2["b"]`)
	assert.Equal(t, 1, calls)

	once := 0
	socket.OnceEvent(func(v ...any) { once++ })
	c.send(`2["a"]`)
	c.send(`2["b"]`)
	assert.Equal(t, 1, once)
}

func TestSocketMalformedPacket(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server)
	socket := c.connect("/")

	var got error
	socket.OnError(func(err error) { got = err })
	c.send(`2["unterminated`)

	var internalErr *InternalError
	require.True(t, errors.As(got, &internalErr))
	assert.True(t, socket.IsConnected())
}

func TestSocketClientDisconnect(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server)
	socket := c.connect("/")
	require.NoError(t, socket.Join("a", "b"))
	nsp := server.Of("/")

	var (
		disconnectingRooms []Room
		disconnectReason   Reason
	)
	socket.OnDisconnecting(func(reason Reason) {
		assert.Equal(t, SocketStateDisconnecting, socket.State())
		disconnectingRooms = socket.Rooms().ToSlice()
	})
	socket.OnDisconnect(func(reason Reason) {
		disconnectReason = reason
	})

	c.send("1")

	assert.ElementsMatch(t, []Room{Room(socket.ID()), "a", "b"}, disconnectingRooms)
	assert.Equal(t, ReasonClientNamespaceDisconnect, disconnectReason)
	assert.Equal(t, SocketStateDisconnected, socket.State())

	_, ok := nsp.Adapter().SocketRooms(socket.ID())
	assert.False(t, ok)
	assert.Equal(t, 0, nsp.Adapter().Rooms().Cardinality())
	assert.Empty(t, nsp.Sockets())
	c.expectNothing()

	// The connection stays open and may connect again.
	assert.False(t, c.conn.isClosed())
	again := c.connect("/")
	assert.NotEqual(t, socket.ID(), again.ID())
}

func TestSocketDisconnectClose(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server)
	main := c.connect("/")
	chat := c.connect("/chat")

	var reasons []Reason
	var mu sync.Mutex
	for _, s := range []*serverSocket{main, chat} {
		s.OnDisconnect(func(reason Reason) {
			mu.Lock()
			reasons = append(reasons, reason)
			mu.Unlock()
		})
	}

	main.Disconnect(true)

	assert.ElementsMatch(t, []string{"1", "1/chat,"}, []string{c.next(), c.next()})
	assert.Eventually(t, c.conn.isClosed, testWaitTimeout, 10*time.Millisecond)
	assert.Equal(t, SocketStateDisconnected, main.State())
	assert.Equal(t, SocketStateDisconnected, chat.State())
	assert.Equal(t, []Reason{ReasonServerNamespaceDisconnect, ReasonServerNamespaceDisconnect}, reasons)
	assert.Empty(t, server.Of("/chat").Sockets())
}

func TestSocketTransportClose(t *testing.T) {
	server := newTestServer(t, nil)
	c := newTestClient(t, server)
	socket := c.connect("/")
	require.NoError(t, socket.Join("a"))

	var reason Reason
	socket.OnDisconnect(func(r Reason) { reason = r })
	c.closeTransport("transport close")

	assert.Equal(t, ReasonTransportClose, reason)
	assert.Equal(t, SocketStateDisconnected, socket.State())
	assert.Equal(t, 0, server.Of("/").Adapter().Rooms().Cardinality())
	assert.True(t, c.conn.isClosed())
	c.expectNothing()
}

func TestSocketDisconnectDuringBroadcast(t *testing.T) {
	server := newTestServer(t, nil)
	nsp := server.Of("/")

	const numClients = 10
	var (
		clients []*testClient
		sockets []*serverSocket
	)
	for i := 0; i < numClients; i++ {
		c := newTestClient(t, server)
		clients = append(clients, c)
		socket := c.connect("/")
		require.NoError(t, socket.Join("room"))
		sockets = append(sockets, socket)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.NoError(t, nsp.Broadcast([]Room{"room"}, "tick"))
			}
		}()
	}
	for i, c := range clients {
		if i%2 == 0 {
			wg.Add(1)
			go func(c *testClient) {
				defer wg.Done()
				c.closeTransport("transport error")
			}(c)
		}
	}
	wg.Wait()

	for i, socket := range sockets {
		if i%2 == 0 {
			assert.Equal(t, SocketStateDisconnected, socket.State())
			assert.False(t, nsp.Adapter().Sockets(roomSet("room")).Contains(socket.ID()))
		} else {
			assert.True(t, socket.IsConnected())
		}
	}
	assert.Len(t, nsp.Sockets(), numClients/2)
}
