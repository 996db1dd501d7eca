package cluster

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/karagenc/sio-core/adapter"
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/parser"
	jsonparser "github.com/karagenc/sio-core/parser/json"
	"github.com/karagenc/sio-core/parser/json/serializer/stdjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitTimeout = 2 * time.Second
	waitTick    = 5 * time.Millisecond
)

type testNamespace struct {
	name  string
	store *testSocketStore
}

func (n *testNamespace) Name() string { return n.name }
func (n *testNamespace) SocketStore() adapter.SocketStore { return n.store }
func (n *testNamespace) ParserCreator() parser.Creator { return jsonparser.NewCreator(stdjson.New()) }

type testSocketStore struct {
	mu       sync.Mutex
	received map[adapter.SocketID][]string
}

func newTestSocketStore() *testSocketStore {
	return &testSocketStore{received: make(map[adapter.SocketID][]string)}
}

// Every socket ID is considered live.
func (s *testSocketStore) SendBuffer(sid adapter.SocketID, buffer []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received[sid] = append(s.received[sid], string(buffer))
	return true
}

func (s *testSocketStore) get(sid adapter.SocketID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received[sid]...)
}

func (s *testSocketStore) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.received {
		n += len(r)
	}
	return n
}

type flakyBroker struct {
	*MemoryBroker
	down atomic.Bool
}

var errBrokerDown = errors.New("broker down")

func (b *flakyBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	if b.down.Load() {
		return errBrokerDown
	}
	return b.MemoryBroker.Publish(ctx, channel, payload)
}

type testNode struct {
	adapter *clusterAdapter
	store   *testSocketStore
}

func newTestNode(t *testing.T, broker Broker) *testNode {
	store := newTestSocketStore()
	creator := NewCreator(&Config{Broker: broker, Serializer: stdjson.New()})
	a := creator(&testNamespace{name: "/", store: store}).(*clusterAdapter)
	t.Cleanup(func() { a.Close() })
	return &testNode{adapter: a, store: store}
}

func TestChannelName(t *testing.T) {
	assert.Equal(t, "sio#/#", channelName("sio", "/"))
	assert.Equal(t, "app#/chat#", channelName("app", "/chat"))
}

func TestNewCreatorRequiresBroker(t *testing.T) {
	assert.Panics(t, func() { NewCreator(nil) })
	assert.Panics(t, func() { NewCreator(&Config{}) })
}

func TestBroadcastAcrossNodes(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	n1 := newTestNode(t, broker)
	n2 := newTestNode(t, broker)

	require.NoError(t, n1.adapter.AddSocket(ctx, "a"))
	require.NoError(t, n1.adapter.Join(ctx, "a", "room"))
	require.NoError(t, n2.adapter.AddSocket(ctx, "b"))
	require.NoError(t, n2.adapter.Join(ctx, "b", "room"))
	require.NoError(t, n2.adapter.AddSocket(ctx, "c"))

	opts := adapter.NewBroadcastOptions()
	opts.Rooms.Add("room")
	require.NoError(t, n1.adapter.Broadcast(ctx, parser.NewEvent("/", []any{"hello"}), opts))

	assert.Equal(t, []string{`2["hello"]`}, n1.store.get("a"))
	assert.Equal(t, []string{`2["hello"]`}, n2.store.get("b"))
	assert.Empty(t, n2.store.get("c"))
	// Sockets of the other node are never delivered to locally.
	assert.Empty(t, n1.store.get("b"))
	assert.Empty(t, n2.store.get("a"))
}

func TestBroadcastToAllAcrossNodes(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	nodes := []*testNode{newTestNode(t, broker), newTestNode(t, broker), newTestNode(t, broker)}
	sids := []adapter.SocketID{"a", "b", "c"}
	for i, node := range nodes {
		require.NoError(t, node.adapter.AddSocket(ctx, sids[i]))
	}

	opts := adapter.NewBroadcastOptions()
	opts.ExceptSockets.Add("b")
	require.NoError(t, nodes[0].adapter.Broadcast(ctx, parser.NewEvent("/", []any{1}), opts))

	assert.Equal(t, 1, nodes[0].store.total())
	assert.Equal(t, 0, nodes[1].store.total())
	assert.Equal(t, 1, nodes[2].store.total())
	assert.Len(t, nodes[2].store.get("c"), 1)
}

func TestLocalFlag(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	n1 := newTestNode(t, broker)
	n2 := newTestNode(t, broker)
	n1.adapter.AddSocket(ctx, "a")
	n2.adapter.AddSocket(ctx, "b")

	opts := adapter.NewBroadcastOptions()
	opts.Flags.Local = true
	require.NoError(t, n1.adapter.Broadcast(ctx, parser.NewEvent("/", []any{"x"}), opts))

	assert.Len(t, n1.store.get("a"), 1)
	assert.Empty(t, n2.store.get("b"))
}

func TestRemoteMembership(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	n1 := newTestNode(t, broker)
	n2 := newTestNode(t, broker)

	n1.adapter.AddSocket(ctx, "a")
	n1.adapter.Join(ctx, "a", "r1")
	n2.adapter.AddSocket(ctx, "b")
	n2.adapter.Join(ctx, "b", "r1", "r2")

	assert.True(t, n1.adapter.Sockets(mapset.NewSet[adapter.Room]("r1")).Equal(mapset.NewSet[adapter.SocketID]("a", "b")))
	assert.True(t, n2.adapter.Sockets(nil).Equal(mapset.NewSet[adapter.SocketID]("a", "b")))
	assert.True(t, n1.adapter.Rooms().Equal(mapset.NewSet[adapter.Room]("a", "b", "r1", "r2")))

	rooms, ok := n1.adapter.SocketRooms("b")
	require.True(t, ok)
	assert.True(t, rooms.Equal(mapset.NewSet[adapter.Room]("b", "r1", "r2")))

	n2.adapter.Leave(ctx, "b", "r2")
	assert.False(t, n1.adapter.Rooms().Contains("r2"))

	n2.adapter.RemoveSocket(ctx, "b")
	_, ok = n1.adapter.SocketRooms("b")
	assert.False(t, ok)
}

func TestLateNodeReceivesSnapshot(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	n1 := newTestNode(t, broker)
	n1.adapter.AddSocket(ctx, "a")
	n1.adapter.Join(ctx, "a", "r1")

	n2 := newTestNode(t, broker)
	assert.Eventually(t, func() bool {
		return n2.adapter.Sockets(mapset.NewSet[adapter.Room]("r1")).Contains("a")
	}, waitTimeout, waitTick)
	assert.Equal(t, 2, n1.adapter.ServerCount())
	assert.Equal(t, 2, n2.adapter.ServerCount())
}

// afterPublishBroker runs hook once, right after the next message is published.
type afterPublishBroker struct {
	*MemoryBroker
	hook atomic.Pointer[func()]
}

func (b *afterPublishBroker) Publish(ctx context.Context, channel string, payload []byte) error {
	err := b.MemoryBroker.Publish(ctx, channel, payload)
	if hook := b.hook.Swap(nil); hook != nil {
		(*hook)()
	}
	return err
}

func TestNodeJoiningDuringMembershipChange(t *testing.T) {
	ctx := context.Background()
	broker := &afterPublishBroker{MemoryBroker: NewMemoryBroker()}
	n1 := newTestNode(t, broker)
	n2 := newTestNode(t, broker)
	require.NoError(t, n1.adapter.AddSocket(ctx, "a"))

	// The new node subscribes after the join went out but before n1 applied it.
	var n3 *testNode
	hook := func() { n3 = newTestNode(t, broker) }
	broker.hook.Store(&hook)
	require.NoError(t, n1.adapter.Join(ctx, "a", "late"))
	require.NotNil(t, n3)

	late := mapset.NewSet[adapter.Room]("late")
	assert.True(t, n2.adapter.Sockets(late).Contains("a"))
	assert.Eventually(t, func() bool {
		return n3.adapter.Sockets(late).Contains("a")
	}, waitTimeout, waitTick)
}

func TestServerCountAfterClose(t *testing.T) {
	broker := NewMemoryBroker()
	n1 := newTestNode(t, broker)
	n2 := newTestNode(t, broker)
	n3 := newTestNode(t, broker)
	assert.Equal(t, 3, n1.adapter.ServerCount())

	require.NoError(t, n3.adapter.Close())
	assert.Equal(t, 2, n1.adapter.ServerCount())
	assert.Equal(t, 2, n2.adapter.ServerCount())
}

func TestUnavailableBroker(t *testing.T) {
	ctx := context.Background()
	broker := &flakyBroker{MemoryBroker: NewMemoryBroker()}
	n1 := newTestNode(t, broker)
	n2 := newTestNode(t, broker)
	require.NoError(t, n1.adapter.AddSocket(ctx, "a"))
	require.NoError(t, n2.adapter.AddSocket(ctx, "b"))

	broker.down.Store(true)

	err := n1.adapter.Join(ctx, "a", "r1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, adapter.ErrUnavailable))
	assert.True(t, errors.Is(err, errBrokerDown))
	var unavailable *adapter.UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, "join", unavailable.Op)
	assert.False(t, n1.adapter.Rooms().Contains("r1"), "local state must be untouched")

	err = n1.adapter.Leave(ctx, "a", "a")
	assert.ErrorIs(t, err, adapter.ErrUnavailable)
	rooms, _ := n1.adapter.SocketRooms("a")
	assert.True(t, rooms.Contains("a"))

	err = n1.adapter.Broadcast(ctx, parser.NewEvent("/", []any{"x"}), nil)
	assert.ErrorIs(t, err, adapter.ErrUnavailable)
	assert.Equal(t, 0, n1.store.total())
	assert.Equal(t, 0, n2.store.total())

	err = n1.adapter.RemoveSocket(ctx, "a")
	assert.ErrorIs(t, err, adapter.ErrUnavailable)
	assert.False(t, n1.adapter.local.Has("a"), "removal always clears local state")

	broker.down.Store(false)
	require.NoError(t, n2.adapter.Broadcast(ctx, parser.NewEvent("/", []any{"y"}), nil))
	assert.Len(t, n2.store.get("b"), 1)
	assert.Equal(t, 0, n1.store.total())
}

func TestSubscribeFailure(t *testing.T) {
	ctx := context.Background()
	store := newTestSocketStore()
	creator := NewCreator(&Config{Broker: failingSubscribeBroker{}})
	a := creator(&testNamespace{name: "/", store: store})

	assert.ErrorIs(t, a.AddSocket(ctx, "a"), adapter.ErrUnavailable)
	assert.Equal(t, 0, a.Rooms().Cardinality())
	assert.NoError(t, a.Close())
}

type flakySubscribeBroker struct {
	*MemoryBroker
	down atomic.Bool
}

func (b *flakySubscribeBroker) Subscribe(ctx context.Context, channel string, handler func([]byte)) (Subscription, error) {
	if b.down.Load() {
		return nil, errBrokerDown
	}
	return b.MemoryBroker.Subscribe(ctx, channel, handler)
}

func TestSubscribeRecovers(t *testing.T) {
	ctx := context.Background()
	broker := &flakySubscribeBroker{MemoryBroker: NewMemoryBroker()}
	n2 := newTestNode(t, broker)

	broker.down.Store(true)
	n1 := newTestNode(t, broker)
	assert.ErrorIs(t, n1.adapter.AddSocket(ctx, "a"), adapter.ErrUnavailable)
	assert.ErrorIs(t, n1.adapter.AddSocket(ctx, "a"), adapter.ErrUnavailable)
	assert.Equal(t, 0, n1.adapter.Rooms().Cardinality())

	broker.down.Store(false)
	require.NoError(t, n1.adapter.AddSocket(ctx, "a"))
	require.NoError(t, n1.adapter.Join(ctx, "a", "r1"))

	assert.True(t, n2.adapter.Sockets(mapset.NewSet[adapter.Room]("r1")).Contains("a"))
	assert.Equal(t, 2, n2.adapter.ServerCount())
	assert.Eventually(t, func() bool { return n1.adapter.ServerCount() == 2 }, waitTimeout, waitTick)
}

func TestOperationsAfterClose(t *testing.T) {
	ctx := context.Background()
	n1 := newTestNode(t, NewMemoryBroker())
	require.NoError(t, n1.adapter.Close())
	require.NoError(t, n1.adapter.Close())
	assert.ErrorIs(t, n1.adapter.AddSocket(ctx, "a"), adapter.ErrUnavailable)
}

func TestLeaveSelfRoom(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	n1 := newTestNode(t, broker)
	n2 := newTestNode(t, broker)
	require.NoError(t, n1.adapter.AddSocket(ctx, "a"))

	require.NoError(t, n1.adapter.Leave(ctx, "a", "a"))
	self := mapset.NewSet[adapter.Room]("a")
	assert.True(t, n1.adapter.local.Sockets(self).Contains("a"))
	assert.True(t, n2.adapter.Sockets(self).Contains("a"))

	opts := adapter.NewBroadcastOptions()
	opts.Rooms.Add("a")
	require.NoError(t, n1.adapter.Broadcast(ctx, parser.NewEvent("/", []any{"x"}), opts))
	assert.Equal(t, []string{`2["x"]`}, n1.store.get("a"))
}

type failingSubscribeBroker struct{}

func (failingSubscribeBroker) Publish(context.Context, string, []byte) error { return errBrokerDown }

func (failingSubscribeBroker) Subscribe(context.Context, string, func([]byte)) (Subscription, error) {
	return nil, errBrokerDown
}

func TestNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	broker := NewMemoryBroker()
	creator := NewCreator(&Config{Broker: broker})

	rootStore := newTestSocketStore()
	chatStore := newTestSocketStore()
	root := creator(&testNamespace{name: "/", store: rootStore})
	chat := creator(&testNamespace{name: "/chat", store: chatStore})
	other := creator(&testNamespace{name: "/chat", store: newTestSocketStore()})
	defer root.Close()
	defer chat.Close()
	defer other.Close()

	root.AddSocket(ctx, "a")
	chat.AddSocket(ctx, "b")

	require.NoError(t, other.Broadcast(ctx, parser.NewEvent("/chat", []any{"x"}), nil))
	assert.Equal(t, 0, rootStore.total())
	assert.Equal(t, []string{`2/chat,["x"]`}, chatStore.get("b"))
	assert.Equal(t, 1, root.ServerCount())
	assert.Equal(t, 2, chat.ServerCount())
}
