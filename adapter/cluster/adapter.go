// Package cluster provides an adapter that keeps the rooms of a namespace
// consistent across several server nodes connected by a Broker.
//
// Every node owns the sockets connected to it. Membership changes and
// broadcasts are published on one channel per namespace; a node receiving
// a broadcast delivers it to its own sockets only, so a socket receives
// at most one copy no matter how many nodes are running.
package cluster

import (
	"context"
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/google/uuid"
	"github.com/karagenc/sio-core/adapter"
	"github.com/karagenc/sio-core/debug"
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/parser"
	"github.com/karagenc/sio-core/parser/json/serializer"
)

type clusterAdapter struct {
	uid     string
	channel string
	config  *Config
	json    serializer.JSONSerializer
	debug   debug.Debugger

	sockets adapter.SocketStore
	parser  parser.Codec

	// Held across publishing a membership change and applying it locally,
	// so a snapshot never misses a change that was already announced.
	opMu  sync.Mutex
	local *adapter.Membership

	mu        sync.Mutex
	remotes   map[string]*adapter.Membership
	closed    bool
	snapshots sync.WaitGroup

	subMu sync.Mutex
	sub   Subscription
}

var errClosed = errors.New("cluster: adapter closed")

func NewCreator(config *Config) adapter.Creator {
	if config == nil || config.Broker == nil {
		panic("cluster: Config.Broker must be set")
	}
	c := config.withDefaults()
	return func(nsp adapter.Namespace) adapter.Adapter {
		return newClusterAdapter(c, nsp)
	}
}

func newClusterAdapter(config *Config, nsp adapter.Namespace) *clusterAdapter {
	a := &clusterAdapter{
		uid:     uuid.NewString(),
		channel: channelName(config.Prefix, nsp.Name()),
		config:  config,
		json:    config.Serializer,
		sockets: nsp.SocketStore(),
		parser:  nsp.ParserCreator()(),
		local:   adapter.NewMembership(),
		remotes: make(map[string]*adapter.Membership),
	}
	a.debug = config.Debugger.WithContext("[cluster " + nsp.Name() + " " + a.uid[:8] + "]")

	ctx, cancel := context.WithTimeout(context.Background(), config.SubscribeTimeout)
	defer cancel()

	// On failure the subscription is retried by the next operation.
	err := a.ensureSubscribed(ctx)
	if err != nil {
		a.debug.Log("subscribe failed", err)
	}
	return a
}

// ensureSubscribed subscribes to the namespace channel unless already
// subscribed, then asks the other nodes for their snapshots.
func (a *clusterAdapter) ensureSubscribed(ctx context.Context) error {
	a.subMu.Lock()
	defer a.subMu.Unlock()
	if a.sub != nil {
		return nil
	}
	if a.isClosed() {
		return errClosed
	}

	sub, err := a.config.Broker.Subscribe(ctx, a.channel, a.onMessage)
	if err != nil {
		return err
	}
	a.sub = sub

	err = a.publish(ctx, &message{UID: a.uid, Type: messageTypeSync})
	if err != nil {
		a.debug.Log("sync request failed", err)
	}
	return nil
}

func (a *clusterAdapter) ServerCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return 1 + len(a.remotes)
}

func (a *clusterAdapter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	a.mu.Unlock()
	a.snapshots.Wait()

	a.subMu.Lock()
	sub := a.sub
	a.sub = nil
	a.subMu.Unlock()
	if sub == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.config.SubscribeTimeout)
	defer cancel()
	err := a.publish(ctx, &message{UID: a.uid, Type: messageTypeBye})
	if err != nil {
		a.debug.Log("bye failed", err)
	}
	return sub.Close()
}

func (a *clusterAdapter) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

func (a *clusterAdapter) AddSocket(ctx context.Context, sid adapter.SocketID) error {
	return a.Join(ctx, sid, adapter.Room(sid))
}

func (a *clusterAdapter) Join(ctx context.Context, sid adapter.SocketID, rooms ...adapter.Room) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	err := a.publishOp(ctx, "join", &message{
		UID:   a.uid,
		Type:  messageTypeJoin,
		SID:   sid,
		Rooms: rooms,
	})
	if err != nil {
		return err
	}
	a.local.Join(sid, rooms...)
	return nil
}

func (a *clusterAdapter) Leave(ctx context.Context, sid adapter.SocketID, room adapter.Room) error {
	if room == adapter.Room(sid) {
		return nil
	}
	a.opMu.Lock()
	defer a.opMu.Unlock()

	err := a.publishOp(ctx, "leave", &message{
		UID:   a.uid,
		Type:  messageTypeLeave,
		SID:   sid,
		Rooms: []adapter.Room{room},
	})
	if err != nil {
		return err
	}
	a.local.Leave(sid, room)
	return nil
}

// RemoveSocket clears local state even if the other nodes cannot be told.
func (a *clusterAdapter) RemoveSocket(ctx context.Context, sid adapter.SocketID) error {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	a.local.Remove(sid)
	return a.publishOp(ctx, "remove", &message{
		UID:  a.uid,
		Type: messageTypeRemove,
		SID:  sid,
	})
}

func (a *clusterAdapter) Broadcast(ctx context.Context, packet *parser.Packet, opts *adapter.BroadcastOptions) error {
	buffer, err := a.parser.Encode(packet)
	if err != nil {
		return fmt.Errorf("cluster: encode: %w", err)
	}

	if opts == nil || !opts.Flags.Local {
		err = a.publishOp(ctx, "broadcast", newBroadcastMessage(a.uid, buffer, opts))
		if err != nil {
			return err
		}
	}

	adapter.Deliver(a.sockets, a.local.Targets(opts), buffer)
	return nil
}

func (a *clusterAdapter) Sockets(rooms mapset.Set[adapter.Room]) (sids mapset.Set[adapter.SocketID]) {
	sids = a.local.Sockets(rooms)
	for _, remote := range a.remoteViews() {
		sids = sids.Union(remote.Sockets(rooms))
	}
	return
}

func (a *clusterAdapter) SocketRooms(sid adapter.SocketID) (rooms mapset.Set[adapter.Room], ok bool) {
	rooms, ok = a.local.SocketRooms(sid)
	if ok {
		return
	}
	for _, remote := range a.remoteViews() {
		rooms, ok = remote.SocketRooms(sid)
		if ok {
			return
		}
	}
	return nil, false
}

func (a *clusterAdapter) Rooms() (rooms mapset.Set[adapter.Room]) {
	rooms = a.local.Rooms()
	for _, remote := range a.remoteViews() {
		rooms = rooms.Union(remote.Rooms())
	}
	return
}

func (a *clusterAdapter) remoteViews() []*adapter.Membership {
	a.mu.Lock()
	defer a.mu.Unlock()
	views := make([]*adapter.Membership, 0, len(a.remotes))
	for _, m := range a.remotes {
		views = append(views, m)
	}
	return views
}

func (a *clusterAdapter) remote(uid string) *adapter.Membership {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.remotes[uid]
	if !ok {
		m = adapter.NewMembership()
		a.remotes[uid] = m
	}
	return m
}

func (a *clusterAdapter) publishOp(ctx context.Context, op string, m *message) error {
	err := a.ensureSubscribed(ctx)
	if err != nil {
		a.debug.Log("subscribe failed", op, err)
		return &adapter.UnavailableError{Op: op, Err: err}
	}
	err = a.publish(ctx, m)
	if err != nil {
		a.debug.Log("publish failed", op, err)
		return &adapter.UnavailableError{Op: op, Err: err}
	}
	return nil
}

func (a *clusterAdapter) publish(ctx context.Context, m *message) error {
	payload, err := a.json.Marshal(m)
	if err != nil {
		return err
	}
	return a.config.Broker.Publish(ctx, a.channel, payload)
}

func (a *clusterAdapter) onMessage(payload []byte) {
	var m message
	err := a.json.Unmarshal(payload, &m)
	if err != nil {
		a.debug.Log("invalid message", err)
		return
	}
	if m.UID == a.uid || m.UID == "" {
		return
	}

	switch m.Type {
	case messageTypeBroadcast:
		targets := a.local.Targets(m.broadcastOptions())
		adapter.Deliver(a.sockets, targets, []byte(m.Packet))
	case messageTypeJoin:
		a.remote(m.UID).Join(m.SID, m.Rooms...)
	case messageTypeLeave:
		remote := a.remote(m.UID)
		for _, room := range m.Rooms {
			remote.Leave(m.SID, room)
		}
	case messageTypeRemove:
		a.remote(m.UID).Remove(m.SID)
	case messageTypeSync:
		a.remote(m.UID)
		// The broker may be delivering on the goroutine of one of our own
		// operations, which holds opMu.
		a.mu.Lock()
		if !a.closed {
			a.snapshots.Add(1)
			go func() {
				defer a.snapshots.Done()
				a.sendSnapshot()
			}()
		}
		a.mu.Unlock()
	case messageTypeSnapshot:
		restored := adapter.NewMembership()
		for sid, rooms := range m.Snapshot {
			restored.Join(sid, rooms...)
		}
		a.mu.Lock()
		a.remotes[m.UID] = restored
		a.mu.Unlock()
	case messageTypeBye:
		a.mu.Lock()
		delete(a.remotes, m.UID)
		a.mu.Unlock()
	default:
		a.debug.Log("unknown message type", m.Type)
	}
}

func (a *clusterAdapter) sendSnapshot() {
	a.opMu.Lock()
	defer a.opMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.config.SubscribeTimeout)
	defer cancel()

	err := a.publish(ctx, &message{
		UID:      a.uid,
		Type:     messageTypeSnapshot,
		Snapshot: a.local.Snapshot(),
	})
	if err != nil {
		a.debug.Log("snapshot failed", err)
	}
}
