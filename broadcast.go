package sio

import (
	"context"
	"errors"

	"github.com/karagenc/sio-core/adapter"
	"github.com/karagenc/sio-core/parser"
)

// BroadcastOperator selects the target sockets of a namespace.
// Every modifier returns a new operator; the receiver is left as is.
type BroadcastOperator struct {
	nsp  *Namespace
	opts *adapter.BroadcastOptions
}

func newBroadcastOperator(nsp *Namespace) *BroadcastOperator {
	return &BroadcastOperator{
		nsp:  nsp,
		opts: adapter.NewBroadcastOptions(),
	}
}

func (b *BroadcastOperator) clone() *BroadcastOperator {
	return &BroadcastOperator{
		nsp:  b.nsp,
		opts: b.opts.Clone(),
	}
}

// Sets a modifier for a subsequent event emission that the event
// will only be broadcast to clients that have joined the given room.
//
// To emit to multiple rooms, you can call To several times.
func (b *BroadcastOperator) To(room ...Room) *BroadcastOperator {
	n := b.clone()
	for _, r := range room {
		n.opts.Rooms.Add(r)
	}
	return n
}

// Alias of To(...)
func (b *BroadcastOperator) In(room ...Room) *BroadcastOperator {
	return b.To(room...)
}

// Sets a modifier for a subsequent event emission that the event
// will only be broadcast to clients that have not joined the given rooms.
func (b *BroadcastOperator) Except(room ...Room) *BroadcastOperator {
	n := b.clone()
	for _, r := range room {
		n.opts.Except.Add(r)
	}
	return n
}

// Sets a modifier for a subsequent event emission that the event
// will not be delivered to the given sockets.
func (b *BroadcastOperator) ExceptSockets(sid ...SocketID) *BroadcastOperator {
	n := b.clone()
	for _, s := range sid {
		n.opts.ExceptSockets.Add(s)
	}
	return n
}

// Sets a modifier for a subsequent event emission that
// the event data will only be broadcast to the current node.
func (b *BroadcastOperator) Local() *BroadcastOperator {
	n := b.clone()
	n.opts.Flags.Local = true
	return n
}

// Emits an event to all chosen clients.
func (b *BroadcastOperator) Emit(v ...any) error {
	ctx, cancel := b.nsp.server.adapterContext()
	defer cancel()
	return b.EmitContext(ctx, v...)
}

func (b *BroadcastOperator) EmitContext(ctx context.Context, v ...any) error {
	packet := parser.NewEvent(b.nsp.Name(), v)
	return b.nsp.adapter.Broadcast(ctx, packet, b.opts.Clone())
}

// Gets the matching socket instances connected to this node.
func (b *BroadcastOperator) FetchSockets() []ServerSocket {
	sids := b.nsp.adapter.Sockets(b.opts.Rooms)
	if b.opts.Except.Cardinality() > 0 {
		sids = sids.Difference(b.nsp.adapter.Sockets(b.opts.Except))
	}
	if b.opts.ExceptSockets.Cardinality() > 0 {
		sids = sids.Difference(b.opts.ExceptSockets)
	}

	sockets := make([]ServerSocket, 0, sids.Cardinality())
	sids.Each(func(sid SocketID) bool {
		socket, ok := b.nsp.sockets.get(sid)
		if ok {
			sockets = append(sockets, socket)
		}
		return false
	})
	return sockets
}

// Makes the matching socket instances join the specified rooms.
func (b *BroadcastOperator) SocketsJoin(room ...Room) error {
	var errs []error
	for _, socket := range b.FetchSockets() {
		err := socket.Join(room...)
		if err != nil && !errors.Is(err, ErrInvalidState) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Makes the matching socket instances leave the specified rooms.
func (b *BroadcastOperator) SocketsLeave(room ...Room) error {
	var errs []error
	for _, socket := range b.FetchSockets() {
		for _, r := range room {
			err := socket.Leave(r)
			if err != nil && !errors.Is(err, ErrInvalidState) {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Makes the matching socket instances disconnect.
//
// If value of close is true, closes the underlying connection.
// Otherwise, it just disconnects the namespace.
func (b *BroadcastOperator) DisconnectSockets(close bool) {
	for _, socket := range b.FetchSockets() {
		socket.Disconnect(close)
	}
}
