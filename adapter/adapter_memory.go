package adapter

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/karagenc/sio-core/parser"
)

// This is the equivalent of the default in-memory adapter of Socket.IO.
// Have a look at: https://github.com/socketio/socket.io-adapter
type inMemoryAdapter struct {
	members *Membership
	sockets SocketStore
	parser  parser.Codec
}

func NewInMemoryAdapterCreator() Creator {
	return func(nsp Namespace) Adapter {
		return &inMemoryAdapter{
			members: NewMembership(),
			sockets: nsp.SocketStore(),
			parser:  nsp.ParserCreator()(),
		}
	}
}

func (a *inMemoryAdapter) ServerCount() int { return 1 }

func (a *inMemoryAdapter) Close() error { return nil }

func (a *inMemoryAdapter) AddSocket(_ context.Context, sid SocketID) error {
	a.members.Add(sid)
	return nil
}

func (a *inMemoryAdapter) Join(_ context.Context, sid SocketID, rooms ...Room) error {
	a.members.Join(sid, rooms...)
	return nil
}

func (a *inMemoryAdapter) Leave(_ context.Context, sid SocketID, room Room) error {
	a.members.Leave(sid, room)
	return nil
}

func (a *inMemoryAdapter) RemoveSocket(_ context.Context, sid SocketID) error {
	a.members.Remove(sid)
	return nil
}

func (a *inMemoryAdapter) Broadcast(_ context.Context, packet *parser.Packet, opts *BroadcastOptions) error {
	buffer, err := a.parser.Encode(packet)
	if err != nil {
		return fmt.Errorf("adapter: encode: %w", err)
	}
	Deliver(a.sockets, a.members.Targets(opts), buffer)
	return nil
}

func (a *inMemoryAdapter) Sockets(rooms mapset.Set[Room]) (sids mapset.Set[SocketID]) {
	return a.members.Sockets(rooms)
}

func (a *inMemoryAdapter) SocketRooms(sid SocketID) (rooms mapset.Set[Room], ok bool) {
	return a.members.SocketRooms(sid)
}

func (a *inMemoryAdapter) Rooms() (rooms mapset.Set[Room]) {
	return a.members.Rooms()
}

// Deliver hands the same encoded buffer to every target.
// Targets without a live socket are skipped.
// No adapter lock may be held while calling Deliver.
func Deliver(store SocketStore, targets []SocketID, buffer []byte) (delivered int) {
	for _, sid := range targets {
		if store.SendBuffer(sid, buffer) {
			delivered++
		}
	}
	return
}
