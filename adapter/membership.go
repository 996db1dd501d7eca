package adapter

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/karagenc/sio-core/internal/sync"
)

// Membership is the bidirectional socket/room graph.
//
// Both maps live behind one mutex: a socket is in rooms[r] if and only if
// r is in sids[socket], and no reader ever observes one map without the other.
// Rooms without members are deleted.
type Membership struct {
	mu    sync.RWMutex
	rooms map[Room]mapset.Set[SocketID]
	sids  map[SocketID]mapset.Set[Room]
}

func NewMembership() *Membership {
	return &Membership{
		rooms: make(map[Room]mapset.Set[SocketID]),
		sids:  make(map[SocketID]mapset.Set[Room]),
	}
}

// Add registers the socket together with its self-room.
func (m *Membership) Add(sid SocketID) {
	m.Join(sid, Room(sid))
}

func (m *Membership) Join(sid SocketID, rooms ...Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sids[sid]
	if !ok {
		s = mapset.NewThreadUnsafeSet[Room]()
		m.sids[sid] = s
	}

	for _, room := range rooms {
		s.Add(room)

		r, ok := m.rooms[room]
		if !ok {
			r = mapset.NewThreadUnsafeSet[SocketID]()
			m.rooms[room] = r
		}
		r.Add(sid)
	}
}

// Leave removes sid from room. The self-room can only be dropped by Remove.
func (m *Membership) Leave(sid SocketID, room Room) {
	if room == Room(sid) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sids[sid]
	if !ok {
		return
	}
	s.Remove(room)
	m.deleteFromRoom(sid, room)
}

// Remove drops the socket from every room it is in, self-room included.
// It returns the rooms the socket was in.
func (m *Membership) Remove(sid SocketID) (rooms []Room) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sids[sid]
	if !ok {
		return nil
	}

	rooms = s.ToSlice()
	for _, room := range rooms {
		m.deleteFromRoom(sid, room)
	}
	delete(m.sids, sid)
	return rooms
}

func (m *Membership) deleteFromRoom(sid SocketID, room Room) {
	r, ok := m.rooms[room]
	if ok {
		r.Remove(sid)
		if r.Cardinality() == 0 {
			delete(m.rooms, room)
		}
	}
}

func (m *Membership) Has(sid SocketID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.sids[sid]
	return ok
}

func (m *Membership) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sids)
}

// Targets computes the deduplicated set of sockets selected by opts
// from a single snapshot of the graph. A nil opts selects every socket.
func (m *Membership) Targets(opts *BroadcastOptions) []SocketID {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		rooms         mapset.Set[Room]
		exceptSockets mapset.Set[SocketID]
	)
	if opts != nil {
		rooms = opts.Rooms
		exceptSockets = opts.ExceptSockets
	}
	except := m.computeExceptSids(opts)

	skip := func(sid SocketID) bool {
		return except.Contains(sid) || (exceptSockets != nil && exceptSockets.Contains(sid))
	}

	// If rooms were specified, we only use sockets in those rooms.
	// Otherwise, every known socket is a candidate.
	if cardinality(rooms) > 0 {
		ids := mapset.NewThreadUnsafeSet[SocketID]()
		targets := make([]SocketID, 0)
		rooms.Each(func(room Room) bool {
			r, ok := m.rooms[room]
			if !ok {
				return false
			}
			r.Each(func(sid SocketID) bool {
				if !ids.Contains(sid) && !skip(sid) {
					ids.Add(sid)
					targets = append(targets, sid)
				}
				return false
			})
			return false
		})
		return targets
	}

	targets := make([]SocketID, 0, len(m.sids))
	for sid := range m.sids {
		if !skip(sid) {
			targets = append(targets, sid)
		}
	}
	return targets
}

// Beware that the return value 'exceptSids' is thread unsafe.
// The caller must hold m.mu.
func (m *Membership) computeExceptSids(opts *BroadcastOptions) (exceptSids mapset.Set[SocketID]) {
	exceptSids = mapset.NewThreadUnsafeSet[SocketID]()
	if opts == nil || cardinality(opts.Except) == 0 {
		return
	}

	opts.Except.Each(func(room Room) bool {
		r, ok := m.rooms[room]
		if ok {
			r.Each(func(sid SocketID) bool {
				exceptSids.Add(sid)
				return false
			})
		}
		return false
	})
	return
}

// The return value 'sids' is a thread safe mapset.Set.
func (m *Membership) Sockets(rooms mapset.Set[Room]) (sids mapset.Set[SocketID]) {
	opts := NewBroadcastOptions()
	if rooms != nil {
		opts.Rooms = rooms
	}
	return mapset.NewSet(m.Targets(opts)...)
}

// The return value 'rooms' is a thread safe mapset.Set.
func (m *Membership) SocketRooms(sid SocketID) (rooms mapset.Set[Room], ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sids[sid]
	if !ok {
		return nil, false
	}
	return mapset.NewSet(s.ToSlice()...), true
}

// The return value 'rooms' is a thread safe mapset.Set.
func (m *Membership) Rooms() (rooms mapset.Set[Room]) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rooms = mapset.NewSetWithSize[Room](len(m.rooms))
	for room := range m.rooms {
		rooms.Add(room)
	}
	return
}

// Snapshot copies the socket to rooms side of the graph.
func (m *Membership) Snapshot() map[SocketID][]Room {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := make(map[SocketID][]Room, len(m.sids))
	for sid, rooms := range m.sids {
		snapshot[sid] = rooms.ToSlice()
	}
	return snapshot
}

// Consistent reports whether both maps agree. Used by tests.
func (m *Membership) Consistent() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for sid, rooms := range m.sids {
		ok := true
		rooms.Each(func(room Room) bool {
			r, found := m.rooms[room]
			if !found || !r.Contains(sid) {
				ok = false
				return true
			}
			return false
		})
		if !ok {
			return false
		}
	}
	for room, sids := range m.rooms {
		if sids.Cardinality() == 0 {
			return false
		}
		ok := true
		sids.Each(func(sid SocketID) bool {
			s, found := m.sids[sid]
			if !found || !s.Contains(room) {
				ok = false
				return true
			}
			return false
		})
		if !ok {
			return false
		}
	}
	return true
}
