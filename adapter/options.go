package adapter

import mapset "github.com/deckarep/golang-set/v2"

type BroadcastOptions struct {
	// Target the union of these rooms. Empty means every socket.
	Rooms mapset.Set[Room]
	// Skip the members of these rooms.
	Except mapset.Set[Room]
	// Skip these sockets.
	ExceptSockets mapset.Set[SocketID]

	Flags BroadcastFlags
}

type BroadcastFlags struct {
	// Only deliver to sockets of the current node (when scaling to multiple nodes).
	Local bool
}

func NewBroadcastOptions() *BroadcastOptions {
	return &BroadcastOptions{
		Rooms:         mapset.NewSet[Room](),
		Except:        mapset.NewSet[Room](),
		ExceptSockets: mapset.NewSet[SocketID](),
	}
}

// Clone returns a deep copy. Nil sets are replaced by empty ones.
func (o *BroadcastOptions) Clone() *BroadcastOptions {
	if o == nil {
		return NewBroadcastOptions()
	}
	return &BroadcastOptions{
		Rooms:         cloneOrNew(o.Rooms),
		Except:        cloneOrNew(o.Except),
		ExceptSockets: cloneOrNew(o.ExceptSockets),
		Flags:         o.Flags,
	}
}

func cloneOrNew[T comparable](s mapset.Set[T]) mapset.Set[T] {
	if s == nil {
		return mapset.NewSet[T]()
	}
	return s.Clone()
}

func cardinality[T comparable](s mapset.Set[T]) int {
	if s == nil {
		return 0
	}
	return s.Cardinality()
}
