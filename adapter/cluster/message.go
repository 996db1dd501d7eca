package cluster

import "github.com/karagenc/sio-core/adapter"

type messageType string

const (
	messageTypeBroadcast messageType = "broadcast"
	messageTypeJoin      messageType = "join"
	messageTypeLeave     messageType = "leave"
	messageTypeRemove    messageType = "remove"

	// Sent by a node when it starts; every other node answers with a snapshot.
	messageTypeSync     messageType = "sync"
	messageTypeSnapshot messageType = "snapshot"
	// Sent by a node when its adapter is closed.
	messageTypeBye messageType = "bye"
)

type message struct {
	UID  string      `json:"uid"`
	Type messageType `json:"type"`

	// Encoded socket.io packet (broadcast only).
	Packet        string             `json:"packet,omitempty"`
	Rooms         []adapter.Room     `json:"rooms,omitempty"`
	Except        []adapter.Room     `json:"except,omitempty"`
	ExceptSockets []adapter.SocketID `json:"exceptSockets,omitempty"`

	SID adapter.SocketID `json:"sid,omitempty"`

	Snapshot map[adapter.SocketID][]adapter.Room `json:"snapshot,omitempty"`
}

func (m *message) broadcastOptions() *adapter.BroadcastOptions {
	opts := adapter.NewBroadcastOptions()
	for _, room := range m.Rooms {
		opts.Rooms.Add(room)
	}
	for _, room := range m.Except {
		opts.Except.Add(room)
	}
	for _, sid := range m.ExceptSockets {
		opts.ExceptSockets.Add(sid)
	}
	return opts
}

func newBroadcastMessage(uid string, buffer []byte, opts *adapter.BroadcastOptions) *message {
	m := &message{
		UID:    uid,
		Type:   messageTypeBroadcast,
		Packet: string(buffer),
	}
	if opts != nil {
		if opts.Rooms != nil {
			m.Rooms = opts.Rooms.ToSlice()
		}
		if opts.Except != nil {
			m.Except = opts.Except.ToSlice()
		}
		if opts.ExceptSockets != nil {
			m.ExceptSockets = opts.ExceptSockets.ToSlice()
		}
	}
	return m
}
