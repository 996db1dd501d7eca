package adapter

import (
	"github.com/karagenc/sio-core/internal/sync"
	"github.com/karagenc/sio-core/parser"
	jsonparser "github.com/karagenc/sio-core/parser/json"
	"github.com/karagenc/sio-core/parser/json/serializer/stdjson"
)

type testNamespace struct {
	name  string
	store *testSocketStore
}

func (n *testNamespace) Name() string { return n.name }
func (n *testNamespace) SocketStore() SocketStore { return n.store }
func (n *testNamespace) ParserCreator() parser.Creator { return jsonparser.NewCreator(stdjson.New()) }

type testSocketStore struct {
	mu       sync.Mutex
	live     map[SocketID]bool
	received map[SocketID][]string
}

func newTestSocketStore(sids ...SocketID) *testSocketStore {
	s := &testSocketStore{
		live:     make(map[SocketID]bool),
		received: make(map[SocketID][]string),
	}
	for _, sid := range sids {
		s.live[sid] = true
	}
	return s
}

func (s *testSocketStore) SendBuffer(sid SocketID, buffer []byte) (ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live[sid] {
		return false
	}
	s.received[sid] = append(s.received[sid], string(buffer))
	return true
}

func (s *testSocketStore) kill(sid SocketID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.live, sid)
}

func (s *testSocketStore) get(sid SocketID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received[sid]...)
}

// Number of sockets that received at least one buffer.
func (s *testSocketStore) receivers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.received {
		if len(r) > 0 {
			n++
		}
	}
	return n
}

func newTestInMemoryAdapter(sids ...SocketID) (*inMemoryAdapter, *testSocketStore) {
	store := newTestSocketStore(sids...)
	creator := NewInMemoryAdapterCreator()
	return creator(&testNamespace{name: "/", store: store}).(*inMemoryAdapter), store
}
