package sio

import "github.com/karagenc/sio-core/internal/sync"

type namespaceSocketStore struct {
	sockets map[SocketID]*serverSocket
	mu      sync.Mutex
}

func newNamespaceSocketStore() *namespaceSocketStore {
	return &namespaceSocketStore{
		sockets: make(map[SocketID]*serverSocket),
	}
}

func (s *namespaceSocketStore) get(sid SocketID) (so *serverSocket, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	so, ok = s.sockets[sid]
	return so, ok
}

// Hand an encoded packet to a specific socket.
func (s *namespaceSocketStore) SendBuffer(sid SocketID, buffer []byte) (ok bool) {
	socket, ok := s.get(sid)
	if !ok {
		return false
	}
	socket.deliver(buffer)
	return true
}

func (s *namespaceSocketStore) getAll() []ServerSocket {
	s.mu.Lock()
	defer s.mu.Unlock()

	sockets := make([]ServerSocket, len(s.sockets))
	i := 0
	for _, s := range s.sockets {
		sockets[i] = s
		i++
	}
	return sockets
}

func (s *namespaceSocketStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sockets)
}

func (s *namespaceSocketStore) set(so *serverSocket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets[so.ID()] = so
}

func (s *namespaceSocketStore) remove(sid SocketID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sockets, sid)
}
