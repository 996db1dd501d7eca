package sio

import (
	"sort"

	"github.com/karagenc/sio-core/internal/sync"
)

// We could've used mapset instead of this,
// but mapset doesn't have an equivalent of the getOrCreate method.
type namespaceStore struct {
	nsps map[string]*namespaceEntry
	mu   sync.Mutex
}

type namespaceEntry struct {
	nsp   *Namespace
	ready chan struct{}
}

func (e *namespaceEntry) wait() *Namespace {
	<-e.ready
	return e.nsp
}

func newNamespaceStore() *namespaceStore {
	return &namespaceStore{
		nsps: make(map[string]*namespaceEntry),
	}
}

// A namespace is only ever created once per name. create runs without
// the store locked; concurrent callers for the same name wait for it.
func (s *namespaceStore) getOrCreate(name string, create func(name string) *Namespace) (nsp *Namespace, created bool) {
	s.mu.Lock()
	e, ok := s.nsps[name]
	if ok {
		s.mu.Unlock()
		return e.wait(), false
	}
	e = &namespaceEntry{ready: make(chan struct{})}
	s.nsps[name] = e
	s.mu.Unlock()

	defer close(e.ready)
	e.nsp = create(name)
	return e.nsp, true
}

func (s *namespaceStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.nsps)
}

// Sorted by name.
func (s *namespaceStore) getAll() []*Namespace {
	s.mu.Lock()
	entries := make([]*namespaceEntry, 0, len(s.nsps))
	for _, e := range s.nsps {
		entries = append(entries, e)
	}
	s.mu.Unlock()

	nsps := make([]*Namespace, 0, len(entries))
	for _, e := range entries {
		nsps = append(nsps, e.wait())
	}

	sort.Slice(nsps, func(i, j int) bool { return nsps[i].name < nsps[j].name })
	return nsps
}
