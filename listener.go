package reactor

import (
	"fmt"
	"net"
	"sync"
)

// ListenerEntry is a (local-endpoint, open-socket, tag) triple. Tag is
// user-owned opaque data. Bind never sets it, and the accept loop does not
// pass it to the SessionFactory; it is reachable only through the entry
// itself (ListenerSet.Get or Snapshot).
type ListenerEntry struct {
	Addr     net.Addr
	Listener net.Listener
	Tag      any
}

// ListenerSet maps a bound local endpoint to its open listening socket. It
// is mutated only by Bind/Unbind on the caller's goroutine; AcceptLoop only
// ever reads the single entry it owns, so no lock is needed there — the
// lock here exists to let Bind/Unbind race safely against a concurrent
// read of Snapshot (e.g. from an idle sweep enumerating listeners).
type ListenerSet struct {
	mu      sync.RWMutex
	entries map[string]*ListenerEntry
}

// NewListenerSet returns an empty set.
func NewListenerSet() *ListenerSet {
	return &ListenerSet{entries: make(map[string]*ListenerEntry)}
}

// Len reports how many listeners are currently installed.
func (s *ListenerSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Get returns the entry bound at addr, if any.
func (s *ListenerSet) Get(addr net.Addr) (*ListenerEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[addr.String()]
	return e, ok
}

// Snapshot returns a point-in-time copy of all entries, safe to range over
// without holding the set's lock.
func (s *ListenerSet) Snapshot() []*ListenerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*ListenerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out
}

func (s *ListenerSet) install(e *ListenerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[e.Addr.String()] = e
}

func (s *ListenerSet) remove(addr net.Addr) (*ListenerEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := addr.String()
	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return e, ok
}

// resolveWildcard substitutes ":0" for a nil endpoint, matching "the
// wildcard address when null" from the bind algorithm.
func resolveWildcard(addr net.Addr) (*net.TCPAddr, error) {
	if addr == nil {
		return &net.TCPAddr{Port: 0}, nil
	}
	tcpAddr, ok := addr.(*net.TCPAddr)
	if ok {
		return tcpAddr, nil
	}
	resolved, err := net.ResolveTCPAddr("tcp", addr.String())
	if err != nil {
		return nil, fmt.Errorf("reactor: resolve %s: %w", addr, err)
	}
	return resolved, nil
}
