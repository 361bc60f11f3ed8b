// Package memory implements the in-process entity stores. Every write
// replaces the whole map (copy-on-write), so a reader holding a snapshot
// sees a frozen, consistent view and change detection can compare map
// identity.
package memory

import (
	"sync"
	"sync/atomic"
)

// Store is a keyed copy-on-write collection. Values are stored by value;
// callers must never mutate a map obtained from Snapshot.
type Store[K comparable, V any] struct {
	mu     sync.Mutex
	snap   atomic.Pointer[map[K]V]
	signal chan struct{}
}

func NewStore[K comparable, V any]() *Store[K, V] {
	s := &Store[K, V]{signal: make(chan struct{}, 1)}
	empty := make(map[K]V)
	s.snap.Store(&empty)
	return s
}

func (s *Store[K, V]) Get(key K) (V, bool) {
	m := *s.snap.Load()
	v, ok := m[key]
	return v, ok
}

func (s *Store[K, V]) Upsert(key K, value V) {
	s.mu.Lock()
	old := *s.snap.Load()
	next := make(map[K]V, len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[key] = value
	s.snap.Store(&next)
	s.mu.Unlock()
	s.notify()
}

func (s *Store[K, V]) Remove(key K) bool {
	s.mu.Lock()
	old := *s.snap.Load()
	if _, ok := old[key]; !ok {
		s.mu.Unlock()
		return false
	}
	next := make(map[K]V, len(old))
	for k, v := range old {
		if k != key {
			next[k] = v
		}
	}
	s.snap.Store(&next)
	s.mu.Unlock()
	s.notify()
	return true
}

// Snapshot returns the current map. The map is immutable by convention;
// two calls return the identical map unless a write happened in between.
func (s *Store[K, V]) Snapshot() map[K]V {
	return *s.snap.Load()
}

func (s *Store[K, V]) Len() int {
	return len(*s.snap.Load())
}

// Watch returns the coalesced change channel. One buffered signal stands
// for "something changed since you last looked".
func (s *Store[K, V]) Watch() <-chan struct{} {
	return s.signal
}

func (s *Store[K, V]) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}
