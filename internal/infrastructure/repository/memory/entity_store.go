package memory

import (
	"github.com/riskibarqy/dota-tracker/internal/domain/match"
	"github.com/riskibarqy/dota-tracker/internal/domain/player"
)

// Entry wraps an entity value with its fetch state. "Settled" means present
// and not loading; an errored entry is settled (the fetch finished, badly).
type Entry[V any] struct {
	Loading bool
	Err     error
	Value   V
}

func (e Entry[V]) Settled() bool {
	return !e.Loading
}

// EntityStore is a copy-on-write id-keyed store for globally shared
// entities (matches, players).
type EntityStore[V any] struct {
	*Store[int64, Entry[V]]
}

func newEntityStore[V any]() *EntityStore[V] {
	return &EntityStore[V]{Store: NewStore[int64, Entry[V]]()}
}

// Add marks id as loading and reports whether the caller now owns the
// fetch. An entry that is already loading or resolved is left alone; an
// errored entry is reset so the new caller retries it.
func (s *EntityStore[V]) Add(id int64) bool {
	if id <= 0 {
		return false
	}

	s.mu.Lock()
	old := *s.snap.Load()
	if current, ok := old[id]; ok && (current.Loading || current.Err == nil) {
		s.mu.Unlock()
		return false
	}
	next := make(map[int64]Entry[V], len(old)+1)
	for k, v := range old {
		next[k] = v
	}
	next[id] = Entry[V]{Loading: true}
	s.snap.Store(&next)
	s.mu.Unlock()
	s.notify()
	return true
}

// Resolve stores the fetched value and clears the loading flag.
func (s *EntityStore[V]) Resolve(id int64, value V) {
	s.Upsert(id, Entry[V]{Value: value})
}

// Fail records a fetch failure scoped to this entity only.
func (s *EntityStore[V]) Fail(id int64, err error) {
	s.Upsert(id, Entry[V]{Err: err})
}

// MatchStore implements the match store handle consumed by the match
// processor: AddMatch / RemoveMatch / GetMatch plus resolution.
type MatchStore struct {
	*EntityStore[match.Match]
}

func NewMatchStore() *MatchStore {
	return &MatchStore{EntityStore: newEntityStore[match.Match]()}
}

func (s *MatchStore) AddMatch(id int64) bool  { return s.Add(id) }
func (s *MatchStore) RemoveMatch(id int64)    { s.Remove(id) }
func (s *MatchStore) GetMatch(id int64) (Entry[match.Match], bool) {
	return s.Get(id)
}

// PlayerStore implements the player store handle: AddPlayer / RemovePlayer.
type PlayerStore struct {
	*EntityStore[player.Player]
}

func NewPlayerStore() *PlayerStore {
	return &PlayerStore{EntityStore: newEntityStore[player.Player]()}
}

func (s *PlayerStore) AddPlayer(id int64) bool { return s.Add(id) }
func (s *PlayerStore) RemovePlayer(id int64)   { s.Remove(id) }
