package memory

import (
	"sync"

	"github.com/riskibarqy/dota-tracker/internal/domain/team"
)

// SelectionStore remembers which tracked team the UI currently focuses.
type SelectionStore struct {
	mu     sync.Mutex
	active team.Key
	set    bool
}

func NewSelectionStore() *SelectionStore {
	return &SelectionStore{}
}

func (s *SelectionStore) Active() (team.Key, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, s.set
}

func (s *SelectionStore) Set(key team.Key) {
	s.mu.Lock()
	s.active = key
	s.set = true
	s.mu.Unlock()
}

// Clear drops the selection only when it points at key.
func (s *SelectionStore) Clear(key team.Key) {
	s.mu.Lock()
	if s.set && s.active == key {
		s.set = false
		s.active = team.Key{}
	}
	s.mu.Unlock()
}
