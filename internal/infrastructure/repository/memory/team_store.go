package memory

import (
	"sort"

	"github.com/riskibarqy/dota-tracker/internal/domain/team"
)

// TeamStore holds the tracked-team records keyed by (teamID, leagueID).
type TeamStore struct {
	*Store[team.Key, team.TrackedTeam]
}

func NewTeamStore() *TeamStore {
	return &TeamStore{Store: NewStore[team.Key, team.TrackedTeam]()}
}

// Mutate clones the record under key, applies fn, and writes the clone
// back. Reports false when the record is absent. The clone keeps the
// no-in-place-mutation discipline without every caller spelling it out.
func (s *TeamStore) Mutate(key team.Key, fn func(*team.TrackedTeam)) bool {
	s.mu.Lock()
	old := *s.snap.Load()
	current, ok := old[key]
	if !ok {
		s.mu.Unlock()
		return false
	}

	next := make(map[team.Key]team.TrackedTeam, len(old))
	for k, v := range old {
		next[k] = v
	}
	clone := current.Clone()
	fn(&clone)
	next[key] = clone
	s.snap.Store(&next)
	s.mu.Unlock()
	s.notify()
	return true
}

// List returns all records ordered by creation time, then key, for stable
// presentation.
func (s *TeamStore) List() []team.TrackedTeam {
	snap := s.Snapshot()
	out := make([]team.TrackedTeam, 0, len(snap))
	for _, record := range snap {
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		if out[i].TeamID != out[j].TeamID {
			return out[i].TeamID < out[j].TeamID
		}
		return out[i].LeagueID < out[j].LeagueID
	})
	return out
}
