package usecase

import (
	"context"

	"github.com/riskibarqy/dota-tracker/internal/domain/team"
	"github.com/riskibarqy/dota-tracker/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/dota-tracker/internal/platform/logging"
)

// Watcher reacts to store changes: it upgrades placeholder participations
// and roster names from the shared entity stores and clears team loading
// flags once their subtree settles. Sweeps are idempotent, so running one
// eagerly after a store signal and again later changes nothing.
type Watcher struct {
	teams   *memory.TeamStore
	matches *memory.MatchStore
	players *memory.PlayerStore
	logger  *logging.Logger
}

func NewWatcher(
	teams *memory.TeamStore,
	matches *memory.MatchStore,
	players *memory.PlayerStore,
	logger *logging.Logger,
) *Watcher {
	if logger == nil {
		logger = logging.Default()
	}
	return &Watcher{teams: teams, matches: matches, players: players, logger: logger}
}

// Run sweeps on every coalesced store signal until ctx is done. A sweep
// that changes a team record fires the team store's signal, which triggers
// one more sweep; that one finds nothing to do and the loop quiesces.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.teams.Watch():
		case <-w.matches.Watch():
		case <-w.players.Watch():
		}
		w.Sweep()
	}
}

// Sweep upgrades every team record once against the current entity store
// snapshots.
func (w *Watcher) Sweep() {
	for key, record := range w.teams.Snapshot() {
		w.sweepTeam(key, record)
	}
}

func (w *Watcher) sweepTeam(key team.Key, record team.TrackedTeam) {
	matchSnap := w.matches.Snapshot()
	playerSnap := w.players.Snapshot()

	upgrades := make(map[int64]team.MatchParticipation)
	for id, part := range record.Matches {
		if !part.Placeholder() {
			continue
		}
		entry, ok := matchSnap[id]
		if !ok || entry.Loading || entry.Err != nil {
			continue
		}
		next := BuildParticipation(entry.Value, record.TeamID, part.Side)
		if next.PickOrder == team.PickUnknown && part.PickOrder != "" {
			next.PickOrder = part.PickOrder
		}
		upgrades[id] = next
	}

	rosterUpgrades := make(map[int64]team.RosterPlayer)
	for accountID, rosterPlayer := range record.Players {
		if rosterPlayer.Name != team.OpponentLoading {
			continue
		}
		entry, ok := playerSnap[accountID]
		if !ok || entry.Loading || entry.Err != nil {
			continue
		}
		if entry.Value.Name == "" {
			continue
		}
		rosterPlayer.Name = entry.Value.Name
		rosterUpgrades[accountID] = rosterPlayer
	}

	clearLoading := record.Loading && SubtreeSettled(record.MatchIDs(), w.matches, w.players)
	if len(upgrades) == 0 && len(rosterUpgrades) == 0 && !clearLoading {
		return
	}

	w.teams.Mutate(key, func(t *team.TrackedTeam) {
		for id, next := range upgrades {
			if current, ok := t.Matches[id]; ok && current.Placeholder() {
				t.Matches[id] = next
			}
		}
		for accountID, next := range rosterUpgrades {
			if current, ok := t.Players[accountID]; ok && current.Name == team.OpponentLoading {
				next.Manual = current.Manual
				t.Players[accountID] = next
			}
		}
		if len(upgrades) > 0 {
			t.RecomputePerformance()
		}
		if t.Loading && SubtreeSettled(t.MatchIDs(), w.matches, w.players) {
			t.Loading = false
		}
	})
}
