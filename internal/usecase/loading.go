package usecase

import (
	"github.com/riskibarqy/dota-tracker/internal/infrastructure/repository/memory"
)

// SubtreeSettled reports whether every match the team references, and every
// participant of each resolved match, has finished loading. Errored entries
// count as settled; a fetch that finished badly is still finished. This is
// the sole input to clearing a team's loading flag.
func SubtreeSettled(matchIDs []int64, matches *memory.MatchStore, players *memory.PlayerStore) bool {
	matchSnap := matches.Snapshot()
	playerSnap := players.Snapshot()

	for _, id := range matchIDs {
		entry, ok := matchSnap[id]
		if !ok || entry.Loading {
			return false
		}
		if entry.Err != nil {
			continue
		}
		for _, accountID := range entry.Value.ParticipantIDs() {
			p, ok := playerSnap[accountID]
			if !ok || p.Loading {
				return false
			}
		}
	}
	return true
}
