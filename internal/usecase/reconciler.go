package usecase

import (
	"sort"

	"github.com/riskibarqy/dota-tracker/internal/domain/team"
)

// MergeManualIntoFetched re-applies the manual overrides held by existing
// onto a freshly built record. Fetched data wins on conflict, except the
// side of a manual match, which the user's declaration keeps unless the
// fetched participation already carries a known side.
func MergeManualIntoFetched(existing, fresh team.TrackedTeam) team.TrackedTeam {
	merged := fresh.Clone()
	if merged.Matches == nil {
		merged.Matches = make(map[int64]team.MatchParticipation)
	}
	if merged.ManualMatches == nil {
		merged.ManualMatches = make(map[int64]team.Side)
	}
	if merged.Players == nil {
		merged.Players = make(map[int64]team.RosterPlayer)
	}

	for id, side := range existing.ManualMatches {
		merged.ManualMatches[id] = side

		current, ok := merged.Matches[id]
		if !ok {
			merged.Matches[id] = team.MatchParticipation{
				MatchID:   id,
				Opponent:  team.OpponentUnknown,
				Side:      side,
				PickOrder: team.PickUnknown,
			}
			continue
		}
		if current.Side == team.SideUnknown || current.Side == "" {
			current.Side = side
			merged.Matches[id] = current
		}
	}

	for _, accountID := range existing.ManualPlayers {
		if !merged.HasManualPlayer(accountID) {
			merged.ManualPlayers = append(merged.ManualPlayers, accountID)
		}
		if _, ok := merged.Players[accountID]; ok {
			continue
		}
		if known, ok := existing.Players[accountID]; ok {
			known.Manual = true
			merged.Players[accountID] = known
			continue
		}
		merged.Players[accountID] = team.RosterPlayer{
			AccountID: accountID,
			Name:      team.OpponentLoading,
			Manual:    true,
		}
	}
	sort.Slice(merged.ManualPlayers, func(i, j int) bool {
		return merged.ManualPlayers[i] < merged.ManualPlayers[j]
	})

	merged.RecomputePerformance()
	return merged
}
