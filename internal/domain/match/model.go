// Package match holds the globally shared match entity. One match is
// fetched once and consumed by every team that participated in it.
package match

import "time"

// PlayerSlot is one participant of a match.
type PlayerSlot struct {
	AccountID int64
	Name      string
	IsRadiant bool
}

type Match struct {
	ID           int64
	LeagueID     int64
	RadiantWin   bool
	DurationSec  int
	StartTime    time.Time
	RadiantTeam  int64
	DireTeam     int64
	RadiantName  string
	DireName     string
	FirstPick    int64 // team id of the first-picking side, 0 when unknown
	Participants []PlayerSlot
}

// ParticipantIDs returns the account ids of all known participants,
// skipping anonymous slots.
func (m Match) ParticipantIDs() []int64 {
	out := make([]int64, 0, len(m.Participants))
	for _, slot := range m.Participants {
		if slot.AccountID > 0 {
			out = append(out, slot.AccountID)
		}
	}
	return out
}
