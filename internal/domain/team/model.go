// Package team holds the tracked-team record: the per-team view of its
// league matches, roster, manual overrides, and performance rollup.
package team

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	sonic "github.com/bytedance/sonic"
)

// Key identifies a tracked team. The same team tracked in two leagues is
// two independent records.
type Key struct {
	TeamID   int64
	LeagueID int64
}

func (k Key) Validate() error {
	if k.TeamID <= 0 {
		return fmt.Errorf("team id must be greater than zero")
	}
	if k.LeagueID <= 0 {
		return fmt.Errorf("league id must be greater than zero")
	}
	return nil
}

func (k Key) String() string {
	return strconv.FormatInt(k.TeamID, 10) + "/" + strconv.FormatInt(k.LeagueID, 10)
}

type Side string

const (
	SideRadiant Side = "radiant"
	SideDire    Side = "dire"
	SideUnknown Side = "unknown"
)

// NormalizeSide maps free-form input onto the known sides.
func NormalizeSide(raw string) Side {
	switch Side(raw) {
	case SideRadiant:
		return SideRadiant
	case SideDire:
		return SideDire
	default:
		return SideUnknown
	}
}

type PickOrder string

const (
	PickFirst   PickOrder = "first"
	PickSecond  PickOrder = "second"
	PickUnknown PickOrder = "unknown"
)

// Opponent sentinels marking a participation that has not been confirmed by
// the match store yet. The watcher upgrades entries carrying them.
const (
	OpponentLoading = "Loading..."
	OpponentUnknown = "Unknown"
)

// MatchParticipation is this team's view of one match.
type MatchParticipation struct {
	MatchID     int64
	Won         bool
	DurationSec int
	Opponent    string
	LeagueID    int64
	StartTime   time.Time
	Side        Side
	PickOrder   PickOrder
}

// Placeholder reports whether the participation still carries sentinel
// display values and is eligible for upgrade.
func (p MatchParticipation) Placeholder() bool {
	return p.Opponent == OpponentLoading || p.Opponent == OpponentUnknown
}

// RosterPlayer is one player associated with the team, discovered from
// matches or pinned manually.
type RosterPlayer struct {
	AccountID int64
	Name      string
	Manual    bool
}

// Performance is the aggregate rollup recomputed whenever Matches changes.
type Performance struct {
	TotalMatches   int
	Wins           int
	Losses         int
	AvgDurationSec int
}

// FailureKind distinguishes which summary fetch failed so the UI can offer
// a targeted retry.
type FailureKind string

const (
	FailureTeam   FailureKind = "team_fetch_failed"
	FailureLeague FailureKind = "league_fetch_failed"
	FailureBoth   FailureKind = "both_fetches_failed"
)

type Failure struct {
	Kind    FailureKind
	Message string
}

// TrackedTeam is the per-team record. It is stored by value and must never
// be mutated in place once stored; use Clone before changing maps.
type TrackedTeam struct {
	Key
	Name       string
	Tag        string
	LeagueName string
	LeagueTier string
	CreatedAt  time.Time

	Loading bool
	Failure *Failure

	Matches       map[int64]MatchParticipation
	ManualMatches map[int64]Side
	ManualPlayers []int64
	Players       map[int64]RosterPlayer

	Performance Performance
}

// NewPlaceholder builds the loading shell inserted the instant a team is
// added, before any network response.
func NewPlaceholder(key Key, now time.Time) TrackedTeam {
	return TrackedTeam{
		Key:           key,
		Name:          FallbackTeamName(key.TeamID),
		LeagueName:    FallbackLeagueName(key.LeagueID),
		CreatedAt:     now,
		Loading:       true,
		Matches:       make(map[int64]MatchParticipation),
		ManualMatches: make(map[int64]Side),
		Players:       make(map[int64]RosterPlayer),
	}
}

func FallbackTeamName(teamID int64) string {
	return "Team " + strconv.FormatInt(teamID, 10)
}

func FallbackLeagueName(leagueID int64) string {
	return "League " + strconv.FormatInt(leagueID, 10)
}

// Clone deep-copies the record so a stored value can be mutated safely
// before being written back.
func (t TrackedTeam) Clone() TrackedTeam {
	out := t

	out.Matches = make(map[int64]MatchParticipation, len(t.Matches))
	for id, p := range t.Matches {
		out.Matches[id] = p
	}
	out.ManualMatches = make(map[int64]Side, len(t.ManualMatches))
	for id, side := range t.ManualMatches {
		out.ManualMatches[id] = side
	}
	out.Players = make(map[int64]RosterPlayer, len(t.Players))
	for id, p := range t.Players {
		out.Players[id] = p
	}
	out.ManualPlayers = append([]int64(nil), t.ManualPlayers...)
	if t.Failure != nil {
		failure := *t.Failure
		out.Failure = &failure
	}

	return out
}

// HasMatch reports whether id exists as a discovered or manual match.
func (t TrackedTeam) HasMatch(id int64) bool {
	if _, ok := t.Matches[id]; ok {
		return true
	}
	_, ok := t.ManualMatches[id]
	return ok
}

// HasManualPlayer reports whether accountID is pinned.
func (t TrackedTeam) HasManualPlayer(accountID int64) bool {
	for _, id := range t.ManualPlayers {
		if id == accountID {
			return true
		}
	}
	return false
}

// MatchIDs returns the ids of all participations, sorted for determinism.
func (t TrackedTeam) MatchIDs() []int64 {
	ids := make([]int64, 0, len(t.Matches))
	for id := range t.Matches {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// RecomputePerformance refreshes the rollup from the Matches map.
func (t *TrackedTeam) RecomputePerformance() {
	perf := Performance{}
	durationTotal := 0
	durationCount := 0

	for _, p := range t.Matches {
		perf.TotalMatches++
		if p.Won {
			perf.Wins++
		} else {
			perf.Losses++
		}
		if p.DurationSec > 0 {
			durationTotal += p.DurationSec
			durationCount++
		}
	}
	if durationCount > 0 {
		perf.AvgDurationSec = durationTotal / durationCount
	}

	t.Performance = perf
}

// ManualPlayerList accepts the two shapes user configs have carried for
// pinned players: a plain id array or an id-keyed object. Either way it
// normalizes to a sorted, de-duplicated array.
type ManualPlayerList []int64

func (l *ManualPlayerList) UnmarshalJSON(data []byte) error {
	var asArray []int64
	if err := sonic.Unmarshal(data, &asArray); err == nil {
		*l = normalizeIDs(asArray)
		return nil
	}

	var asObject map[string]any
	if err := sonic.Unmarshal(data, &asObject); err != nil {
		return fmt.Errorf("manual players must be an id array or an id-keyed object")
	}

	ids := make([]int64, 0, len(asObject))
	for raw := range asObject {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return fmt.Errorf("manual player key %q is not a numeric id", raw)
		}
		ids = append(ids, id)
	}
	*l = normalizeIDs(ids)
	return nil
}

func normalizeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
