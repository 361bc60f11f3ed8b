package usecase

import (
	"context"
	"sort"

	"github.com/riskibarqy/dota-tracker/internal/domain/match"
	"github.com/riskibarqy/dota-tracker/internal/domain/player"
	"github.com/riskibarqy/dota-tracker/internal/domain/team"
)

// SourceTeam is the upstream view of a team summary.
type SourceTeam struct {
	ID     int64
	Name   string
	Tag    string
	Rating float64
	Wins   int
	Losses int
}

// SourceLeagueMatch is one row of a league's match listing. Only the ids
// are trustworthy here; full match detail comes from the match fetch.
type SourceLeagueMatch struct {
	MatchID       int64
	RadiantTeamID int64
	DireTeamID    int64
}

// SourceLeague is the upstream view of a league, including its match
// listing when the source provides one.
type SourceLeague struct {
	ID      int64
	Name    string
	Tier    string
	Matches []SourceLeagueMatch
}

// SourceGateway is the upstream data source. force bypasses any response
// cache the implementation keeps for summary lookups.
type SourceGateway interface {
	FetchTeam(ctx context.Context, teamID int64, force bool) (SourceTeam, error)
	FetchLeague(ctx context.Context, leagueID int64, force bool) (SourceLeague, error)
	FetchMatch(ctx context.Context, matchID int64) (match.Match, error)
	FetchPlayer(ctx context.Context, accountID int64) (player.Player, error)
}

// DiscoveredMatch is a match id the team is known to participate in, with
// the side it played when the listing reveals it.
type DiscoveredMatch struct {
	MatchID int64
	Side    team.Side
}

// FindTeamMatchesInLeague filters a league's listing down to the matches
// the team played, sorted by match id for deterministic processing order.
func FindTeamMatchesInLeague(league SourceLeague, teamID int64) []DiscoveredMatch {
	out := make([]DiscoveredMatch, 0, len(league.Matches))
	seen := make(map[int64]struct{}, len(league.Matches))
	for _, row := range league.Matches {
		if row.MatchID <= 0 {
			continue
		}
		if _, dup := seen[row.MatchID]; dup {
			continue
		}

		side := team.SideUnknown
		switch teamID {
		case row.RadiantTeamID:
			side = team.SideRadiant
		case row.DireTeamID:
			side = team.SideDire
		default:
			continue
		}
		seen[row.MatchID] = struct{}{}
		out = append(out, DiscoveredMatch{MatchID: row.MatchID, Side: side})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MatchID < out[j].MatchID })
	return out
}

// MatchProcessor turns a match id into this team's participation view,
// cascading into player fetches for the match's participants.
type MatchProcessor interface {
	Process(ctx context.Context, matchID, teamID int64, knownSide team.Side) (*team.MatchParticipation, error)
}

// PlayerFetcher ensures a shared player entity is loaded. Blocking; a call
// for an already loading or resolved player returns immediately.
type PlayerFetcher interface {
	EnsurePlayer(ctx context.Context, accountID int64)
}

// RosterEntry is the durable slice of a tracked team: its identity plus
// the manual overrides, which cannot be re-derived from upstream.
type RosterEntry struct {
	Key           team.Key
	ManualMatches map[int64]team.Side
	ManualPlayers []int64
}

// RosterStore persists roster entries across restarts.
type RosterStore interface {
	List(ctx context.Context) ([]RosterEntry, error)
	Upsert(ctx context.Context, entry RosterEntry) error
	Delete(ctx context.Context, key team.Key) error
}

// Selection remembers which tracked team the UI focuses.
type Selection interface {
	Active() (team.Key, bool)
	Set(key team.Key)
	Clear(key team.Key)
}

// BuildParticipation derives a team's view of a settled match. knownSide
// wins when the match data cannot place the team on a side; when the data
// can, the data wins.
func BuildParticipation(m match.Match, teamID int64, knownSide team.Side) team.MatchParticipation {
	side := team.SideUnknown
	switch teamID {
	case m.RadiantTeam:
		side = team.SideRadiant
	case m.DireTeam:
		side = team.SideDire
	}
	if side == team.SideUnknown && knownSide != "" {
		side = knownSide
	}

	won := false
	opponent := team.OpponentUnknown
	switch side {
	case team.SideRadiant:
		won = m.RadiantWin
		if m.DireName != "" {
			opponent = m.DireName
		}
	case team.SideDire:
		won = !m.RadiantWin
		if m.RadiantName != "" {
			opponent = m.RadiantName
		}
	}

	pick := team.PickUnknown
	if m.FirstPick != 0 {
		if m.FirstPick == teamID {
			pick = team.PickFirst
		} else {
			pick = team.PickSecond
		}
	}

	return team.MatchParticipation{
		MatchID:     m.ID,
		Won:         won,
		DurationSec: m.DurationSec,
		Opponent:    opponent,
		LeagueID:    m.LeagueID,
		StartTime:   m.StartTime,
		Side:        side,
		PickOrder:   pick,
	}
}
