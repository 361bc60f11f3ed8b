package usecase

import (
	"testing"

	"github.com/riskibarqy/dota-tracker/internal/domain/match"
	"github.com/riskibarqy/dota-tracker/internal/domain/team"
)

func TestFindTeamMatchesInLeague(t *testing.T) {
	league := SourceLeague{
		ID: 2,
		Matches: []SourceLeagueMatch{
			{MatchID: 300, RadiantTeamID: 5, DireTeamID: 1},
			{MatchID: 100, RadiantTeamID: 1, DireTeamID: 5},
			{MatchID: 100, RadiantTeamID: 1, DireTeamID: 5},
			{MatchID: 200, RadiantTeamID: 7, DireTeamID: 8},
			{MatchID: 0, RadiantTeamID: 1, DireTeamID: 5},
		},
	}

	got := FindTeamMatchesInLeague(league, 1)
	if len(got) != 2 {
		t.Fatalf("expected 2 matches, got %v", got)
	}
	if got[0].MatchID != 100 || got[0].Side != team.SideRadiant {
		t.Fatalf("unexpected first discovery: %+v", got[0])
	}
	if got[1].MatchID != 300 || got[1].Side != team.SideDire {
		t.Fatalf("unexpected second discovery: %+v", got[1])
	}

	if rest := FindTeamMatchesInLeague(league, 99); len(rest) != 0 {
		t.Fatalf("a team not in the listing discovers nothing, got %v", rest)
	}
}

func TestBuildParticipation(t *testing.T) {
	m := match.Match{
		ID: 100, LeagueID: 2, RadiantWin: true, DurationSec: 1800,
		RadiantTeam: 1, DireTeam: 5,
		RadiantName: "Team Spirit", DireName: "Gaimin",
		FirstPick: 5,
	}

	radiant := BuildParticipation(m, 1, team.SideUnknown)
	if !radiant.Won || radiant.Side != team.SideRadiant || radiant.Opponent != "Gaimin" {
		t.Fatalf("unexpected radiant view: %+v", radiant)
	}
	if radiant.PickOrder != team.PickSecond {
		t.Fatalf("first pick belongs to the opponent, got %q", radiant.PickOrder)
	}

	dire := BuildParticipation(m, 5, team.SideUnknown)
	if dire.Won || dire.Side != team.SideDire || dire.Opponent != "Team Spirit" {
		t.Fatalf("unexpected dire view: %+v", dire)
	}
	if dire.PickOrder != team.PickFirst {
		t.Fatalf("unexpected pick order: %q", dire.PickOrder)
	}
}

func TestBuildParticipationFallsBackToDeclaredSide(t *testing.T) {
	m := match.Match{
		ID: 777, RadiantWin: false, DurationSec: 900,
		RadiantTeam: 9, RadiantName: "Liquid",
	}

	got := BuildParticipation(m, 1, team.SideDire)
	if got.Side != team.SideDire || !got.Won || got.Opponent != "Liquid" {
		t.Fatalf("declared side must drive the view when the data has no placement: %+v", got)
	}
	if got.PickOrder != team.PickUnknown {
		t.Fatalf("unknown first pick stays unknown, got %q", got.PickOrder)
	}

	blind := BuildParticipation(match.Match{ID: 778}, 1, team.SideUnknown)
	if blind.Side != team.SideUnknown || blind.Won || blind.Opponent != team.OpponentUnknown {
		t.Fatalf("no placement and no declaration yields the unknown view: %+v", blind)
	}
}
