package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/dota-tracker/internal/domain/match"
	"github.com/riskibarqy/dota-tracker/internal/domain/player"
	"github.com/riskibarqy/dota-tracker/internal/domain/team"
	"github.com/riskibarqy/dota-tracker/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/dota-tracker/internal/platform/abort"
	"github.com/riskibarqy/dota-tracker/internal/platform/logging"
)

type fakeGateway struct {
	mu          sync.Mutex
	teamCalls   int
	leagueCalls int
	matchCalls  int
	playerCalls int

	teams   map[int64]SourceTeam
	leagues map[int64]SourceLeague
	matches map[int64]match.Match
	players map[int64]player.Player

	onTeam   func(ctx context.Context, teamID int64) error
	onMatch  func(ctx context.Context, matchID int64) error
	onPlayer func(ctx context.Context, accountID int64) error
}

func (g *fakeGateway) FetchTeam(ctx context.Context, teamID int64, force bool) (SourceTeam, error) {
	g.mu.Lock()
	g.teamCalls++
	hook := g.onTeam
	value, ok := g.teams[teamID]
	g.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, teamID); err != nil {
			return SourceTeam{}, err
		}
	}
	if !ok {
		return SourceTeam{}, crerr.Newf("team %d not found upstream", teamID)
	}
	return value, nil
}

func (g *fakeGateway) FetchLeague(ctx context.Context, leagueID int64, force bool) (SourceLeague, error) {
	g.mu.Lock()
	g.leagueCalls++
	value, ok := g.leagues[leagueID]
	g.mu.Unlock()

	if !ok {
		return SourceLeague{}, crerr.Newf("league %d not found upstream", leagueID)
	}
	return value, nil
}

func (g *fakeGateway) FetchMatch(ctx context.Context, matchID int64) (match.Match, error) {
	g.mu.Lock()
	g.matchCalls++
	hook := g.onMatch
	value, ok := g.matches[matchID]
	g.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, matchID); err != nil {
			return match.Match{}, err
		}
	}
	if !ok {
		return match.Match{}, crerr.Newf("match %d not found upstream", matchID)
	}
	return value, nil
}

func (g *fakeGateway) FetchPlayer(ctx context.Context, accountID int64) (player.Player, error) {
	g.mu.Lock()
	g.playerCalls++
	hook := g.onPlayer
	value, ok := g.players[accountID]
	g.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, accountID); err != nil {
			return player.Player{}, err
		}
	}
	if !ok {
		return player.Player{}, crerr.Newf("player %d not found upstream", accountID)
	}
	return value, nil
}

func (g *fakeGateway) counts() (teams, leagues, matches, players int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.teamCalls, g.leagueCalls, g.matchCalls, g.playerCalls
}

// leagueGateway is the shared happy-path dataset: team 1 plays two matches
// in league 2, once radiant (win) and once dire (loss). Player 10's slot
// carries no name so the roster starts as a loading placeholder.
func leagueGateway() *fakeGateway {
	return &fakeGateway{
		teams: map[int64]SourceTeam{
			1: {ID: 1, Name: "Team Spirit", Tag: "TS", Rating: 1450},
		},
		leagues: map[int64]SourceLeague{
			2: {
				ID:   2,
				Name: "The International",
				Tier: "premium",
				Matches: []SourceLeagueMatch{
					{MatchID: 100, RadiantTeamID: 1, DireTeamID: 5},
					{MatchID: 101, RadiantTeamID: 5, DireTeamID: 1},
				},
			},
		},
		matches: map[int64]match.Match{
			100: {
				ID: 100, LeagueID: 2, RadiantWin: true, DurationSec: 1800,
				RadiantTeam: 1, DireTeam: 5,
				RadiantName: "Team Spirit", DireName: "Gaimin",
				FirstPick: 1,
				Participants: []match.PlayerSlot{
					{AccountID: 10, Name: "", IsRadiant: true},
					{AccountID: 20, Name: "dyrachyo", IsRadiant: false},
				},
			},
			101: {
				ID: 101, LeagueID: 2, RadiantWin: true, DurationSec: 2400,
				RadiantTeam: 5, DireTeam: 1,
				RadiantName: "Gaimin", DireName: "Team Spirit",
				FirstPick: 5,
				Participants: []match.PlayerSlot{
					{AccountID: 11, Name: "Collapse", IsRadiant: false},
					{AccountID: 20, Name: "dyrachyo", IsRadiant: true},
				},
			},
		},
		players: map[int64]player.Player{
			10: {AccountID: 10, Name: "Yatoro"},
			11: {AccountID: 11, Name: "Collapse"},
			20: {AccountID: 20, Name: "dyrachyo"},
		},
	}
}

type trackerFixture struct {
	svc       *TrackerService
	processor *CascadeProcessor
	watcher   *Watcher
	teams     *memory.TeamStore
	matches   *memory.MatchStore
	players   *memory.PlayerStore
	registry  *abort.Registry
	selection *memory.SelectionStore
}

func newTrackerFixture(t *testing.T, gw *fakeGateway) *trackerFixture {
	t.Helper()

	teams := memory.NewTeamStore()
	matches := memory.NewMatchStore()
	players := memory.NewPlayerStore()
	registry := abort.NewRegistry()
	selection := memory.NewSelectionStore()
	processor := NewCascadeProcessor(gw, matches, players, logging.NewNop())

	svc, err := NewTrackerService(TrackerServiceParams{
		Teams:         teams,
		Matches:       matches,
		Players:       players,
		Registry:      registry,
		Gateway:       gw,
		Processor:     processor,
		PlayerFetcher: processor,
		Selection:     selection,
		Logger:        logging.NewNop(),
		FetchWorkers:  2,
		Now:           func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("building tracker service: %v", err)
	}

	return &trackerFixture{
		svc:       svc,
		processor: processor,
		watcher:   NewWatcher(teams, matches, players, logging.NewNop()),
		teams:     teams,
		matches:   matches,
		players:   players,
		registry:  registry,
		selection: selection,
	}
}

// settle drains background player fetches and applies one watcher sweep.
func (f *trackerFixture) settle() {
	f.processor.Wait()
	f.svc.Wait()
	f.watcher.Sweep()
}

func waitUntil(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestAddTeamBuildsFullRecord(t *testing.T) {
	gw := leagueGateway()
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	if err := f.svc.AddTeam(t.Context(), key, false); err != nil {
		t.Fatalf("add team: %v", err)
	}
	f.settle()

	record, err := f.svc.GetTeam(key)
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if record.Name != "Team Spirit" || record.Tag != "TS" {
		t.Fatalf("unexpected identity: %q %q", record.Name, record.Tag)
	}
	if record.LeagueName != "The International" || record.LeagueTier != "premium" {
		t.Fatalf("unexpected league: %q %q", record.LeagueName, record.LeagueTier)
	}
	if record.Loading {
		t.Fatal("record must finish loading once the subtree settles")
	}
	if record.Failure != nil {
		t.Fatalf("unexpected failure: %+v", record.Failure)
	}

	first := record.Matches[100]
	if !first.Won || first.Opponent != "Gaimin" || first.Side != team.SideRadiant || first.PickOrder != team.PickFirst {
		t.Fatalf("unexpected radiant participation: %+v", first)
	}
	second := record.Matches[101]
	if second.Won || second.Opponent != "Gaimin" || second.Side != team.SideDire || second.PickOrder != team.PickSecond {
		t.Fatalf("unexpected dire participation: %+v", second)
	}

	perf := record.Performance
	if perf.TotalMatches != 2 || perf.Wins != 1 || perf.Losses != 1 || perf.AvgDurationSec != 2100 {
		t.Fatalf("unexpected performance: %+v", perf)
	}

	if got := record.Players[10].Name; got != "Yatoro" {
		t.Fatalf("anonymous roster slot must resolve via the player store, got %q", got)
	}
	if got := record.Players[11].Name; got != "Collapse" {
		t.Fatalf("unexpected roster name %q", got)
	}

	_, _, _, playerFetches := gw.counts()
	if playerFetches != 3 {
		t.Fatalf("players shared across matches must fetch once each, got %d fetches", playerFetches)
	}
}

func TestAddTeamIsIdempotentWithoutForce(t *testing.T) {
	gw := leagueGateway()
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	if err := f.svc.AddTeam(t.Context(), key, false); err != nil {
		t.Fatalf("add team: %v", err)
	}
	f.settle()
	if err := f.svc.AddTeam(t.Context(), key, false); err != nil {
		t.Fatalf("re-add team: %v", err)
	}

	teamFetches, leagueFetches, matchFetches, _ := gw.counts()
	if teamFetches != 1 || leagueFetches != 1 || matchFetches != 2 {
		t.Fatalf("re-adding a tracked team must not refetch: %d/%d/%d", teamFetches, leagueFetches, matchFetches)
	}
}

func TestRefreshTeamRequiresTrackedRecord(t *testing.T) {
	gw := leagueGateway()
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	if err := f.svc.RefreshTeam(t.Context(), key); !crerr.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for untracked key, got %v", err)
	}
	if f.teams.Len() != 0 {
		t.Fatalf("refresh of an untracked key must not create a record")
	}

	if err := f.svc.AddTeam(t.Context(), key, false); err != nil {
		t.Fatalf("add team: %v", err)
	}
	f.settle()
	if err := f.svc.RefreshTeam(t.Context(), key); err != nil {
		t.Fatalf("refresh tracked team: %v", err)
	}
	f.settle()

	teamFetches, _, _, _ := gw.counts()
	if teamFetches != 2 {
		t.Fatalf("refresh must refetch the summary, got %d team fetches", teamFetches)
	}
}

func TestAddTeamSupersedesInFlightFetch(t *testing.T) {
	gw := leagueGateway()
	entered := make(chan struct{})
	var calls int32
	gw.onTeam = func(ctx context.Context, _ int64) error {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(entered)
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	firstDone := make(chan error, 1)
	go func() { firstDone <- f.svc.AddTeam(t.Context(), key, false) }()
	<-entered

	if err := f.svc.AddTeam(t.Context(), key, true); err != nil {
		t.Fatalf("forced re-add: %v", err)
	}
	if err := <-firstDone; err != nil {
		t.Fatalf("superseded add must resolve silently, got %v", err)
	}
	f.settle()

	record, err := f.svc.GetTeam(key)
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if record.Name != "Team Spirit" || record.Loading {
		t.Fatalf("the successor must complete the record: %+v", record)
	}
	if f.registry.Len() != 0 {
		t.Fatalf("no live operations may remain, have %d", f.registry.Len())
	}
}

func TestRemoveTeamCancelsWholeCascade(t *testing.T) {
	gw := leagueGateway()
	entered := make(chan struct{})
	var once sync.Once
	gw.onMatch = func(ctx context.Context, _ int64) error {
		once.Do(func() { close(entered) })
		<-ctx.Done()
		return ctx.Err()
	}
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	done := make(chan error, 1)
	go func() { done <- f.svc.AddTeam(t.Context(), key, false) }()
	<-entered

	if err := f.svc.RemoveTeam(t.Context(), key); err != nil {
		t.Fatalf("remove team: %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("cancelled add must resolve silently, got %v", err)
	}

	if _, ok := f.teams.Get(key); ok {
		t.Fatal("record must be gone after removal")
	}
	if f.registry.Len() != 0 {
		t.Fatalf("removal must cancel every operation under the team prefix, %d left", f.registry.Len())
	}
	if f.matches.Len() != 0 {
		t.Fatalf("aborted match fetches must roll their loading markers back, %d left", f.matches.Len())
	}
}

func TestManualMatchSurvivesInFlightRebuild(t *testing.T) {
	gw := leagueGateway()
	gw.matches[777] = match.Match{
		ID: 777, LeagueID: 2, RadiantWin: false, DurationSec: 900,
		RadiantTeam: 9, RadiantName: "Liquid",
	}
	release := make(chan struct{})
	gw.onTeam = func(ctx context.Context, _ int64) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	done := make(chan error, 1)
	go func() { done <- f.svc.AddTeam(t.Context(), key, false) }()
	waitUntil(t, func() bool {
		_, ok := f.teams.Get(key)
		return ok
	}, "placeholder must appear before any network response")

	if err := f.svc.LoadManualMatches(t.Context(), key, map[int64]team.Side{777: team.SideDire}); err != nil {
		t.Fatalf("load manual matches: %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("add team: %v", err)
	}
	f.settle()

	record, err := f.svc.GetTeam(key)
	if err != nil {
		t.Fatalf("get team: %v", err)
	}
	if record.ManualMatches[777] != team.SideDire {
		t.Fatal("manual declaration must survive the rebuild")
	}
	part := record.Matches[777]
	if !part.Won || part.Opponent != "Liquid" || part.Side != team.SideDire {
		t.Fatalf("manual participation lost in rebuild: %+v", part)
	}
	if record.Performance.TotalMatches != 3 {
		t.Fatalf("rollup must count discovered and manual matches, got %d", record.Performance.TotalMatches)
	}
}

func TestEditManualMatchRejectsDuplicates(t *testing.T) {
	gw := leagueGateway()
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	if err := f.svc.AddTeam(t.Context(), key, false); err != nil {
		t.Fatalf("add team: %v", err)
	}
	f.settle()
	if err := f.svc.LoadManualMatches(t.Context(), key, map[int64]team.Side{777: team.SideDire}); err != nil {
		t.Fatalf("load manual matches: %v", err)
	}

	err := f.svc.EditManualMatch(t.Context(), key, 777, 100, team.SideRadiant)
	if !crerr.Is(err, ErrDuplicateOverride) {
		t.Fatalf("expected ErrDuplicateOverride, got %v", err)
	}
	record, _ := f.svc.GetTeam(key)
	if _, ok := record.ManualMatches[777]; !ok {
		t.Fatal("rejected edit must leave the record untouched")
	}

	if err := f.svc.EditManualMatch(t.Context(), key, 777, 778, team.SideRadiant); err != nil {
		t.Fatalf("edit manual match: %v", err)
	}
	record, _ = f.svc.GetTeam(key)
	if _, ok := record.ManualMatches[777]; ok {
		t.Fatal("old manual id must be withdrawn")
	}
	if record.ManualMatches[778] != team.SideRadiant {
		t.Fatal("new manual id must be declared")
	}
}

func TestRemoveManualMatchWithdrawsParticipation(t *testing.T) {
	gw := leagueGateway()
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	if err := f.svc.AddTeam(t.Context(), key, false); err != nil {
		t.Fatalf("add team: %v", err)
	}
	f.settle()
	if err := f.svc.LoadManualMatches(t.Context(), key, map[int64]team.Side{777: team.SideDire}); err != nil {
		t.Fatalf("load manual matches: %v", err)
	}

	if err := f.svc.RemoveManualMatch(t.Context(), key, 777); err != nil {
		t.Fatalf("remove manual match: %v", err)
	}
	record, _ := f.svc.GetTeam(key)
	if record.HasMatch(777) {
		t.Fatal("withdrawn manual match must disappear")
	}
	if record.Performance.TotalMatches != 2 {
		t.Fatalf("rollup must drop the withdrawn match, got %d", record.Performance.TotalMatches)
	}

	if err := f.svc.RemoveManualMatch(t.Context(), key, 777); !crerr.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestManualPlayersPinAndUnpin(t *testing.T) {
	gw := leagueGateway()
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	if err := f.svc.AddTeam(t.Context(), key, false); err != nil {
		t.Fatalf("add team: %v", err)
	}
	f.settle()
	if err := f.svc.LoadManualPlayers(t.Context(), key, []int64{999, 10}); err != nil {
		t.Fatalf("load manual players: %v", err)
	}
	f.settle()

	record, _ := f.svc.GetTeam(key)
	if got := record.ManualPlayers; len(got) != 2 || got[0] != 999 || got[1] != 10 {
		t.Fatalf("unexpected pins: %v", got)
	}
	if !record.Players[10].Manual {
		t.Fatal("pinning a discovered player must mark it manual")
	}
	if record.Players[999].Name != team.OpponentLoading {
		t.Fatal("a pin with a failed lookup keeps its placeholder name")
	}

	if err := f.svc.RemoveManualPlayer(t.Context(), key, 999); err != nil {
		t.Fatalf("remove manual player: %v", err)
	}
	if err := f.svc.RemoveManualPlayer(t.Context(), key, 10); err != nil {
		t.Fatalf("remove manual player: %v", err)
	}
	record, _ = f.svc.GetTeam(key)
	if len(record.ManualPlayers) != 0 {
		t.Fatalf("pins must be withdrawn, got %v", record.ManualPlayers)
	}
	if _, ok := record.Players[999]; ok {
		t.Fatal("a purely manual roster entry must disappear with its pin")
	}
	if _, ok := record.Players[10]; !ok {
		t.Fatal("a discovered roster entry must survive losing its pin")
	}
}

func TestSummaryFailureTaxonomy(t *testing.T) {
	gw := leagueGateway()
	delete(gw.teams, 1)
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	if err := f.svc.AddTeam(t.Context(), key, false); err != nil {
		t.Fatalf("add team: %v", err)
	}

	record, err := f.svc.GetTeam(key)
	if err != nil {
		t.Fatalf("failed summary must still leave a usable record: %v", err)
	}
	if record.Failure == nil || record.Failure.Kind != team.FailureTeam {
		t.Fatalf("expected team_fetch_failed, got %+v", record.Failure)
	}
	if record.Name != team.FallbackTeamName(1) {
		t.Fatalf("failed side keeps its fallback name, got %q", record.Name)
	}
	if record.LeagueName != "The International" {
		t.Fatalf("succeeded side must be applied, got %q", record.LeagueName)
	}
	if record.Loading {
		t.Fatal("a failed summary is settled, not loading")
	}
}

func TestLoadTeamsFromConfigSeedsPlaceholdersFirst(t *testing.T) {
	gw := leagueGateway()
	release := make(chan struct{})
	gw.onTeam = func(ctx context.Context, _ int64) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}
	entries := []RosterEntry{
		{Key: key, ManualMatches: map[int64]team.Side{777: team.SideDire}, ManualPlayers: []int64{10}},
		{Key: team.Key{TeamID: -1, LeagueID: 2}},
	}

	done := make(chan error, 1)
	go func() { done <- f.svc.LoadTeamsFromConfig(t.Context(), entries) }()
	waitUntil(t, func() bool {
		record, ok := f.teams.Get(key)
		return ok && record.ManualMatches[777] == team.SideDire && record.HasManualPlayer(10)
	}, "placeholder with manual overrides must appear before the fetch settles")

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("load from config: %v", err)
	}
	f.settle()

	record, _ := f.svc.GetTeam(key)
	if record.Name != "Team Spirit" {
		t.Fatalf("config load must run the full cascade, got %q", record.Name)
	}
	if record.ManualMatches[777] != team.SideDire || !record.HasManualPlayer(10) {
		t.Fatal("manual overrides from config must survive the cascade")
	}
	if f.teams.Len() != 1 {
		t.Fatalf("invalid entries must be skipped, have %d records", f.teams.Len())
	}
}

func TestSelectionFollowsTeamLifecycle(t *testing.T) {
	gw := leagueGateway()
	f := newTrackerFixture(t, gw)
	key := team.Key{TeamID: 1, LeagueID: 2}

	if err := f.svc.SelectTeam(key); !crerr.Is(err, ErrNotFound) {
		t.Fatalf("selecting an untracked team must fail, got %v", err)
	}

	if err := f.svc.AddTeam(t.Context(), key, false); err != nil {
		t.Fatalf("add team: %v", err)
	}
	f.settle()
	if err := f.svc.SelectTeam(key); err != nil {
		t.Fatalf("select team: %v", err)
	}
	if active, ok := f.svc.ActiveTeam(); !ok || active.TeamID != 1 {
		t.Fatalf("unexpected active team: %+v ok=%v", active, ok)
	}

	if err := f.svc.RemoveTeam(t.Context(), key); err != nil {
		t.Fatalf("remove team: %v", err)
	}
	if _, ok := f.svc.ActiveTeam(); ok {
		t.Fatal("removing the focused team must clear the selection")
	}
}
