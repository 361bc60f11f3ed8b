package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/dota-tracker/internal/domain/match"
	"github.com/riskibarqy/dota-tracker/internal/domain/player"
	"github.com/riskibarqy/dota-tracker/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/dota-tracker/internal/platform/abort"
	"github.com/riskibarqy/dota-tracker/internal/platform/logging"
	"github.com/riskibarqy/dota-tracker/internal/usecase"
)

type stubGateway struct{}

func (stubGateway) FetchTeam(_ context.Context, teamID int64, _ bool) (usecase.SourceTeam, error) {
	return usecase.SourceTeam{ID: teamID, Name: "Team Spirit", Tag: "TS"}, nil
}

func (stubGateway) FetchLeague(_ context.Context, leagueID int64, _ bool) (usecase.SourceLeague, error) {
	return usecase.SourceLeague{
		ID:   leagueID,
		Name: "The International",
		Tier: "premium",
		Matches: []usecase.SourceLeagueMatch{
			{MatchID: 100, RadiantTeamID: 1, DireTeamID: 5},
		},
	}, nil
}

func (stubGateway) FetchMatch(_ context.Context, matchID int64) (match.Match, error) {
	return match.Match{
		ID:          matchID,
		LeagueID:    2,
		RadiantWin:  true,
		DurationSec: 1800,
		RadiantTeam: 1,
		DireTeam:    5,
		RadiantName: "Team Spirit",
		DireName:    "Gaimin",
		Participants: []match.PlayerSlot{
			{AccountID: 10, Name: "Yatoro", IsRadiant: true},
		},
	}, nil
}

func (stubGateway) FetchPlayer(_ context.Context, accountID int64) (player.Player, error) {
	return player.Player{AccountID: accountID, Name: "Yatoro"}, nil
}

type routerFixture struct {
	router    http.Handler
	tracker   *usecase.TrackerService
	processor *usecase.CascadeProcessor
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()

	teams := memory.NewTeamStore()
	matches := memory.NewMatchStore()
	players := memory.NewPlayerStore()
	processor := usecase.NewCascadeProcessor(stubGateway{}, matches, players, logging.NewNop())

	tracker, err := usecase.NewTrackerService(usecase.TrackerServiceParams{
		Teams:         teams,
		Matches:       matches,
		Players:       players,
		Registry:      abort.NewRegistry(),
		Gateway:       stubGateway{},
		Processor:     processor,
		PlayerFetcher: processor,
		Selection:     memory.NewSelectionStore(),
		Logger:        logging.NewNop(),
		FetchWorkers:  2,
		Now:           func() time.Time { return time.Unix(1700000000, 0) },
	})
	if err != nil {
		t.Fatalf("build tracker service: %v", err)
	}

	handler := NewHandler(tracker, matches, players, logging.NewNop())
	return &routerFixture{
		router:    NewRouter(handler, logging.NewNop(), []string{"*"}),
		tracker:   tracker,
		processor: processor,
	}
}

func (f *routerFixture) settle() {
	f.processor.Wait()
	f.tracker.Wait()
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := sonic.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	return body
}

func TestAddTeamEndpointReturnsTrackedRecord(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/teams", strings.NewReader(`{"team_id":1,"league_id":2}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	data, ok := decodeEnvelope(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object: %s", rec.Body.String())
	}
	if got, _ := data["name"].(string); got != "Team Spirit" {
		t.Fatalf("unexpected team name: %v", data["name"])
	}
	if got, _ := data["leagueName"].(string); got != "The International" {
		t.Fatalf("unexpected league name: %v", data["leagueName"])
	}
	matchItems, _ := data["matches"].([]any)
	if len(matchItems) != 1 {
		t.Fatalf("expected one match participation, got %v", data["matches"])
	}

	f.settle()
}

func TestAddTeamEndpointRejectsInvalidPayload(t *testing.T) {
	f := newRouterFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/teams", strings.NewReader(`{"team_id":0,"league_id":2}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
}

func TestTeamLifecycleOverHTTP(t *testing.T) {
	f := newRouterFixture(t)

	addReq := httptest.NewRequest(http.MethodPost, "/v1/teams", strings.NewReader(`{"team_id":1,"league_id":2}`))
	addRec := httptest.NewRecorder()
	f.router.ServeHTTP(addRec, addReq)
	if addRec.Code != http.StatusOK {
		t.Fatalf("add team: expected 200, got %d", addRec.Code)
	}
	f.settle()

	getRec := httptest.NewRecorder()
	f.router.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/v1/leagues/2/teams/1", nil))
	if getRec.Code != http.StatusOK {
		t.Fatalf("get team: expected 200, got %d", getRec.Code)
	}

	listRec := httptest.NewRecorder()
	f.router.ServeHTTP(listRec, httptest.NewRequest(http.MethodGet, "/v1/teams", nil))
	items, _ := decodeEnvelope(t, listRec)["data"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one tracked team, got %d", len(items))
	}

	matchRec := httptest.NewRecorder()
	f.router.ServeHTTP(matchRec, httptest.NewRequest(http.MethodGet, "/v1/matches/100", nil))
	if matchRec.Code != http.StatusOK {
		t.Fatalf("get match: expected 200, got %d", matchRec.Code)
	}

	delRec := httptest.NewRecorder()
	f.router.ServeHTTP(delRec, httptest.NewRequest(http.MethodDelete, "/v1/leagues/2/teams/1", nil))
	if delRec.Code != http.StatusOK {
		t.Fatalf("remove team: expected 200, got %d", delRec.Code)
	}

	missingRec := httptest.NewRecorder()
	f.router.ServeHTTP(missingRec, httptest.NewRequest(http.MethodGet, "/v1/leagues/2/teams/1", nil))
	if missingRec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after removal, got %d", missingRec.Code)
	}
}
