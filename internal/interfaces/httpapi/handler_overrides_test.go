package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func addTrackedTeam(t *testing.T, f *routerFixture) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/teams", strings.NewReader(`{"team_id":1,"league_id":2}`))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("add team: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	f.settle()
}

func TestLoadManualPlayersAcceptsArrayShape(t *testing.T) {
	f := newRouterFixture(t)
	addTrackedTeam(t, f)

	body := `{"account_ids":[42,10,42]}`
	req := httptest.NewRequest(http.MethodPost, "/v1/leagues/2/teams/1/manual-players", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	f.settle()

	data, ok := decodeEnvelope(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object: %s", rec.Body.String())
	}
	manual, _ := data["manualPlayers"].([]any)
	if len(manual) != 2 {
		t.Fatalf("expected duplicate id collapsed to two manual players, got %v", data["manualPlayers"])
	}
}

func TestLoadManualPlayersAcceptsObjectShape(t *testing.T) {
	f := newRouterFixture(t)
	addTrackedTeam(t, f)

	body := `{"account_ids":{"42":true,"10":{"pinned":true}}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/leagues/2/teams/1/manual-players", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	f.settle()

	data, ok := decodeEnvelope(t, rec)["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object: %s", rec.Body.String())
	}
	manual, _ := data["manualPlayers"].([]any)
	if len(manual) != 2 {
		t.Fatalf("expected two manual players, got %v", data["manualPlayers"])
	}
	if got, _ := manual[0].(float64); got != 10 {
		t.Fatalf("expected normalized ids sorted ascending, got %v", data["manualPlayers"])
	}
}

func TestLoadManualPlayersRejectsNonNumericObjectKey(t *testing.T) {
	f := newRouterFixture(t)
	addTrackedTeam(t, f)

	body := `{"account_ids":{"yatoro":true}}`
	req := httptest.NewRequest(http.MethodPost, "/v1/leagues/2/teams/1/manual-players", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
