package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
}

func registerTeamRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/teams", handler.ListTeams)
	mux.HandleFunc("POST /v1/teams", handler.AddTeam)
	mux.HandleFunc("GET /v1/leagues/{leagueID}/teams/{teamID}", handler.GetTeam)
	mux.HandleFunc("PUT /v1/leagues/{leagueID}/teams/{teamID}", handler.EditTeam)
	mux.HandleFunc("DELETE /v1/leagues/{leagueID}/teams/{teamID}", handler.RemoveTeam)
	mux.HandleFunc("POST /v1/leagues/{leagueID}/teams/{teamID}/refresh", handler.RefreshTeam)
	mux.HandleFunc("GET /v1/selection", handler.GetSelection)
	mux.HandleFunc("PUT /v1/selection", handler.SetSelection)
}

func registerOverrideRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("POST /v1/leagues/{leagueID}/teams/{teamID}/manual-matches", handler.LoadManualMatches)
	mux.HandleFunc("PUT /v1/leagues/{leagueID}/teams/{teamID}/manual-matches/{matchID}", handler.EditManualMatch)
	mux.HandleFunc("DELETE /v1/leagues/{leagueID}/teams/{teamID}/manual-matches/{matchID}", handler.RemoveManualMatch)
	mux.HandleFunc("POST /v1/leagues/{leagueID}/teams/{teamID}/manual-players", handler.LoadManualPlayers)
	mux.HandleFunc("DELETE /v1/leagues/{leagueID}/teams/{teamID}/manual-players/{accountID}", handler.RemoveManualPlayer)
}

func registerEntityRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/matches/{matchID}", handler.GetMatch)
	mux.HandleFunc("GET /v1/players/{accountID}", handler.GetPlayer)
}
