package httpapi

import (
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/dota-tracker/internal/domain/team"
	"github.com/riskibarqy/dota-tracker/internal/usecase"
)

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListTeams")
	defer span.End()

	teams := h.tracker.ListTeams()
	items := make([]trackedTeamDTO, 0, len(teams))
	for _, t := range teams {
		items = append(items, trackedTeamToDTO(ctx, t))
	}

	writeSuccess(ctx, w, http.StatusOK, items)
}

func (h *Handler) AddTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.AddTeam")
	defer span.End()

	var req addTeamRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	key := team.Key{TeamID: req.TeamID, LeagueID: req.LeagueID}
	if err := h.tracker.AddTeam(ctx, key, req.Force); err != nil {
		h.logger.WarnContext(ctx, "add team failed", "team_id", key.TeamID, "league_id", key.LeagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	record, err := h.tracker.GetTeam(key)
	if err != nil {
		// Superseded and removed before we could read it back.
		writeSuccess(ctx, w, http.StatusOK, nil)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, trackedTeamToDTO(ctx, record))
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetTeam")
	defer span.End()

	key, err := teamKeyFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	record, err := h.tracker.GetTeam(key)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, trackedTeamToDTO(ctx, record))
}

func (h *Handler) RefreshTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RefreshTeam")
	defer span.End()

	key, err := teamKeyFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.tracker.RefreshTeam(ctx, key); err != nil {
		h.logger.WarnContext(ctx, "refresh team failed", "team_id", key.TeamID, "league_id", key.LeagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	record, err := h.tracker.GetTeam(key)
	if err != nil {
		writeSuccess(ctx, w, http.StatusOK, nil)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, trackedTeamToDTO(ctx, record))
}

func (h *Handler) EditTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EditTeam")
	defer span.End()

	oldKey, err := teamKeyFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req teamKeyRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	newKey := team.Key{TeamID: req.TeamID, LeagueID: req.LeagueID}
	if err := h.tracker.EditTeam(ctx, oldKey, newKey); err != nil {
		h.logger.WarnContext(ctx, "edit team failed",
			"old_team_id", oldKey.TeamID, "old_league_id", oldKey.LeagueID,
			"new_team_id", newKey.TeamID, "new_league_id", newKey.LeagueID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	record, err := h.tracker.GetTeam(newKey)
	if err != nil {
		writeSuccess(ctx, w, http.StatusOK, nil)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, trackedTeamToDTO(ctx, record))
}

func (h *Handler) RemoveTeam(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveTeam")
	defer span.End()

	key, err := teamKeyFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.tracker.RemoveTeam(ctx, key); err != nil {
		h.logger.WarnContext(ctx, "remove team failed", "team_id", key.TeamID, "league_id", key.LeagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]bool{"removed": true})
}

func (h *Handler) GetSelection(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetSelection")
	defer span.End()

	record, ok := h.tracker.ActiveTeam()
	if !ok {
		writeSuccess(ctx, w, http.StatusOK, nil)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, trackedTeamToDTO(ctx, record))
}

func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SetSelection")
	defer span.End()

	var req teamKeyRequest
	decoder := sonic.ConfigDefault.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(ctx, w, fmt.Errorf("%w: invalid JSON payload: %v", usecase.ErrInvalidInput, err))
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	key := team.Key{TeamID: req.TeamID, LeagueID: req.LeagueID}
	if err := h.tracker.SelectTeam(key); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, selectionDTO{TeamID: key.TeamID, LeagueID: key.LeagueID})
}
