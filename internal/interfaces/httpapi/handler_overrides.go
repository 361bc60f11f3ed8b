package httpapi

import (
	"context"
	"fmt"
	"net/http"

	sonic "github.com/bytedance/sonic"

	"github.com/riskibarqy/dota-tracker/internal/domain/team"
	"github.com/riskibarqy/dota-tracker/internal/usecase"
)

func (h *Handler) LoadManualMatches(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LoadManualMatches")
	defer span.End()

	key, err := teamKeyFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req manualMatchesRequest
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

	manual := make(map[int64]team.Side, len(req.Matches))
	for _, item := range req.Matches {
		manual[item.MatchID] = team.NormalizeSide(item.Side)
	}

	if err := h.tracker.LoadManualMatches(ctx, key, manual); err != nil {
		h.logger.WarnContext(ctx, "load manual matches failed", "team_id", key.TeamID, "league_id", key.LeagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.writeTeam(ctx, w, key)
}

func (h *Handler) EditManualMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.EditManualMatch")
	defer span.End()

	key, err := teamKeyFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	oldMatchID, err := pathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req editManualMatchRequest
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

	if err := h.tracker.EditManualMatch(ctx, key, oldMatchID, req.NewMatchID, team.NormalizeSide(req.Side)); err != nil {
		h.logger.WarnContext(ctx, "edit manual match failed",
			"team_id", key.TeamID, "league_id", key.LeagueID,
			"old_match_id", oldMatchID, "new_match_id", req.NewMatchID,
			"error", err,
		)
		writeError(ctx, w, err)
		return
	}

	h.writeTeam(ctx, w, key)
}

func (h *Handler) RemoveManualMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveManualMatch")
	defer span.End()

	key, err := teamKeyFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	matchID, err := pathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.tracker.RemoveManualMatch(ctx, key, matchID); err != nil {
		h.logger.WarnContext(ctx, "remove manual match failed", "team_id", key.TeamID, "league_id", key.LeagueID, "match_id", matchID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.writeTeam(ctx, w, key)
}

func (h *Handler) LoadManualPlayers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.LoadManualPlayers")
	defer span.End()

	key, err := teamKeyFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	var req manualPlayersRequest
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

	if err := h.tracker.LoadManualPlayers(ctx, key, req.AccountIDs); err != nil {
		h.logger.WarnContext(ctx, "load manual players failed", "team_id", key.TeamID, "league_id", key.LeagueID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.writeTeam(ctx, w, key)
}

func (h *Handler) RemoveManualPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.RemoveManualPlayer")
	defer span.End()

	key, err := teamKeyFromPath(r)
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	if err := h.tracker.RemoveManualPlayer(ctx, key, accountID); err != nil {
		h.logger.WarnContext(ctx, "remove manual player failed", "team_id", key.TeamID, "league_id", key.LeagueID, "account_id", accountID, "error", err)
		writeError(ctx, w, err)
		return
	}

	h.writeTeam(ctx, w, key)
}

// writeTeam returns the current record after a mutation; the record may be
// gone when a concurrent removal won.
func (h *Handler) writeTeam(ctx context.Context, w http.ResponseWriter, key team.Key) {
	record, err := h.tracker.GetTeam(key)
	if err != nil {
		writeSuccess(ctx, w, http.StatusOK, nil)
		return
	}
	writeSuccess(ctx, w, http.StatusOK, trackedTeamToDTO(ctx, record))
}
