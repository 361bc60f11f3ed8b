package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/riskibarqy/dota-tracker/internal/domain/match"
	"github.com/riskibarqy/dota-tracker/internal/domain/player"
	"github.com/riskibarqy/dota-tracker/internal/usecase"
)

type matchDTO struct {
	ID           int64           `json:"id"`
	LeagueID     int64           `json:"leagueId,omitempty"`
	RadiantWin   bool            `json:"radiantWin"`
	DurationSec  int             `json:"durationSec"`
	StartTime    string          `json:"startTime,omitempty"`
	RadiantTeam  int64           `json:"radiantTeamId,omitempty"`
	DireTeam     int64           `json:"direTeamId,omitempty"`
	RadiantName  string          `json:"radiantName,omitempty"`
	DireName     string          `json:"direName,omitempty"`
	FirstPick    int64           `json:"firstPickTeamId,omitempty"`
	Participants []playerSlotDTO `json:"participants"`
}

type playerSlotDTO struct {
	AccountID int64  `json:"accountId"`
	Name      string `json:"name,omitempty"`
	IsRadiant bool   `json:"isRadiant"`
}

type matchEntryDTO struct {
	Loading bool      `json:"loading"`
	Error   string    `json:"error,omitempty"`
	Match   *matchDTO `json:"match,omitempty"`
}

type playerDTO struct {
	AccountID int64  `json:"accountId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	RankTier  int    `json:"rankTier,omitempty"`
	TeamID    int64  `json:"teamId,omitempty"`
}

type playerEntryDTO struct {
	Loading bool       `json:"loading"`
	Error   string     `json:"error,omitempty"`
	Player  *playerDTO `json:"player,omitempty"`
}

func (h *Handler) GetMatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetMatch")
	defer span.End()

	matchID, err := pathID(r, "matchID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entry, ok := h.matches.GetMatch(matchID)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: match %d is not tracked", usecase.ErrNotFound, matchID))
		return
	}

	dto := matchEntryDTO{Loading: entry.Loading}
	if entry.Err != nil {
		dto.Error = entry.Err.Error()
	}
	if entry.Settled() && entry.Err == nil {
		m := matchToDTO(ctx, entry.Value)
		dto.Match = &m
	}

	writeSuccess(ctx, w, http.StatusOK, dto)
}

func (h *Handler) GetPlayer(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetPlayer")
	defer span.End()

	accountID, err := pathID(r, "accountID")
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	entry, ok := h.players.Get(accountID)
	if !ok {
		writeError(ctx, w, fmt.Errorf("%w: player %d is not tracked", usecase.ErrNotFound, accountID))
		return
	}

	dto := playerEntryDTO{Loading: entry.Loading}
	if entry.Err != nil {
		dto.Error = entry.Err.Error()
	}
	if entry.Settled() && entry.Err == nil {
		p := playerToDTO(entry.Value)
		dto.Player = &p
	}

	writeSuccess(ctx, w, http.StatusOK, dto)
}

func matchToDTO(ctx context.Context, m match.Match) matchDTO {
	ctx, span := startSpan(ctx, "httpapi.matchToDTO")
	defer span.End()

	participants := make([]playerSlotDTO, 0, len(m.Participants))
	for _, slot := range m.Participants {
		participants = append(participants, playerSlotDTO{
			AccountID: slot.AccountID,
			Name:      slot.Name,
			IsRadiant: slot.IsRadiant,
		})
	}

	startTime := ""
	if !m.StartTime.IsZero() {
		startTime = m.StartTime.UTC().Format(time.RFC3339)
	}

	return matchDTO{
		ID:           m.ID,
		LeagueID:     m.LeagueID,
		RadiantWin:   m.RadiantWin,
		DurationSec:  m.DurationSec,
		StartTime:    startTime,
		RadiantTeam:  m.RadiantTeam,
		DireTeam:     m.DireTeam,
		RadiantName:  m.RadiantName,
		DireName:     m.DireName,
		FirstPick:    m.FirstPick,
		Participants: participants,
	}
}

func playerToDTO(p player.Player) playerDTO {
	return playerDTO{
		AccountID: p.AccountID,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		RankTier:  p.RankTier,
		TeamID:    p.TeamID,
	}
}
