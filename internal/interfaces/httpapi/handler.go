package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/dota-tracker/internal/domain/team"
	"github.com/riskibarqy/dota-tracker/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/dota-tracker/internal/platform/logging"
	"github.com/riskibarqy/dota-tracker/internal/usecase"
)

type Handler struct {
	tracker *usecase.TrackerService
	matches *memory.MatchStore
	players *memory.PlayerStore
	logger  *logging.Logger

	validator *validator.Validate
}

func NewHandler(
	tracker *usecase.TrackerService,
	matches *memory.MatchStore,
	players *memory.PlayerStore,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		tracker:   tracker,
		matches:   matches,
		players:   players,
		logger:    logger,
		validator: validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.Healthz")
	defer span.End()

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	ctx, span := startSpan(ctx, "httpapi.Handler.validateRequest")
	defer span.End()

	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer", usecase.ErrInvalidInput, name)
	}
	return id, nil
}

func teamKeyFromPath(r *http.Request) (team.Key, error) {
	teamID, err := pathID(r, "teamID")
	if err != nil {
		return team.Key{}, err
	}
	leagueID, err := pathID(r, "leagueID")
	if err != nil {
		return team.Key{}, err
	}
	return team.Key{TeamID: teamID, LeagueID: leagueID}, nil
}

type teamKeyRequest struct {
	TeamID   int64 `json:"team_id" validate:"required,gt=0"`
	LeagueID int64 `json:"league_id" validate:"required,gt=0"`
}

type addTeamRequest struct {
	TeamID   int64 `json:"team_id" validate:"required,gt=0"`
	LeagueID int64 `json:"league_id" validate:"required,gt=0"`
	Force    bool  `json:"force"`
}

type manualMatchItem struct {
	MatchID int64  `json:"match_id" validate:"required,gt=0"`
	Side    string `json:"side" validate:"omitempty,oneof=radiant dire unknown"`
}

type manualMatchesRequest struct {
	Matches []manualMatchItem `json:"matches" validate:"required,min=1,dive"`
}

type editManualMatchRequest struct {
	NewMatchID int64  `json:"new_match_id" validate:"required,gt=0"`
	Side       string `json:"side" validate:"omitempty,oneof=radiant dire unknown"`
}

// manualPlayersRequest rides team.ManualPlayerList so pinned players
// arrive as either an id array or an id-keyed object; both shapes land
// here as a sorted array.
type manualPlayersRequest struct {
	AccountIDs team.ManualPlayerList `json:"account_ids" validate:"required,min=1,dive,gt=0"`
}

type trackedTeamDTO struct {
	TeamID        int64              `json:"teamId"`
	LeagueID      int64              `json:"leagueId"`
	Name          string             `json:"name"`
	Tag           string             `json:"tag,omitempty"`
	LeagueName    string             `json:"leagueName"`
	LeagueTier    string             `json:"leagueTier,omitempty"`
	Loading       bool               `json:"loading"`
	Failure       *failureDTO        `json:"failure,omitempty"`
	Matches       []participationDTO `json:"matches"`
	ManualMatches []manualMatchDTO   `json:"manualMatches"`
	Players       []rosterPlayerDTO  `json:"players"`
	ManualPlayers []int64            `json:"manualPlayers"`
	Performance   performanceDTO     `json:"performance"`
	CreatedAtUTC  string             `json:"createdAtUtc"`
}

type failureDTO struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type participationDTO struct {
	MatchID     int64  `json:"matchId"`
	Won         bool   `json:"won"`
	DurationSec int    `json:"durationSec"`
	Opponent    string `json:"opponent"`
	LeagueID    int64  `json:"leagueId,omitempty"`
	StartTime   string `json:"startTime,omitempty"`
	Side        string `json:"side"`
	PickOrder   string `json:"pickOrder"`
	Placeholder bool   `json:"placeholder"`
}

type manualMatchDTO struct {
	MatchID int64  `json:"matchId"`
	Side    string `json:"side"`
}

type rosterPlayerDTO struct {
	AccountID int64  `json:"accountId"`
	Name      string `json:"name"`
	Manual    bool   `json:"manual"`
}

type performanceDTO struct {
	TotalMatches   int `json:"totalMatches"`
	Wins           int `json:"wins"`
	Losses         int `json:"losses"`
	AvgDurationSec int `json:"avgDurationSec"`
}

type selectionDTO struct {
	TeamID   int64 `json:"teamId"`
	LeagueID int64 `json:"leagueId"`
}

func trackedTeamToDTO(ctx context.Context, v team.TrackedTeam) trackedTeamDTO {
	ctx, span := startSpan(ctx, "httpapi.trackedTeamToDTO")
	defer span.End()

	matches := make([]participationDTO, 0, len(v.Matches))
	for _, id := range v.MatchIDs() {
		matches = append(matches, participationToDTO(v.Matches[id]))
	}

	manual := make([]manualMatchDTO, 0, len(v.ManualMatches))
	for id, side := range v.ManualMatches {
		manual = append(manual, manualMatchDTO{MatchID: id, Side: string(side)})
	}
	sort.Slice(manual, func(i, j int) bool { return manual[i].MatchID < manual[j].MatchID })

	players := make([]rosterPlayerDTO, 0, len(v.Players))
	for _, p := range v.Players {
		players = append(players, rosterPlayerDTO{
			AccountID: p.AccountID,
			Name:      p.Name,
			Manual:    p.Manual,
		})
	}
	sort.Slice(players, func(i, j int) bool { return players[i].AccountID < players[j].AccountID })

	dto := trackedTeamDTO{
		TeamID:        v.TeamID,
		LeagueID:      v.LeagueID,
		Name:          v.Name,
		Tag:           v.Tag,
		LeagueName:    v.LeagueName,
		LeagueTier:    v.LeagueTier,
		Loading:       v.Loading,
		Matches:       matches,
		ManualMatches: manual,
		Players:       players,
		ManualPlayers: append([]int64(nil), v.ManualPlayers...),
		Performance: performanceDTO{
			TotalMatches:   v.Performance.TotalMatches,
			Wins:           v.Performance.Wins,
			Losses:         v.Performance.Losses,
			AvgDurationSec: v.Performance.AvgDurationSec,
		},
		CreatedAtUTC: v.CreatedAt.UTC().Format(time.RFC3339),
	}
	if v.Failure != nil {
		dto.Failure = &failureDTO{
			Kind:    string(v.Failure.Kind),
			Message: v.Failure.Message,
		}
	}
	return dto
}

func participationToDTO(p team.MatchParticipation) participationDTO {
	startTime := ""
	if !p.StartTime.IsZero() {
		startTime = p.StartTime.UTC().Format(time.RFC3339)
	}
	return participationDTO{
		MatchID:     p.MatchID,
		Won:         p.Won,
		DurationSec: p.DurationSec,
		Opponent:    p.Opponent,
		LeagueID:    p.LeagueID,
		StartTime:   startTime,
		Side:        string(p.Side),
		PickOrder:   string(p.PickOrder),
		Placeholder: p.Placeholder(),
	}
}
