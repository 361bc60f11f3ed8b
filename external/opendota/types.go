package opendota

import (
	"strings"
	"time"

	"github.com/riskibarqy/dota-tracker/internal/domain/match"
	"github.com/riskibarqy/dota-tracker/internal/domain/player"
	"github.com/riskibarqy/dota-tracker/internal/usecase"
)

type teamPayload struct {
	TeamID  int64   `json:"team_id"`
	Rating  float64 `json:"rating"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	Name    string  `json:"name"`
	Tag     string  `json:"tag"`
	LogoURL string  `json:"logo_url"`
}

func (p teamPayload) toSource() usecase.SourceTeam {
	return usecase.SourceTeam{
		ID:     p.TeamID,
		Name:   strings.TrimSpace(p.Name),
		Tag:    strings.TrimSpace(p.Tag),
		Rating: p.Rating,
		Wins:   p.Wins,
		Losses: p.Losses,
	}
}

type leaguePayload struct {
	LeagueID int64  `json:"leagueid"`
	Name     string `json:"name"`
	Tier     string `json:"tier"`
}

type leagueMatchPayload struct {
	MatchID       int64 `json:"match_id"`
	RadiantTeamID int64 `json:"radiant_team_id"`
	DireTeamID    int64 `json:"dire_team_id"`
}

type matchPayload struct {
	MatchID       int64                `json:"match_id"`
	LeagueID      int64                `json:"leagueid"`
	RadiantWin    bool                 `json:"radiant_win"`
	Duration      int                  `json:"duration"`
	StartTime     int64                `json:"start_time"`
	RadiantTeamID int64                `json:"radiant_team_id"`
	DireTeamID    int64                `json:"dire_team_id"`
	RadiantName   string               `json:"radiant_name"`
	DireName      string               `json:"dire_name"`
	PicksBans     []pickBanPayload     `json:"picks_bans"`
	Players       []matchPlayerPayload `json:"players"`
}

type pickBanPayload struct {
	IsPick bool `json:"is_pick"`
	Team   int  `json:"team"` // 0 radiant, 1 dire
	Order  int  `json:"order"`
}

type matchPlayerPayload struct {
	AccountID   int64  `json:"account_id"`
	Personaname string `json:"personaname"`
	Name        string `json:"name"`
	PlayerSlot  int    `json:"player_slot"` // slots >= 128 are dire
}

func (p matchPayload) toDomain() match.Match {
	out := match.Match{
		ID:          p.MatchID,
		LeagueID:    p.LeagueID,
		RadiantWin:  p.RadiantWin,
		DurationSec: p.Duration,
		RadiantTeam: p.RadiantTeamID,
		DireTeam:    p.DireTeamID,
		RadiantName: strings.TrimSpace(p.RadiantName),
		DireName:    strings.TrimSpace(p.DireName),
		FirstPick:   firstPickTeam(p.PicksBans, p.RadiantTeamID, p.DireTeamID),
	}
	if p.StartTime > 0 {
		out.StartTime = time.Unix(p.StartTime, 0).UTC()
	}

	out.Participants = make([]match.PlayerSlot, 0, len(p.Players))
	for _, slot := range p.Players {
		name := strings.TrimSpace(slot.Name)
		if name == "" {
			name = strings.TrimSpace(slot.Personaname)
		}
		out.Participants = append(out.Participants, match.PlayerSlot{
			AccountID: slot.AccountID,
			Name:      name,
			IsRadiant: slot.PlayerSlot < 128,
		})
	}
	return out
}

// firstPickTeam resolves the draft's first pick to a team id, 0 when the
// draft data is missing.
func firstPickTeam(picks []pickBanPayload, radiantID, direID int64) int64 {
	best := -1
	side := -1
	for _, pb := range picks {
		if !pb.IsPick {
			continue
		}
		if best == -1 || pb.Order < best {
			best = pb.Order
			side = pb.Team
		}
	}
	switch side {
	case 0:
		return radiantID
	case 1:
		return direID
	default:
		return 0
	}
}

type playerPayload struct {
	Profile struct {
		AccountID   int64  `json:"account_id"`
		Personaname string `json:"personaname"`
		Name        string `json:"name"`
		Avatar      string `json:"avatarfull"`
	} `json:"profile"`
	RankTier int `json:"rank_tier"`
}

func (p playerPayload) toDomain(accountID int64) player.Player {
	name := strings.TrimSpace(p.Profile.Name)
	if name == "" {
		name = strings.TrimSpace(p.Profile.Personaname)
	}
	id := p.Profile.AccountID
	if id <= 0 {
		id = accountID
	}
	return player.Player{
		AccountID: id,
		Name:      name,
		AvatarURL: strings.TrimSpace(p.Profile.Avatar),
		RankTier:  p.RankTier,
	}
}
