package postgres

import (
	"time"

	"github.com/lib/pq"
)

type rosterTableModel struct {
	TeamID        int64         `db:"team_id"`
	LeagueID      int64         `db:"league_id"`
	ManualMatches []byte        `db:"manual_matches"`
	ManualPlayers pq.Int64Array `db:"manual_players"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}
