// Package postgres persists the durable slice of tracker state: which
// teams are tracked and their manual overrides. Everything else is
// re-derived from upstream on boot.
package postgres

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/riskibarqy/dota-tracker/internal/domain/team"
	"github.com/riskibarqy/dota-tracker/internal/usecase"
)

type RosterRepository struct {
	db *sqlx.DB
}

func NewRosterRepository(db *sqlx.DB) *RosterRepository {
	return &RosterRepository{db: db}
}

func (r *RosterRepository) List(ctx context.Context) ([]usecase.RosterEntry, error) {
	const query = `
SELECT team_id, league_id, manual_matches, manual_players, created_at, updated_at
FROM tracked_teams
ORDER BY created_at, team_id, league_id`

	var rows []rosterTableModel
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list tracked teams: %w", err)
	}

	out := make([]usecase.RosterEntry, 0, len(rows))
	for _, row := range rows {
		entry, err := rosterFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

func (r *RosterRepository) Get(ctx context.Context, key team.Key) (usecase.RosterEntry, bool, error) {
	const query = `
SELECT team_id, league_id, manual_matches, manual_players, created_at, updated_at
FROM tracked_teams
WHERE team_id = $1 AND league_id = $2`

	var row rosterTableModel
	if err := r.db.GetContext(ctx, &row, query, key.TeamID, key.LeagueID); err != nil {
		if isNotFound(err) {
			return usecase.RosterEntry{}, false, nil
		}
		return usecase.RosterEntry{}, false, fmt.Errorf("get tracked team: %w", err)
	}

	entry, err := rosterFromRow(row)
	if err != nil {
		return usecase.RosterEntry{}, false, err
	}
	return entry, true, nil
}

func (r *RosterRepository) Upsert(ctx context.Context, entry usecase.RosterEntry) error {
	if err := entry.Key.Validate(); err != nil {
		return fmt.Errorf("upsert tracked team: %w", err)
	}

	manualMatches, err := sonic.Marshal(sideByMatchID(entry.ManualMatches))
	if err != nil {
		return fmt.Errorf("encode manual matches: %w", err)
	}

	const query = `
INSERT INTO tracked_teams (team_id, league_id, manual_matches, manual_players)
VALUES ($1, $2, $3, $4)
ON CONFLICT (team_id, league_id)
DO UPDATE SET
    manual_matches = EXCLUDED.manual_matches,
    manual_players = EXCLUDED.manual_players,
    updated_at = now()`

	if _, err := r.db.ExecContext(ctx, query,
		entry.Key.TeamID,
		entry.Key.LeagueID,
		manualMatches,
		pq.Int64Array(entry.ManualPlayers),
	); err != nil {
		return fmt.Errorf("upsert tracked team: %w", err)
	}
	return nil
}

func (r *RosterRepository) Delete(ctx context.Context, key team.Key) error {
	const query = `DELETE FROM tracked_teams WHERE team_id = $1 AND league_id = $2`
	if _, err := r.db.ExecContext(ctx, query, key.TeamID, key.LeagueID); err != nil {
		return fmt.Errorf("delete tracked team: %w", err)
	}
	return nil
}

func rosterFromRow(row rosterTableModel) (usecase.RosterEntry, error) {
	entry := usecase.RosterEntry{
		Key:           team.Key{TeamID: row.TeamID, LeagueID: row.LeagueID},
		ManualMatches: make(map[int64]team.Side),
		ManualPlayers: append([]int64(nil), row.ManualPlayers...),
	}

	if len(row.ManualMatches) > 0 {
		var raw map[int64]string
		if err := sonic.Unmarshal(row.ManualMatches, &raw); err != nil {
			return usecase.RosterEntry{}, fmt.Errorf("decode manual matches team_id=%d league_id=%d: %w", row.TeamID, row.LeagueID, err)
		}
		for id, side := range raw {
			entry.ManualMatches[id] = team.NormalizeSide(side)
		}
	}
	return entry, nil
}

// sideByMatchID keeps the jsonb column free of domain types.
func sideByMatchID(manual map[int64]team.Side) map[int64]string {
	out := make(map[int64]string, len(manual))
	for id, side := range manual {
		out[id] = string(side)
	}
	return out
}

func isNotFound(err error) bool {
	return stderrors.Is(err, sql.ErrNoRows)
}
