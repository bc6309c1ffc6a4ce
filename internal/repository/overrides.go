package repository

import (
	"context"
	"fmt"

	"nbastats/reconciliation/internal/metrics"
	"nbastats/reconciliation/internal/models"

	"github.com/rs/zerolog/log"
)

// OverrideRepository owns the season_totals_override table: corrective
// per-season deltas that bridge the local game log to official totals
// without touching the raw facts.
type OverrideRepository struct {
	db *Database
}

// EnsureSchema creates the override table if it does not exist.
// Safe to call on every run.
func (r *OverrideRepository) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS season_totals_override (
			player_id   TEXT NOT NULL,
			season      TEXT NOT NULL,
			season_type TEXT NOT NULL DEFAULT 'Regular Season',
			points      INTEGER NOT NULL DEFAULT 0,
			rebounds    INTEGER NOT NULL DEFAULT 0,
			assists     INTEGER NOT NULL DEFAULT 0,
			steals      INTEGER NOT NULL DEFAULT 0,
			blocks      INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (player_id, season, season_type)
		)
	`

	if _, err := r.db.Pool.Exec(ctx, query); err != nil {
		metrics.RecordDBQuery("create", "season_totals_override", "error")
		return fmt.Errorf("failed to ensure override table: %w", err)
	}
	metrics.RecordDBQuery("create", "season_totals_override", "success")
	return nil
}

// Upsert writes a corrective delta set for one (player, season,
// season_type) key. The record is replaced wholesale: every metric
// column is overwritten, never merged with the prior value, so the
// latest computation is always authoritative and re-applying the same
// deltas is a no-op.
func (r *OverrideRepository) Upsert(ctx context.Context, o *models.Override) error {
	query := `
		INSERT INTO season_totals_override (player_id, season, season_type, points, rebounds, assists, steals, blocks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (player_id, season, season_type) DO UPDATE SET
			points   = EXCLUDED.points,
			rebounds = EXCLUDED.rebounds,
			assists  = EXCLUDED.assists,
			steals   = EXCLUDED.steals,
			blocks   = EXCLUDED.blocks
	`

	seasonType := o.SeasonType
	if seasonType == "" {
		seasonType = models.RegularSeason
	}

	_, err := r.db.Pool.Exec(ctx, query,
		o.PlayerID, o.Season, seasonType,
		o.Deltas[models.Points],
		o.Deltas[models.Rebounds],
		o.Deltas[models.Assists],
		o.Deltas[models.Steals],
		o.Deltas[models.Blocks],
	)
	if err != nil {
		metrics.RecordDBQuery("upsert", "season_totals_override", "error")
		return fmt.Errorf("failed to upsert override: %w", err)
	}

	metrics.RecordDBQuery("upsert", "season_totals_override", "success")
	metrics.RecordOverrideUpsert()
	log.Debug().
		Str("player_id", o.PlayerID).
		Str("season", o.Season).
		Str("season_type", seasonType).
		Msg("Season override upserted")
	return nil
}

// SumByPlayer returns the per-metric sum of a player's overrides for
// one season_type. Consumed by the corrected-total read path: raw game
// log sum plus this equals the official total after reconciliation.
func (r *OverrideRepository) SumByPlayer(ctx context.Context, playerID, seasonType string) (models.Totals, error) {
	query := `
		SELECT COALESCE(SUM(points), 0),
		       COALESCE(SUM(rebounds), 0),
		       COALESCE(SUM(assists), 0),
		       COALESCE(SUM(steals), 0),
		       COALESCE(SUM(blocks), 0)
		FROM season_totals_override
		WHERE player_id = $1 AND season_type = $2
	`

	totals := models.ZeroTotals()
	var pts, reb, ast, stl, blk int64
	err := r.db.Pool.QueryRow(ctx, query, playerID, seasonType).Scan(&pts, &reb, &ast, &stl, &blk)
	if err != nil {
		metrics.RecordDBQuery("select", "season_totals_override", "error")
		return nil, fmt.Errorf("failed to sum overrides: %w", err)
	}
	metrics.RecordDBQuery("select", "season_totals_override", "success")

	totals[models.Points] = int(pts)
	totals[models.Rebounds] = int(reb)
	totals[models.Assists] = int(ast)
	totals[models.Steals] = int(stl)
	totals[models.Blocks] = int(blk)
	return totals, nil
}

// GetByPlayer lists a player's override rows for one season_type.
func (r *OverrideRepository) GetByPlayer(ctx context.Context, playerID, seasonType string) ([]*models.Override, error) {
	query := `
		SELECT player_id, season, season_type, points, rebounds, assists, steals, blocks
		FROM season_totals_override
		WHERE player_id = $1 AND season_type = $2
		ORDER BY season
	`

	rows, err := r.db.Pool.Query(ctx, query, playerID, seasonType)
	if err != nil {
		metrics.RecordDBQuery("select", "season_totals_override", "error")
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	defer rows.Close()

	var overrides []*models.Override
	for rows.Next() {
		var o models.Override
		var pts, reb, ast, stl, blk int
		if err := rows.Scan(&o.PlayerID, &o.Season, &o.SeasonType, &pts, &reb, &ast, &stl, &blk); err != nil {
			return nil, fmt.Errorf("failed to scan override: %w", err)
		}
		o.Deltas = models.Totals{
			models.Points:   pts,
			models.Rebounds: reb,
			models.Assists:  ast,
			models.Steals:   stl,
			models.Blocks:   blk,
		}
		overrides = append(overrides, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating overrides: %w", err)
	}

	metrics.RecordDBQuery("select", "season_totals_override", "success")
	return overrides, nil
}
