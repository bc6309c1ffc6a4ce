package repository

import (
	"context"
	"fmt"

	"nbastats/reconciliation/internal/metrics"
	"nbastats/reconciliation/internal/models"
)

// GameRepository aggregates the game_summary fact table: one row per
// player-game with per-metric integer columns. The table is owned by
// the ingestion pipeline; this repository only reads.
type GameRepository struct {
	db *Database
}

// SeasonTotals sums the player's regular-season game log grouped by
// season. An unknown player yields an empty slice, not an error.
func (r *GameRepository) SeasonTotals(ctx context.Context, playerID string) ([]models.SeasonTotals, error) {
	query := `
		SELECT season,
		       COALESCE(SUM(points), 0),
		       COALESCE(SUM(rebounds), 0),
		       COALESCE(SUM(assists), 0),
		       COALESCE(SUM(steals), 0),
		       COALESCE(SUM(blocks), 0)
		FROM game_summary
		WHERE player_id = $1 AND season_type = $2
		GROUP BY season
		ORDER BY season
	`

	rows, err := r.db.Pool.Query(ctx, query, playerID, models.RegularSeason)
	if err != nil {
		metrics.RecordDBQuery("select", "game_summary", "error")
		return nil, fmt.Errorf("failed to aggregate season totals: %w", err)
	}
	defer rows.Close()

	var seasons []models.SeasonTotals
	for rows.Next() {
		var season string
		var pts, reb, ast, stl, blk int64
		if err := rows.Scan(&season, &pts, &reb, &ast, &stl, &blk); err != nil {
			return nil, fmt.Errorf("failed to scan season totals: %w", err)
		}
		seasons = append(seasons, models.SeasonTotals{
			Season: season,
			Totals: models.Totals{
				models.Points:   int(pts),
				models.Rebounds: int(reb),
				models.Assists:  int(ast),
				models.Steals:   int(stl),
				models.Blocks:   int(blk),
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating season totals: %w", err)
	}

	metrics.RecordDBQuery("select", "game_summary", "success")
	return seasons, nil
}

// CareerTotal returns the player's corrected career total for one
// metric: the raw game-log sum plus the sum of any overrides for the
// same season_type.
func (r *GameRepository) CareerTotal(ctx context.Context, playerID string, metric models.Metric) (int, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(%s), 0)
		FROM game_summary
		WHERE player_id = $1 AND season_type = $2
	`, metric)

	var base int64
	if err := r.db.Pool.QueryRow(ctx, query, playerID, models.RegularSeason).Scan(&base); err != nil {
		metrics.RecordDBQuery("select", "game_summary", "error")
		return 0, fmt.Errorf("failed to sum game log: %w", err)
	}
	metrics.RecordDBQuery("select", "game_summary", "success")

	overrides, err := r.db.Overrides.SumByPlayer(ctx, playerID, models.RegularSeason)
	if err != nil {
		return 0, err
	}

	return int(base) + overrides[metric], nil
}

// TopByMetric returns the local top-N regular-season leaders for one
// metric, ranked by raw game-log sum. Used as the validation fallback
// when the provider's leaderboard table is unavailable.
func (r *GameRepository) TopByMetric(ctx context.Context, metric models.Metric, n int) ([]models.LeaderRow, error) {
	query := fmt.Sprintf(`
		SELECT s.player_id, COALESCE(p.full_name, ''), COALESCE(SUM(s.%s), 0) AS total
		FROM game_summary s
		LEFT JOIN players p ON p.id = s.player_id
		WHERE s.season_type = $1
		GROUP BY s.player_id, p.full_name
		ORDER BY total DESC
		LIMIT $2
	`, metric)

	rows, err := r.db.Pool.Query(ctx, query, models.RegularSeason, n)
	if err != nil {
		metrics.RecordDBQuery("select", "game_summary", "error")
		return nil, fmt.Errorf("failed to compute local leaders: %w", err)
	}
	defer rows.Close()

	var leaders []models.LeaderRow
	rank := 0
	for rows.Next() {
		var playerID, name string
		var total int64
		if err := rows.Scan(&playerID, &name, &total); err != nil {
			return nil, fmt.Errorf("failed to scan local leader: %w", err)
		}
		rank++
		if name == "" {
			name = fmt.Sprintf("player_%s", playerID)
		}
		leaders = append(leaders, models.LeaderRow{
			Rank:       rank,
			PlayerID:   playerID,
			PlayerName: name,
			Value:      int(total),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating local leaders: %w", err)
	}

	metrics.RecordDBQuery("select", "game_summary", "success")
	return leaders, nil
}

// NullSeasonTypeCount counts a player's stat rows with a NULL
// season_type. Mis-bucketed rows are the usual culprit behind a
// non-zero delta, so the validator surfaces this alongside each one.
func (r *GameRepository) NullSeasonTypeCount(ctx context.Context, playerID string) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM player_stats
		WHERE player_id = $1 AND season_type IS NULL
	`

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, playerID).Scan(&count); err != nil {
		metrics.RecordDBQuery("select", "player_stats", "error")
		return 0, fmt.Errorf("failed to count null season_type rows: %w", err)
	}
	metrics.RecordDBQuery("select", "player_stats", "success")
	return int(count), nil
}
