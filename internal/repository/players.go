package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PlayerRepository reads the players reference table.
type PlayerRepository struct {
	db *Database
}

// GetName returns a player's display name, or "" when the player is
// not in the local store. Missing names are expected for leaderboard
// entries the ingestion pipeline has not covered yet.
func (r *PlayerRepository) GetName(ctx context.Context, playerID string) (string, error) {
	query := `SELECT full_name FROM players WHERE id = $1`

	var name string
	err := r.db.Pool.QueryRow(ctx, query, playerID).Scan(&name)
	if err == pgx.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get player name: %w", err)
	}
	return name, nil
}
