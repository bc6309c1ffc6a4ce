package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"nbastats/reconciliation/internal/metrics"
	"nbastats/reconciliation/internal/models"

	"github.com/rs/zerolog/log"
)

// Provider fetches official totals from the stats provider.
type Provider interface {
	CareerBySeason(ctx context.Context, playerID string) ([]models.SeasonTotals, error)
	CareerTotals(ctx context.Context, playerID string) (models.Totals, bool, error)
	AllTimeLeaderRows(ctx context.Context, topN int) (map[models.Metric][]models.LeaderRow, error)
}

// LocalStore aggregates the local game log.
type LocalStore interface {
	SeasonTotals(ctx context.Context, playerID string) ([]models.SeasonTotals, error)
	CareerTotal(ctx context.Context, playerID string, metric models.Metric) (int, error)
	TopByMetric(ctx context.Context, metric models.Metric, n int) ([]models.LeaderRow, error)
	NullSeasonTypeCount(ctx context.Context, playerID string) (int, error)
}

// OverrideStore persists corrective deltas.
type OverrideStore interface {
	Upsert(ctx context.Context, o *models.Override) error
}

// Reconciler drives per-player reconciliation: fetch official series,
// aggregate local series, align, diff, persist non-zero deltas.
type Reconciler struct {
	provider  Provider
	local     LocalStore
	overrides OverrideStore
}

// NewReconciler creates a reconciler over the given collaborators.
func NewReconciler(provider Provider, local LocalStore, overrides OverrideStore) *Reconciler {
	return &Reconciler{provider: provider, local: local, overrides: overrides}
}

// ReconcilePlayer computes and persists season overrides for one
// player. Returns the number of seasons whose override was written.
// A player with no local games reconciles against an all-zero series.
func (r *Reconciler) ReconcilePlayer(ctx context.Context, playerID string) (int, error) {
	official, err := r.provider.CareerBySeason(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch official series for player %s: %w", playerID, err)
	}

	local, err := r.local.SeasonTotals(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("failed to aggregate local series for player %s: %w", playerID, err)
	}

	aligned := Align(official, local)
	deltas := Deltas(playerID, aligned)

	written := 0
	for _, d := range deltas {
		o := &models.Override{
			PlayerID:   d.PlayerID,
			Season:     d.Season,
			SeasonType: models.RegularSeason,
			Deltas:     d.Deltas,
		}
		if err := r.overrides.Upsert(ctx, o); err != nil {
			return written, fmt.Errorf("failed to persist override for season %s: %w", d.Season, err)
		}
		written++
	}

	log.Info().
		Str("player_id", playerID).
		Int("official_seasons", len(official)).
		Int("local_seasons", len(local)).
		Int("overrides_written", written).
		Msg("Player reconciled")
	return written, nil
}

// BatchResult summarizes one batch reconciliation run.
type BatchResult struct {
	Players        int
	SeasonsUpdated int
	Errors         int
}

// ReconcileBatch reconciles a set of players sequentially. Remote
// pacing makes this deliberately slow; parallelizing would trip the
// provider's rate limits. A failure on one player is counted and the
// batch continues; only shared-setup failures abort a run.
func (r *Reconciler) ReconcileBatch(ctx context.Context, playerIDs []string) BatchResult {
	start := time.Now()

	ids := make([]string, len(playerIDs))
	copy(ids, playerIDs)
	sort.Strings(ids)

	var res BatchResult
	for _, playerID := range ids {
		if ctx.Err() != nil {
			log.Warn().Err(ctx.Err()).Msg("Batch reconciliation interrupted")
			break
		}

		updated, err := r.ReconcilePlayer(ctx, playerID)
		res.Players++
		res.SeasonsUpdated += updated
		if err != nil {
			res.Errors++
			metrics.RecordPlayerReconciled("error")
			log.Error().Err(err).Str("player_id", playerID).Msg("Failed to reconcile player, continuing batch")
			continue
		}
		metrics.RecordPlayerReconciled("success")
	}

	metrics.RecordRun("batch", res.Errors == 0, time.Since(start).Seconds())
	log.Info().
		Int("players", res.Players).
		Int("seasons_updated", res.SeasonsUpdated).
		Int("errors", res.Errors).
		Dur("duration", time.Since(start)).
		Msg("Batch reconciliation complete")
	return res
}
