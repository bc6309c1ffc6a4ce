package reconcile

import (
	"context"
	"time"

	"nbastats/reconciliation/internal/metrics"
	"nbastats/reconciliation/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultTopN is how deep each leaderboard is checked.
const DefaultTopN = 25

// Validator compares the provider's all-time leaderboards against
// corrected local totals and reports per-player deltas. Its non-zero
// rows are the input to the batch override driver.
type Validator struct {
	provider Provider
	local    LocalStore
}

// NewValidator creates a validator over the given collaborators.
func NewValidator(provider Provider, local LocalStore) *Validator {
	return &Validator{provider: provider, local: local}
}

// ValidationResult holds the full report and the subset with non-zero
// deltas.
type ValidationResult struct {
	Report        []models.ReportRow
	Discrepancies []models.ReportRow
}

// Validate checks the top-N leaders of every tracked metric. For each
// metric it prefers the provider's leaderboard table; when that table
// is missing or the fetch failed, it falls back to the local top-N
// joined against per-player official career totals. Per-player
// failures are logged and skipped; only a fully unusable local store
// is a run failure.
func (v *Validator) Validate(ctx context.Context, topN int) (*ValidationResult, error) {
	start := time.Now()
	if topN <= 0 {
		topN = DefaultTopN
	}

	boards, err := v.provider.AllTimeLeaderRows(ctx, topN)
	if err != nil {
		log.Warn().Err(err).Msg("Leaderboard fetch failed, validating every metric via local fallback")
		boards = nil
	}

	res := &ValidationResult{}
	for _, metric := range models.Metrics {
		var rows []models.ReportRow
		if leaders, ok := boards[metric]; ok {
			rows = v.validateMetric(ctx, metric, leaders)
		} else {
			log.Info().Str("metric", string(metric)).Msg("Provider table missing, using local top-N fallback")
			fallbackRows, err := v.validateMetricFallback(ctx, metric, topN)
			if err != nil {
				return nil, err
			}
			rows = fallbackRows
		}

		mismatches := 0
		for _, row := range rows {
			res.Report = append(res.Report, row)
			if row.Delta != 0 {
				res.Discrepancies = append(res.Discrepancies, row)
				metrics.RecordDiscrepancy(string(metric))
				mismatches++
			}
		}
		log.Info().
			Str("metric", string(metric)).
			Int("checked", len(rows)).
			Int("mismatches", mismatches).
			Msg("Metric validated")
	}

	metrics.RecordRun("validate", true, time.Since(start).Seconds())
	return res, nil
}

// validateMetric compares the provider's leaderboard against corrected
// local career totals.
func (v *Validator) validateMetric(ctx context.Context, metric models.Metric, leaders []models.LeaderRow) []models.ReportRow {
	var rows []models.ReportRow
	for _, leader := range leaders {
		localTotal, err := v.local.CareerTotal(ctx, leader.PlayerID, metric)
		if err != nil {
			log.Error().Err(err).Str("player_id", leader.PlayerID).Msg("Failed to compute local total, skipping")
			continue
		}
		nullRows := v.nullSeasonTypeCount(ctx, leader.PlayerID)

		rows = append(rows, models.ReportRow{
			Metric:             metric,
			Rank:               leader.Rank,
			PlayerID:           leader.PlayerID,
			PlayerName:         leader.PlayerName,
			Official:           leader.Value,
			LocalTotal:         localTotal,
			Delta:              leader.Value - localTotal,
			NullSeasonTypeRows: nullRows,
		})
	}
	return rows
}

// validateMetricFallback compares the local top-N against per-player
// official career totals (cache-backed). Players whose official totals
// are unavailable are reported with a zero delta so they never select
// into the batch driver.
func (v *Validator) validateMetricFallback(ctx context.Context, metric models.Metric, topN int) ([]models.ReportRow, error) {
	leaders, err := v.local.TopByMetric(ctx, metric, topN)
	if err != nil {
		return nil, err
	}

	var rows []models.ReportRow
	for _, leader := range leaders {
		// Ranking comes from the raw game-log sum, but the compared
		// total includes overrides so already-reconciled players read
		// as zero-delta.
		localTotal, err := v.local.CareerTotal(ctx, leader.PlayerID, metric)
		if err != nil {
			log.Error().Err(err).Str("player_id", leader.PlayerID).Msg("Failed to compute local total, skipping")
			continue
		}

		row := models.ReportRow{
			Metric:             metric,
			Rank:               leader.Rank,
			PlayerID:           leader.PlayerID,
			PlayerName:         leader.PlayerName,
			LocalTotal:         localTotal,
			NullSeasonTypeRows: v.nullSeasonTypeCount(ctx, leader.PlayerID),
		}

		official, ok, err := v.provider.CareerTotals(ctx, leader.PlayerID)
		if err != nil {
			log.Error().Err(err).Str("player_id", leader.PlayerID).Msg("Failed to fetch official totals, skipping delta")
		} else if ok {
			row.Official = official[metric]
			row.Delta = official[metric] - localTotal
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (v *Validator) nullSeasonTypeCount(ctx context.Context, playerID string) int {
	count, err := v.local.NullSeasonTypeCount(ctx, playerID)
	if err != nil {
		log.Debug().Err(err).Str("player_id", playerID).Msg("Failed to count null season_type rows")
		return 0
	}
	return count
}
