// Command reconcile runs the reconciliation engine once and exits.
// With player IDs as arguments it reconciles just those players and
// writes a per-player coverage report; with no arguments it runs the
// full validate-then-reconcile cycle.
package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"

	"nbastats/reconciliation/internal/cache"
	"nbastats/reconciliation/internal/client"
	"nbastats/reconciliation/internal/config"
	"nbastats/reconciliation/internal/reconcile"
	"nbastats/reconciliation/internal/report"
	"nbastats/reconciliation/internal/repository"
	"nbastats/reconciliation/internal/scheduler"

	"github.com/rs/zerolog/log"
)

func main() {
	ctx := context.Background()
	cfg := config.MustLoad()

	db, err := repository.NewDatabase(ctx, repository.Config{
		Host:     cfg.DatabaseHost,
		Port:     strconv.Itoa(cfg.DatabasePort),
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		Database: cfg.DatabaseName,
		SSLMode:  cfg.DatabaseSSLMode,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Validate database connectivity before doing any remote work
	log.Info().Msg("Validating service health...")
	if err := db.Health(ctx); err != nil {
		log.Fatal().Err(err).Msg("Database health check failed")
	}
	if err := db.Overrides.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure override schema")
	}

	statsClient := client.NewClient(client.Options{
		BaseURL:     cfg.StatsBaseURL,
		Timeout:     cfg.StatsTimeout,
		Executor:    client.NewExecutor(cfg.RequestPacing, cfg.MaxAttempts, cfg.RetryBase, cfg.RetryMax),
		TotalsCache: cache.NewFileCache(cfg.TotalsCachePath),
	})

	reconciler := reconcile.NewReconciler(statsClient, db.Games, db.Overrides)

	playerIDs := os.Args[1:]
	if len(playerIDs) == 0 {
		validator := reconcile.NewValidator(statsClient, db.Games)
		sched := scheduler.NewScheduler(cfg, validator, reconciler)
		if err := sched.RunCycle(ctx); err != nil {
			log.Fatal().Err(err).Msg("Reconciliation cycle failed")
		}
		return
	}

	successCount := 0
	failureCount := 0
	for _, playerID := range playerIDs {
		log.Info().Str("player_id", playerID).Msg("Reconciling player")

		updated, err := reconciler.ReconcilePlayer(ctx, playerID)
		if err != nil {
			log.Error().Err(err).Str("player_id", playerID).Msg("Failed to reconcile player. Skipping.")
			failureCount++
			continue
		}
		successCount++
		log.Info().Str("player_id", playerID).Int("seasons_updated", updated).Msg("Player reconciled successfully")

		if err := writeCoverage(ctx, cfg, statsClient, db, playerID); err != nil {
			log.Warn().Err(err).Str("player_id", playerID).Msg("Failed to write coverage report")
		}
	}

	log.Info().Int("successful", successCount).Int("failed", failureCount).Msg("Manual reconciliation complete.")
	if failureCount > 0 {
		os.Exit(1)
	}
}

// writeCoverage renders the per-season alignment for one player so an
// operator can see which side is missing which seasons.
func writeCoverage(ctx context.Context, cfg *config.Config, statsClient *client.Client, db *repository.Database, playerID string) error {
	official, err := statsClient.CareerBySeason(ctx, playerID)
	if err != nil {
		return err
	}
	local, err := db.Games.SeasonTotals(ctx, playerID)
	if err != nil {
		return err
	}

	name, err := db.Players.GetName(ctx, playerID)
	if err != nil || name == "" {
		name = "player_" + playerID
	}

	aligned := reconcile.Align(official, local)
	path, err := report.WriteCoverage(filepath.Join(cfg.ReportDir, "coverage"), playerID, name, aligned)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("Coverage report written")
	return nil
}
