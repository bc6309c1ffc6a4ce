package scheduler

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"nbastats/reconciliation/internal/config"
	"nbastats/reconciliation/internal/reconcile"
	"nbastats/reconciliation/internal/report"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler manages the nightly reconciliation cycle:
// validate leaderboards, write reports, then reconcile every
// discrepant player found by the validation run.
type Scheduler struct {
	cfg        *config.Config
	validator  *reconcile.Validator
	reconciler *reconcile.Reconciler
	cron       *cron.Cron
	stopChan   chan struct{}
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, validator *reconcile.Validator, reconciler *reconcile.Reconciler) *Scheduler {
	return &Scheduler{
		cfg:        cfg,
		validator:  validator,
		reconciler: reconciler,
		cron:       cron.New(),
		stopChan:   make(chan struct{}),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.ReconcileCron, func() {
		log.Info().Msg("Running nightly reconciliation cycle...")
		if err := s.RunCycle(ctx); err != nil {
			log.Error().Err(err).Msg("Nightly reconciliation cycle failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule reconciliation cycle: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.ReconcileCron).
		Msg("Reconciliation cycle scheduled")

	if s.cfg.RunOnStart {
		go func() {
			log.Info().Msg("Running reconciliation cycle on startup...")
			if err := s.RunCycle(ctx); err != nil {
				log.Error().Err(err).Msg("Startup reconciliation cycle failed")
			}
		}()
	}

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		s.cron.Stop()
	}

	close(s.stopChan)
	log.Info().Msg("Scheduler stopped")
}

// RunCycle performs one full validate-then-reconcile pass and writes
// the CSV and Markdown reports.
func (s *Scheduler) RunCycle(ctx context.Context) error {
	start := time.Now()

	result, err := s.validator.Validate(ctx, s.cfg.LeaderboardTopN)
	if err != nil {
		return fmt.Errorf("validation run failed: %w", err)
	}

	csvPath := filepath.Join(s.cfg.ReportDir, "leaders_validation.csv")
	mdPath := filepath.Join(s.cfg.ReportDir, "leaders_validation.md")

	if err := report.WriteCSV(csvPath, result.Report); err != nil {
		return fmt.Errorf("failed to write validation report: %w", err)
	}
	if err := report.WriteMarkdown(mdPath, result.Discrepancies); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}

	players, err := report.LoadDiscrepantPlayers(csvPath)
	if err != nil {
		return fmt.Errorf("failed to load discrepant players: %w", err)
	}

	if len(players) == 0 {
		log.Info().
			Dur("duration", time.Since(start)).
			Msg("Reconciliation cycle complete, no discrepancies found")
		return nil
	}

	log.Info().Int("players", len(players)).Msg("Reconciling discrepant players")
	batch := s.reconciler.ReconcileBatch(ctx, players)

	log.Info().
		Int("players", batch.Players).
		Int("seasons_updated", batch.SeasonsUpdated).
		Int("errors", batch.Errors).
		Dur("duration", time.Since(start)).
		Msg("Reconciliation cycle complete")

	if batch.Errors > 0 {
		return fmt.Errorf("reconciliation cycle finished with %d player errors", batch.Errors)
	}
	return nil
}
