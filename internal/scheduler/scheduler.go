// Package scheduler refreshes the analysis report on a cron schedule
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
)

// Refresher runs one analysis
type Refresher interface {
	Refresh(ctx context.Context) (*analytics.Report, error)
}

// Scheduler owns the cron runner for periodic refreshes
type Scheduler struct {
	cron    *cron.Cron
	target  Refresher
	timeout time.Duration
	ctx     context.Context
}

// NewScheduler creates a Scheduler. Each run is bounded by timeout when positive.
func NewScheduler(ctx context.Context, target Refresher, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		target:  target,
		timeout: timeout,
		ctx:     ctx,
	}
}

// Register adds the refresh job. spec uses the six-field seconds format.
func (s *Scheduler) Register(spec string) error {
	if _, err := s.cron.AddFunc(spec, s.RunNow); err != nil {
		return fmt.Errorf("register refresh task: %w", err)
	}
	log.Info().Str("spec", spec).Msg("Refresh task registered")
	return nil
}

// Task is a maintenance job run alongside the refresh
type Task func(ctx context.Context) error

// RegisterTask adds a named maintenance job on its own spec
func (s *Scheduler) RegisterTask(name, spec string, task Task) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx := s.ctx
		if s.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.timeout)
			defer cancel()
		}
		if err := task(ctx); err != nil {
			log.Error().Err(err).Str("task", name).Msg("Scheduled task failed")
		}
	})
	if err != nil {
		return fmt.Errorf("register %s task: %w", name, err)
	}
	log.Info().Str("task", name).Str("spec", spec).Msg("Task registered")
	return nil
}

// Start starts the cron scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

// Next returns the next planned run, or the zero time when nothing is registered
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// RunNow executes one refresh immediately
func (s *Scheduler) RunNow() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log.Info().Msg("Running scheduled refresh")
	report, err := s.target.Refresh(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduled refresh failed")
		return
	}
	log.Info().Str("run_id", report.RunID).Msg("Scheduled refresh complete")
}
