package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// RetentionStore deletes aged history
type RetentionStore interface {
	DeleteRunsOlderThan(date time.Time) (int64, error)
	DeletePriceRecordsOlderThan(date time.Time) (int64, error)
}

// Retention prunes stored runs and price bars past their age limits.
// A zero age keeps that history forever.
type Retention struct {
	Store     RetentionStore
	RunsAge   time.Duration
	PricesAge time.Duration
	Now       func() time.Time
}

// Run deletes whatever is older than the configured ages
func (r Retention) Run(ctx context.Context) error {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	if r.RunsAge > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Store.DeleteRunsOlderThan(now().Add(-r.RunsAge))
		if err != nil {
			return fmt.Errorf("failed to prune runs: %w", err)
		}
		log.Info().Int64("removed", n).Dur("age", r.RunsAge).Msg("Pruned analysis runs")
	}

	if r.PricesAge > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Store.DeletePriceRecordsOlderThan(now().Add(-r.PricesAge))
		if err != nil {
			return fmt.Errorf("failed to prune prices: %w", err)
		}
		log.Info().Int64("removed", n).Dur("age", r.PricesAge).Msg("Pruned price bars")
	}
	return nil
}
