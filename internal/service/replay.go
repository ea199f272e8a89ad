package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/ingest"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/metrics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// BarPublisher emits single daily bars
type BarPublisher interface {
	PublishPriceBar(ctx context.Context, source string, rec models.PriceRecord) error
}

// Replay normalizes the CSV files in dir and publishes every bar, oldest first per
// symbol, so consumers can rebuild their history. It stops at the first failed write.
func Replay(ctx context.Context, pub BarPublisher, dir, source string, opts ingest.Options, m *metrics.Metrics) (int, error) {
	result, err := ingest.LoadDir(dir, opts)
	if err != nil {
		return 0, err
	}
	recordIngest(m, result)
	if result.Table.Empty() {
		return 0, ErrNoData
	}

	sent := 0
	for _, rec := range result.Table.Records() {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := pub.PublishPriceBar(ctx, source, rec); err != nil {
			return sent, fmt.Errorf("failed to publish %s %s: %w", rec.Symbol, rec.Date.Format("2006-01-02"), err)
		}
		sent++
	}

	log.Info().Int("bars", sent).Str("source", source).Msg("Replay complete")
	return sent, nil
}
