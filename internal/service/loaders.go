package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/ingest"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/metrics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// PriceStore is the subset of the database used as a price source
type PriceStore interface {
	LoadPriceTable() (*analytics.PriceTable, error)
}

// ImportStore receives imported prices and sector assignments
type ImportStore interface {
	UpsertPriceRecords(records []models.PriceRecord) (int, error)
	ReplaceSectorMap(m analytics.SectorMap) (int, error)
}

// DirTableLoader reads every CSV file in dir on each run
func DirTableLoader(dir string, opts ingest.Options, m *metrics.Metrics) TableLoader {
	return func(ctx context.Context) (*analytics.PriceTable, error) {
		result, err := ingest.LoadDir(dir, opts)
		if err != nil {
			return nil, err
		}
		recordIngest(m, result)
		return result.Table, nil
	}
}

// StoreTableLoader reads the persisted price history on each run
func StoreTableLoader(store PriceStore) TableLoader {
	return func(ctx context.Context) (*analytics.PriceTable, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return store.LoadPriceTable()
	}
}

// ImportSummary reports what an import wrote
type ImportSummary struct {
	Sources        []ingest.SourceStatus `json:"sources"`
	Records        int                   `json:"records"`
	SectorsWritten int                   `json:"sectors_written"`
}

// Import normalizes the CSV files in dir and stores them. A non-empty sectorFile
// also replaces the stored sector assignments.
func Import(ctx context.Context, store ImportStore, dir, sectorFile string, opts ingest.Options, m *metrics.Metrics) (*ImportSummary, error) {
	result, err := ingest.LoadDir(dir, opts)
	if err != nil {
		return nil, err
	}
	recordIngest(m, result)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	summary := &ImportSummary{Sources: result.Sources}
	if !result.Table.Empty() {
		n, err := store.UpsertPriceRecords(result.Table.Records())
		if err != nil {
			return nil, fmt.Errorf("failed to store prices: %w", err)
		}
		summary.Records = n
	}

	if sectorFile != "" {
		sectors, err := ingest.LoadSectorMap(sectorFile)
		if err != nil {
			return summary, err
		}
		n, err := store.ReplaceSectorMap(sectors)
		if err != nil {
			return summary, fmt.Errorf("failed to store sectors: %w", err)
		}
		summary.SectorsWritten = n
	}

	log.Info().
		Int("records", summary.Records).
		Int("sectors", summary.SectorsWritten).
		Int("skipped_sources", result.Skipped()).
		Msg("Import complete")
	return summary, nil
}

func recordIngest(m *metrics.Metrics, result *ingest.Result) {
	if m == nil {
		return
	}
	m.IngestedRecords.Add(float64(result.Table.Len()))
	m.SkippedSources.Add(float64(result.Skipped()))
}
