// Package service orchestrates loading, analysis, persistence and fan-out of reports
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/export"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/metrics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

var (
	// ErrNoData is returned when the price source yields an empty table
	ErrNoData = errors.New("no price data available")
	// ErrNoReport is returned when no run has completed yet
	ErrNoReport = errors.New("no analysis report available")
	// ErrNoExporter is returned by Export when no export directory is configured
	ErrNoExporter = errors.New("no exporter configured")
)

// TableLoader produces the price table for a run
type TableLoader func(ctx context.Context) (*analytics.PriceTable, error)

// ReportStore persists finished runs
type ReportStore interface {
	SaveReport(report *analytics.Report) error
}

// ReportCache shares the latest run between instances
type ReportCache interface {
	GetLatest(ctx context.Context) (*analytics.Report, error)
	SetLatest(ctx context.Context, report *analytics.Report) error
	Invalidate(ctx context.Context) error
}

// EventPublisher announces finished runs
type EventPublisher interface {
	PublishAnalysisCompleted(ctx context.Context, report *analytics.Report) error
}

// Exporter writes flat tables for BI tools
type Exporter interface {
	WriteCSV(tables []export.Table) ([]string, error)
	WriteWorkbook(tables []export.Table) (string, error)
}

// Options wires the optional collaborators of an AnalysisService
type Options struct {
	Tables    TableLoader
	Sectors   analytics.SectorLoader
	Store     ReportStore
	Cache     ReportCache
	Publisher EventPublisher
	Exporter  Exporter
	Metrics   *metrics.Metrics
	// RunTimeout bounds a run independently of the callers waiting on it
	RunTimeout time.Duration
}

// AnalysisService runs the engine and keeps the latest report
type AnalysisService struct {
	engine *analytics.Engine
	opts   Options
	group  singleflight.Group

	mu     sync.RWMutex
	latest *analytics.Report
	table  *analytics.PriceTable
	stale  bool
}

// NewAnalysisService creates a service. Options.Tables is required.
func NewAnalysisService(engine *analytics.Engine, opts Options) *AnalysisService {
	return &AnalysisService{engine: engine, opts: opts}
}

// Refresh loads the table and runs every engine. Concurrent callers share one run.
// The run is detached from ctx, so a caller that gives up does not cancel the run
// for the others; ctx only bounds how long this caller waits.
func (s *AnalysisService) Refresh(ctx context.Context) (*analytics.Report, error) {
	ch := s.group.DoChan("refresh", func() (interface{}, error) {
		runCtx := context.WithoutCancel(ctx)
		if s.opts.RunTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(runCtx, s.opts.RunTimeout)
			defer cancel()
		}
		return s.run(runCtx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			log.Debug().Msg("Joined in-flight analysis run")
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*analytics.Report), nil
	}
}

func (s *AnalysisService) run(ctx context.Context) (*analytics.Report, error) {
	started := time.Now()

	table, err := s.opts.Tables(ctx)
	if err != nil {
		s.observe("error", started, 0)
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}
	if table.Empty() {
		s.observe("empty", started, 0)
		return nil, ErrNoData
	}

	report, err := s.engine.Run(ctx, table, s.opts.Sectors)
	if err != nil {
		s.observe("error", started, 0)
		return nil, fmt.Errorf("analysis failed: %w", err)
	}
	if report.Sectors.Status == analytics.SectorStatusError {
		log.Warn().Err(report.Sectors.Err).Msg("Sector aggregation unavailable for this run")
	}

	if s.opts.Store != nil {
		if err := s.opts.Store.SaveReport(report); err != nil {
			s.observe("error", started, 0)
			return nil, fmt.Errorf("failed to persist report: %w", err)
		}
	}

	s.mu.Lock()
	s.latest = report
	s.table = table
	s.stale = false
	s.mu.Unlock()

	if s.opts.Cache != nil {
		if err := s.opts.Cache.SetLatest(ctx, report); err != nil {
			log.Warn().Err(err).Msg("Failed to cache report")
		}
	}
	if s.opts.Publisher != nil {
		if err := s.opts.Publisher.PublishAnalysisCompleted(ctx, report); err != nil {
			log.Warn().Err(err).Str("run_id", report.RunID).Msg("Failed to publish analysis event")
		}
	}

	s.observe("ok", started, report.Summary.TotalSymbols)
	log.Info().
		Str("run_id", report.RunID).
		Int("symbols", report.Summary.TotalSymbols).
		Int("records", report.Summary.Records).
		Str("sectors", string(report.Sectors.Status)).
		Dur("took", time.Since(started)).
		Msg("Analysis run complete")
	return report, nil
}

// Latest returns the newest report, falling back to the shared cache
func (s *AnalysisService) Latest(ctx context.Context) (*analytics.Report, error) {
	s.mu.RLock()
	report := s.latest
	s.mu.RUnlock()
	if report != nil {
		s.cacheResult("local")
		return report, nil
	}

	if s.opts.Cache != nil {
		cached, err := s.opts.Cache.GetLatest(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("Report cache lookup failed")
		}
		if cached != nil {
			s.cacheResult("hit")
			return cached, nil
		}
		s.cacheResult("miss")
	}
	return nil, ErrNoReport
}

// Invalidate marks the latest report as stale after new prices arrived and drops
// the shared cached copy. The local report keeps being served until the next run.
func (s *AnalysisService) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	s.stale = s.latest != nil
	s.mu.Unlock()

	if s.opts.Cache != nil {
		if err := s.opts.Cache.Invalidate(ctx); err != nil {
			return fmt.Errorf("failed to invalidate report cache: %w", err)
		}
	}
	return nil
}

// Stale reports whether prices changed since the latest run
func (s *AnalysisService) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// GetPriceRecords returns the bars of symbol between start and end inclusive from
// the table behind the latest run
func (s *AnalysisService) GetPriceRecords(symbol string, start, end time.Time) ([]models.PriceRecord, error) {
	s.mu.RLock()
	table := s.table
	s.mu.RUnlock()
	if table == nil {
		return nil, ErrNoReport
	}

	symbol = analytics.NormalizeSymbol(symbol)
	var out []models.PriceRecord
	for _, rec := range table.Records() {
		if rec.Symbol != symbol || rec.Date.Before(start) || rec.Date.After(end) {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

// ListPriceSymbols returns the symbols of the table behind the latest run
func (s *AnalysisService) ListPriceSymbols() ([]string, error) {
	s.mu.RLock()
	table := s.table
	s.mu.RUnlock()
	if table == nil {
		return nil, ErrNoReport
	}
	symbols := table.Symbols()
	sort.Strings(symbols)
	return symbols, nil
}

// Export writes the latest report as CSV files and a workbook
func (s *AnalysisService) Export() ([]string, error) {
	if s.opts.Exporter == nil {
		return nil, ErrNoExporter
	}

	s.mu.RLock()
	report, table := s.latest, s.table
	s.mu.RUnlock()
	if report == nil {
		return nil, ErrNoReport
	}

	tables := export.BuildTables(report, table)
	paths, err := s.opts.Exporter.WriteCSV(tables)
	if err != nil {
		return paths, fmt.Errorf("failed to export csv: %w", err)
	}
	workbook, err := s.opts.Exporter.WriteWorkbook(tables)
	if err != nil {
		return paths, fmt.Errorf("failed to export workbook: %w", err)
	}
	return append(paths, workbook), nil
}

func (s *AnalysisService) observe(status string, started time.Time, symbols int) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.ObserveRun(status, started, symbols)
	}
}

func (s *AnalysisService) cacheResult(result string) {
	if s.opts.Metrics != nil {
		s.opts.Metrics.CacheRequests.WithLabelValues(result).Inc()
	}
}
