package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// DefaultTopKYearly is the size of the yearly gainers and losers lists
const DefaultTopKYearly = 10

// Config holds the tunables of an analysis run
type Config struct {
	MaxSymbolsForCorrelation int `validate:"gte=2"`
	TopKYearly               int `validate:"gte=1"`
	TopKMonthly              int `validate:"gte=1"`
	TopNCumulative           int `validate:"gte=1"`
	TradingDaysPerYear       int `validate:"gte=1,lte=366"`
}

// DefaultConfig returns the standard run settings
func DefaultConfig() Config {
	return Config{
		MaxSymbolsForCorrelation: DefaultMaxSymbolsForCorrelation,
		TopKYearly:               DefaultTopKYearly,
		TopKMonthly:              DefaultTopKMonthly,
		TopNCumulative:           DefaultTopNCumulative,
		TradingDaysPerYear:       DefaultTradingDaysPerYear,
	}
}

// Report bundles every derived table of one run. RunID and GeneratedAt identify the
// run; all other fields depend only on the input table and sector map.
type Report struct {
	RunID            string                    `json:"run_id"`
	GeneratedAt      time.Time                 `json:"generated_at"`
	Summary          models.MarketSummary      `json:"summary"`
	YearlyReturns    []models.YearlyReturn     `json:"yearly_returns"`
	TopGainers       []models.YearlyReturn     `json:"top_gainers"`
	TopLosers        []models.YearlyReturn     `json:"top_losers"`
	Volatility       []models.VolatilityRecord `json:"volatility"`
	Cumulative       models.CumulativeReturns  `json:"cumulative"`
	Sectors          SectorResult              `json:"sectors"`
	Correlation      models.CorrelationMatrix  `json:"correlation"`
	CorrelationStats models.CorrelationStats   `json:"correlation_stats"`
	Monthly          models.MonthlyMoversTable `json:"monthly"`
}

// Engine runs all analytics over a table with a fixed Config
type Engine struct {
	cfg Config
}

// NewEngine creates an Engine. Zero fields fall back to the defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MaxSymbolsForCorrelation <= 0 {
		cfg.MaxSymbolsForCorrelation = def.MaxSymbolsForCorrelation
	}
	if cfg.TopKYearly <= 0 {
		cfg.TopKYearly = def.TopKYearly
	}
	if cfg.TopKMonthly <= 0 {
		cfg.TopKMonthly = def.TopKMonthly
	}
	if cfg.TopNCumulative <= 0 {
		cfg.TopNCumulative = def.TopNCumulative
	}
	if cfg.TradingDaysPerYear <= 0 {
		cfg.TradingDaysPerYear = def.TradingDaysPerYear
	}
	return &Engine{cfg: cfg}
}

// Config returns the effective settings
func (e *Engine) Config() Config {
	return e.cfg
}

// Run computes every engine over table. Engines are independent and run concurrently;
// the only error is cancellation of ctx.
func (e *Engine) Run(ctx context.Context, table *PriceTable, sectors SectorLoader) (*Report, error) {
	report := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
	}

	g, ctx := errgroup.WithContext(ctx)
	step := func(fn func()) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn()
			return nil
		})
	}

	step(func() {
		report.YearlyReturns = YearlyReturns(table)
		report.TopGainers = TopK(report.YearlyReturns, e.cfg.TopKYearly, Gainers)
		report.TopLosers = TopK(report.YearlyReturns, e.cfg.TopKYearly, Losers)
		report.Summary = MarketSummary(table, report.YearlyReturns)
	})
	step(func() { report.Volatility = Volatility(table, e.cfg.TradingDaysPerYear) })
	step(func() { report.Cumulative = CumulativeReturns(table, e.cfg.TopNCumulative) })
	step(func() { report.Sectors = AggregateSectors(table, sectors) })
	step(func() {
		report.Correlation = CorrelationMatrix(table, e.cfg.MaxSymbolsForCorrelation)
		report.CorrelationStats = CorrelationStats(report.Correlation)
	})
	step(func() { report.Monthly = MonthlyMovers(table, e.cfg.TopKMonthly) })

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return report, nil
}
