package models

import "time"

// YearlyReturn is the first-to-last close return of a symbol over the loaded range
type YearlyReturn struct {
	Symbol     string  `json:"symbol"`
	FirstClose float64 `json:"first_close"`
	LastClose  float64 `json:"last_close"`
	ReturnPct  float64 `json:"yearly_return_pct"`
}

// VolatilityRecord holds annualized volatility of daily returns for a symbol
type VolatilityRecord struct {
	Symbol        string  `json:"symbol"`
	VolatilityPct float64 `json:"annualized_volatility_pct"`
	Observations  int     `json:"observations"`
}

// CumulativeReturns is a date x symbol grid of compounded returns.
// Values[i][j] is nil when Symbols[j] has no observation on Dates[i].
type CumulativeReturns struct {
	Dates   []time.Time  `json:"dates"`
	Symbols []string     `json:"symbols"`
	Values  [][]*float64 `json:"values"`
}

// SectorPerformance is the unweighted mean yearly return of the symbols in a sector
type SectorPerformance struct {
	Sector        string  `json:"sector"`
	MeanReturnPct float64 `json:"mean_yearly_return_pct"`
	Symbols       int     `json:"symbols"`
}

// CorrelationMatrix is a symmetric matrix of daily return correlations.
// A nil entry means the pair had too little overlapping, non-constant data.
type CorrelationMatrix struct {
	Symbols []string     `json:"symbols"`
	Values  [][]*float64 `json:"values"`
}

// CorrelationStats summarizes the defined off-diagonal entries of a CorrelationMatrix
type CorrelationStats struct {
	Pairs int     `json:"pairs"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
}

// MonthlyReturn is a symbol's first-to-last close return inside one calendar month
type MonthlyReturn struct {
	Symbol     string  `json:"symbol"`
	Month      string  `json:"month"`
	FirstClose float64 `json:"first_close"`
	LastClose  float64 `json:"last_close"`
	ReturnPct  float64 `json:"monthly_return_pct"`
}

// MonthlyMovers holds the ranked gainers and losers of one month
type MonthlyMovers struct {
	Month   string          `json:"month"`
	Gainers []MonthlyReturn `json:"gainers"`
	Losers  []MonthlyReturn `json:"losers"`
}

// MonthlyMoversTable maps a "YYYY-MM" label to that month's movers
type MonthlyMoversTable map[string]MonthlyMovers

// MarketSummary holds headline figures for a run
type MarketSummary struct {
	TotalSymbols    int     `json:"total_symbols"`
	Gainers         int     `json:"gainers"`
	Losers          int     `json:"losers"`
	AvgClose        float64 `json:"avg_close_price"`
	AvgVolume       float64 `json:"avg_volume"`
	AvgYearlyReturn float64 `json:"avg_yearly_return_pct"`
	FirstDate       string  `json:"first_date,omitempty"`
	LastDate        string  `json:"last_date,omitempty"`
	Records         int     `json:"records"`
}

// AnalysisRun is the persisted header of one analysis run
type AnalysisRun struct {
	ID          string    `json:"id"`
	GeneratedAt time.Time `json:"generated_at"`
	Symbols     int       `json:"symbols"`
	Records     int       `json:"records"`
	SectorState string    `json:"sector_status"`
	CreatedAt   time.Time `json:"created_at"`
}
