package analytics

import (
	"math"
	"slices"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// DefaultTradingDaysPerYear annualizes daily volatility
const DefaultTradingDaysPerYear = 252

// Volatility computes the annualized sample standard deviation of daily returns,
// as a percentage, for every symbol with at least two records. Tables with fewer
// than two symbols produce no output. Results are sorted by volatility, highest first.
func Volatility(t *PriceTable, tradingDaysPerYear int) []models.VolatilityRecord {
	all := t.allSeries()
	if len(all) < 2 {
		return nil
	}
	if tradingDaysPerYear <= 0 {
		tradingDaysPerYear = DefaultTradingDaysPerYear
	}
	scale := math.Sqrt(float64(tradingDaysPerYear)) * 100

	var out []models.VolatilityRecord
	for _, s := range all {
		if len(s.closes) < 2 {
			continue
		}
		rets := dailyReturns(s.closes)
		out = append(out, models.VolatilityRecord{
			Symbol:        s.symbol,
			VolatilityPct: sampleStdDev(rets) * scale,
			Observations:  len(rets),
		})
	}
	slices.SortStableFunc(out, func(a, b models.VolatilityRecord) int {
		switch {
		case a.VolatilityPct > b.VolatilityPct:
			return -1
		case a.VolatilityPct < b.VolatilityPct:
			return 1
		}
		return 0
	})
	return out
}

// sampleStdDev uses n-1 in the denominator and is 0 for fewer than two values
func sampleStdDev(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(n-1))
	if math.IsNaN(std) || math.IsInf(std, 0) {
		return 0
	}
	return std
}
