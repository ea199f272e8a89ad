package analytics

import (
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// MarketSummary reports headline counts and averages for the table
func MarketSummary(t *PriceTable, returns []models.YearlyReturn) models.MarketSummary {
	var sum models.MarketSummary
	if t.Empty() {
		return sum
	}

	var closeTotal, volumeTotal float64
	for _, s := range t.allSeries() {
		for i := range s.closes {
			closeTotal += s.closes[i]
			volumeTotal += float64(s.volumes[i])
		}
	}
	sum.Records = t.Len()
	sum.TotalSymbols = len(t.allSeries())
	sum.AvgClose = closeTotal / float64(sum.Records)
	sum.AvgVolume = volumeTotal / float64(sum.Records)

	var retTotal float64
	for _, r := range returns {
		switch {
		case r.ReturnPct > 0:
			sum.Gainers++
		case r.ReturnPct < 0:
			sum.Losers++
		}
		retTotal += r.ReturnPct
	}
	if len(returns) > 0 {
		sum.AvgYearlyReturn = retTotal / float64(len(returns))
	}

	if first, last, ok := t.DateRange(); ok {
		sum.FirstDate = first.Format("2006-01-02")
		sum.LastDate = last.Format("2006-01-02")
	}
	return sum
}
