package analytics

import (
	"sort"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// DefaultTopKMonthly is the number of gainers and losers kept per month
const DefaultTopKMonthly = 5

// MonthLayout formats the month bucket labels
const MonthLayout = "2006-01"

// MonthlyMovers buckets records by calendar month and ranks symbols by their
// first-to-last close return inside each month. Months with fewer than two symbols
// are left out.
func MonthlyMovers(t *PriceTable, k int) models.MonthlyMoversTable {
	out := models.MonthlyMoversTable{}
	all := t.allSeries()
	if len(all) == 0 {
		return out
	}

	buckets := make(map[string][]models.MonthlyReturn)
	for _, s := range all {
		var current *models.MonthlyReturn
		for i, d := range s.dates {
			label := d.Format(MonthLayout)
			if current == nil || current.Month != label {
				buckets[label] = append(buckets[label], models.MonthlyReturn{
					Symbol:     s.symbol,
					Month:      label,
					FirstClose: s.closes[i],
				})
				list := buckets[label]
				current = &list[len(list)-1]
			}
			current.LastClose = s.closes[i]
		}
	}

	value := func(r models.MonthlyReturn) float64 { return r.ReturnPct }
	for label, list := range buckets {
		if len(list) < 2 {
			continue
		}
		for i := range list {
			list[i].ReturnPct = percentChange(list[i].FirstClose, list[i].LastClose) * 100
		}
		out[label] = models.MonthlyMovers{
			Month:   label,
			Gainers: rank(list, k, Gainers, value),
			Losers:  rank(list, k, Losers, value),
		}
	}
	return out
}

// SortedMonths returns the month labels of table, newest first when newestFirst is set
func SortedMonths(table models.MonthlyMoversTable, newestFirst bool) []string {
	months := make([]string, 0, len(table))
	for m := range table {
		months = append(months, m)
	}
	sort.Strings(months)
	if newestFirst {
		for i, j := 0, len(months)-1; i < j; i, j = i+1, j-1 {
			months[i], months[j] = months[j], months[i]
		}
	}
	return months
}
