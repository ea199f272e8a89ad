package analytics

import (
	"slices"
	"sort"
	"time"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// DefaultTopNCumulative is how many symbols CumulativeReturns keeps
const DefaultTopNCumulative = 5

// CumulativeReturns compounds each symbol's daily returns from its first observation,
// aligns every series on the union of dates and keeps the topN symbols by final
// cumulative return.
//
// Only symbols with at least one daily return are ranked. When fewer than topN are
// ranked, the selection is padded with the remaining symbols that appear earliest.
func CumulativeReturns(t *PriceTable, topN int) models.CumulativeReturns {
	all := t.allSeries()
	if len(all) == 0 {
		return models.CumulativeReturns{}
	}
	if topN <= 0 {
		topN = DefaultTopNCumulative
	}

	curves := make([][]float64, len(all))
	for i, s := range all {
		curves[i] = compound(dailyReturns(s.closes), len(s.closes))
	}

	selected := selectTopCumulative(all, curves, topN)
	dates := unionDates(all)
	index := dateIndex(dates)

	out := models.CumulativeReturns{
		Dates:   dates,
		Symbols: make([]string, len(selected)),
		Values:  make([][]*float64, len(dates)),
	}
	for i := range out.Values {
		out.Values[i] = make([]*float64, len(selected))
	}
	for col, si := range selected {
		s := all[si]
		out.Symbols[col] = s.symbol
		for k, d := range s.dates {
			v := curves[si][k]
			out.Values[index[d.UnixNano()]][col] = &v
		}
	}
	return out
}

// compound turns n-1 daily returns into n cumulative values starting at 0:
// cum(t) = (1+cum(t-1))*(1+r_t) - 1
func compound(rets []float64, n int) []float64 {
	cum := make([]float64, n)
	for i := 1; i < n; i++ {
		cum[i] = (1+cum[i-1])*(1+rets[i-1]) - 1
	}
	return cum
}

func selectTopCumulative(all []series, curves [][]float64, topN int) []int {
	var ranked, rest []int
	for i, s := range all {
		if len(s.closes) >= 2 {
			ranked = append(ranked, i)
		} else {
			rest = append(rest, i)
		}
	}
	final := func(i int) float64 { return curves[i][len(curves[i])-1] }

	selected := rank(ranked, topN, Gainers, final)
	if len(selected) < topN {
		slices.SortStableFunc(rest, func(a, b int) int {
			return all[a].dates[0].Compare(all[b].dates[0])
		})
		for _, i := range rest {
			if len(selected) == topN {
				break
			}
			selected = append(selected, i)
		}
	}
	return selected
}

// unionDates returns every distinct date of the given series, ascending
func unionDates(all []series) []time.Time {
	seen := make(map[int64]struct{})
	var dates []time.Time
	for _, s := range all {
		for _, d := range s.dates {
			if _, ok := seen[d.UnixNano()]; ok {
				continue
			}
			seen[d.UnixNano()] = struct{}{}
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

func dateIndex(dates []time.Time) map[int64]int {
	index := make(map[int64]int, len(dates))
	for i, d := range dates {
		index[d.UnixNano()] = i
	}
	return index
}
