package analytics

import (
	"math"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// DefaultMaxSymbolsForCorrelation bounds the correlation matrix
const DefaultMaxSymbolsForCorrelation = 12

// CorrelationMatrix computes Pearson correlation of daily returns between the first
// maxSymbols symbols of the table, rounded to two decimals. Returns are placed on the
// date of the later close. Pairs with fewer than two overlapping returns, or with a
// constant series, are left nil. Fewer than two symbols gives an empty matrix.
func CorrelationMatrix(t *PriceTable, maxSymbols int) models.CorrelationMatrix {
	all := t.allSeries()
	if len(all) < 2 {
		return models.CorrelationMatrix{}
	}
	if maxSymbols <= 0 {
		maxSymbols = DefaultMaxSymbolsForCorrelation
	}

	grid, symbols := returnGrid(all)
	if len(symbols) > maxSymbols {
		symbols = symbols[:maxSymbols]
	}
	n := len(symbols)
	if n < 2 {
		return models.CorrelationMatrix{}
	}

	out := models.CorrelationMatrix{
		Symbols: symbols,
		Values:  make([][]*float64, n),
	}
	for i := range out.Values {
		out.Values[i] = make([]*float64, n)
		one := 1.0
		out.Values[i][i] = &one
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			r, ok := pearson(grid, i, j)
			if !ok {
				continue
			}
			a, b := r, r
			out.Values[i][j] = &a
			out.Values[j][i] = &b
		}
	}
	return out
}

// returnGrid pivots daily returns to rows of dates and columns of symbols. Dates on
// which no symbol has a return are dropped.
func returnGrid(all []series) ([][]*float64, []string) {
	dates := unionDates(all)
	index := dateIndex(dates)
	grid := make([][]*float64, len(dates))
	for i := range grid {
		grid[i] = make([]*float64, len(all))
	}
	symbols := make([]string, len(all))
	for col, s := range all {
		symbols[col] = s.symbol
		for k, r := range dailyReturns(s.closes) {
			v := r
			grid[index[s.dates[k+1].UnixNano()]][col] = &v
		}
	}

	kept := grid[:0]
	for _, row := range grid {
		for _, v := range row {
			if v != nil {
				kept = append(kept, row)
				break
			}
		}
	}
	return kept, symbols
}

func pearson(grid [][]*float64, a, b int) (float64, bool) {
	var xs, ys []float64
	for _, row := range grid {
		if row[a] != nil && row[b] != nil {
			xs = append(xs, *row[a])
			ys = append(ys, *row[b])
		}
	}
	n := len(xs)
	if n < 2 {
		return 0, false
	}
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= float64(n)
	my /= float64(n)

	var sxy, sxx, syy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, false
	}
	r := sxy / math.Sqrt(sxx*syy)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0, false
	}
	r = math.Round(r*100) / 100
	return math.Max(-1, math.Min(1, r)), true
}

// CorrelationStats averages the defined entries above the diagonal
func CorrelationStats(m models.CorrelationMatrix) models.CorrelationStats {
	var stats models.CorrelationStats
	var sum float64
	for i := range m.Values {
		for j := i + 1; j < len(m.Values[i]); j++ {
			v := m.Values[i][j]
			if v == nil {
				continue
			}
			if stats.Pairs == 0 || *v > stats.Max {
				stats.Max = *v
			}
			if stats.Pairs == 0 || *v < stats.Min {
				stats.Min = *v
			}
			sum += *v
			stats.Pairs++
		}
	}
	if stats.Pairs > 0 {
		stats.Mean = sum / float64(stats.Pairs)
	}
	return stats
}

// TruncateCorrelation keeps the leading n symbols of m. n at or above the matrix
// size returns m unchanged; below two gives an empty matrix.
func TruncateCorrelation(m models.CorrelationMatrix, n int) models.CorrelationMatrix {
	if n >= len(m.Symbols) {
		return m
	}
	if n < 2 {
		return models.CorrelationMatrix{}
	}
	out := models.CorrelationMatrix{
		Symbols: m.Symbols[:n],
		Values:  make([][]*float64, n),
	}
	for i := 0; i < n; i++ {
		out.Values[i] = m.Values[i][:n]
	}
	return out
}
