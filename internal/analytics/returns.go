package analytics

import (
	"slices"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// Direction selects which end of a ranking TopK returns
type Direction int

const (
	// Gainers ranks by largest return first
	Gainers Direction = iota
	// Losers ranks by smallest return first
	Losers
)

// String returns the direction name used in exports and query parameters
func (d Direction) String() string {
	if d == Losers {
		return "losers"
	}
	return "gainers"
}

// ParseDirection maps "gainers"/"losers" to a Direction
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "gainers", "green", "":
		return Gainers, true
	case "losers", "red":
		return Losers, true
	}
	return Gainers, false
}

// YearlyReturns computes the first-to-last close return of every symbol, in table order
func YearlyReturns(t *PriceTable) []models.YearlyReturn {
	all := t.allSeries()
	if len(all) == 0 {
		return nil
	}
	out := make([]models.YearlyReturn, 0, len(all))
	for _, s := range all {
		first, last := s.closes[0], s.closes[len(s.closes)-1]
		out = append(out, models.YearlyReturn{
			Symbol:     s.symbol,
			FirstClose: first,
			LastClose:  last,
			ReturnPct:  percentChange(first, last) * 100,
		})
	}
	return out
}

// TopK returns the k largest (Gainers) or smallest (Losers) yearly returns.
// Ties keep input order.
func TopK(returns []models.YearlyReturn, k int, dir Direction) []models.YearlyReturn {
	return rank(returns, k, dir, func(r models.YearlyReturn) float64 { return r.ReturnPct })
}

func rank[T any](items []T, k int, dir Direction, value func(T) float64) []T {
	if k <= 0 || len(items) == 0 {
		return nil
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b T) int {
		va, vb := value(a), value(b)
		if dir == Losers {
			va, vb = vb, va
		}
		switch {
		case va > vb:
			return -1
		case va < vb:
			return 1
		}
		return 0
	})
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}
