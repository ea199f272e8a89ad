// Package analytics computes descriptive statistics over a canonical table of
// daily closes. Every function in the package is pure: it reads a PriceTable
// (and optionally a SectorMap) and returns freshly allocated results, so
// independent engines may run concurrently over the same table.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// PriceTable is an immutable collection of price records sorted by (symbol, date).
// There is at most one record per symbol and date.
type PriceTable struct {
	records []models.PriceRecord
	series  []series
}

// series is the contiguous run of records of one symbol inside the table
type series struct {
	symbol  string
	dates   []time.Time
	closes  []float64
	volumes []int64
}

// NewPriceTable copies and sorts records. When a symbol has several records for the
// same date the last one in input order is kept.
func NewPriceTable(records []models.PriceRecord) *PriceTable {
	type keyed struct {
		rec models.PriceRecord
		pos int
	}
	type recordKey struct {
		symbol string
		nanos  int64
	}
	latest := make(map[recordKey]keyed, len(records))
	for i, r := range records {
		latest[recordKey{r.Symbol, r.Date.UnixNano()}] = keyed{rec: r, pos: i}
	}

	kept := make([]keyed, 0, len(latest))
	for _, k := range latest {
		kept = append(kept, k)
	}
	sort.Slice(kept, func(i, j int) bool {
		a, b := kept[i].rec, kept[j].rec
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		return kept[i].pos < kept[j].pos
	})

	t := &PriceTable{records: make([]models.PriceRecord, len(kept))}
	for i, k := range kept {
		t.records[i] = k.rec
	}

	for _, r := range t.records {
		n := len(t.series)
		if n == 0 || t.series[n-1].symbol != r.Symbol {
			t.series = append(t.series, series{symbol: r.Symbol})
			n++
		}
		s := &t.series[n-1]
		s.dates = append(s.dates, r.Date)
		s.closes = append(s.closes, r.Close.InexactFloat64())
		s.volumes = append(s.volumes, r.Volume)
	}
	return t
}

// Len returns the number of records
func (t *PriceTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// Empty reports whether the table holds no records
func (t *PriceTable) Empty() bool {
	return t.Len() == 0
}

// Symbols returns the distinct symbols in table order
func (t *PriceTable) Symbols() []string {
	if t == nil {
		return nil
	}
	out := make([]string, len(t.series))
	for i, s := range t.series {
		out[i] = s.symbol
	}
	return out
}

// Records returns a copy of the sorted records
func (t *PriceTable) Records() []models.PriceRecord {
	if t == nil {
		return nil
	}
	out := make([]models.PriceRecord, len(t.records))
	copy(out, t.records)
	return out
}

// DateRange returns the earliest and latest dates in the table
func (t *PriceTable) DateRange() (first, last time.Time, ok bool) {
	for _, s := range t.allSeries() {
		if !ok || s.dates[0].Before(first) {
			first = s.dates[0]
		}
		if !ok || s.dates[len(s.dates)-1].After(last) {
			last = s.dates[len(s.dates)-1]
		}
		ok = true
	}
	return first, last, ok
}

func (t *PriceTable) allSeries() []series {
	if t == nil {
		return nil
	}
	return t.series
}

// percentChange returns (to-from)/from as a fraction. A zero base or a non-finite
// result yields 0; every engine shares this rule.
func percentChange(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	v := (to - from) / from
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// dailyReturns returns the day-over-day changes of closes, one per record after the first
func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		out[i-1] = percentChange(closes[i-1], closes[i])
	}
	return out
}
