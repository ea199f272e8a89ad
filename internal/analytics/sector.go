package analytics

import (
	"errors"
	"slices"
	"sort"
	"strings"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// ErrSectorSource wraps every failure to read or parse a sector mapping
var ErrSectorSource = errors.New("sector source unavailable")

// UnknownSector collects symbols missing from the sector map
const UnknownSector = "Unknown"

// SectorEntry is one row of a symbol to sector mapping source
type SectorEntry struct {
	Symbol string
	Sector string
}

// SectorMap maps normalized symbols to sector names. The zero value is an empty map.
type SectorMap struct {
	sectors map[string]string
}

// NewSectorMap normalizes entries; the first entry for a symbol wins and blank
// symbols are ignored.
func NewSectorMap(entries []SectorEntry) SectorMap {
	m := SectorMap{sectors: make(map[string]string, len(entries))}
	for _, e := range entries {
		sym := NormalizeSymbol(e.Symbol)
		if sym == "" {
			continue
		}
		if _, exists := m.sectors[sym]; exists {
			continue
		}
		m.sectors[sym] = strings.TrimSpace(e.Sector)
	}
	return m
}

// Lookup returns the sector for symbol after normalization
func (m SectorMap) Lookup(symbol string) (string, bool) {
	s, ok := m.sectors[NormalizeSymbol(symbol)]
	return s, ok
}

// Len returns the number of mapped symbols
func (m SectorMap) Len() int {
	return len(m.sectors)
}

// Entries returns the mapping sorted by symbol
func (m SectorMap) Entries() []SectorEntry {
	out := make([]SectorEntry, 0, len(m.sectors))
	for sym, sec := range m.sectors {
		out = append(out, SectorEntry{Symbol: sym, Sector: sec})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return out
}

// NormalizeSymbol trims whitespace and uppercases a symbol
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// SectorPerformance averages yearly returns per sector. Symbols without a sector, or
// mapped to a blank sector, count under UnknownSector. Sorted by mean return, highest
// first, ties by sector name.
func SectorPerformance(t *PriceTable, sectors SectorMap) []models.SectorPerformance {
	returns := YearlyReturns(t)
	if len(returns) == 0 {
		return nil
	}

	type acc struct {
		sum   float64
		count int
	}
	groups := make(map[string]*acc)
	for _, r := range returns {
		sector, ok := sectors.Lookup(r.Symbol)
		if !ok || sector == "" {
			sector = UnknownSector
		}
		g, exists := groups[sector]
		if !exists {
			g = &acc{}
			groups[sector] = g
		}
		g.sum += r.ReturnPct
		g.count++
	}

	out := make([]models.SectorPerformance, 0, len(groups))
	for name, g := range groups {
		out = append(out, models.SectorPerformance{
			Sector:        name,
			MeanReturnPct: g.sum / float64(g.count),
			Symbols:       g.count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	slices.SortStableFunc(out, func(a, b models.SectorPerformance) int {
		switch {
		case a.MeanReturnPct > b.MeanReturnPct:
			return -1
		case a.MeanReturnPct < b.MeanReturnPct:
			return 1
		}
		return 0
	})
	return out
}

// SectorStatus tells callers how to read a SectorResult
type SectorStatus string

const (
	SectorStatusOK    SectorStatus = "ok"
	SectorStatusEmpty SectorStatus = "empty"
	SectorStatusError SectorStatus = "error"
)

// SectorResult is the outcome of sector aggregation. Sectors is only populated
// when Status is SectorStatusOK; on error Err holds the cause.
type SectorResult struct {
	Status  SectorStatus               `json:"status"`
	Sectors []models.SectorPerformance `json:"sectors"`
	Message string                     `json:"error,omitempty"`
	Err     error                      `json:"-"`
}

// SectorLoader supplies the sector mapping for a run
type SectorLoader func() (SectorMap, error)

// AggregateSectors loads the sector map and aggregates. A nil loader behaves like an
// empty map. A loader failure yields SectorStatusError with no numbers.
func AggregateSectors(t *PriceTable, load SectorLoader) SectorResult {
	if t.Empty() {
		return SectorResult{Status: SectorStatusEmpty}
	}
	var sectors SectorMap
	if load != nil {
		m, err := load()
		if err != nil {
			return SectorResult{Status: SectorStatusError, Message: err.Error(), Err: err}
		}
		sectors = m
	}
	return SectorResult{Status: SectorStatusOK, Sectors: SectorPerformance(t, sectors)}
}
