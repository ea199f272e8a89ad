package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
)

// ErrSectorSource is analytics.ErrSectorSource, re-exported for file loaders
var ErrSectorSource = analytics.ErrSectorSource

// ReadSectorMap parses symbol,sector rows. A header naming the symbol and sector
// columns is honoured; otherwise the first two columns are used. Blank lines and lines
// starting with '#' are ignored.
func ReadSectorMap(r io.Reader) (analytics.SectorMap, error) {
	reader := csv.NewReader(stripBOM(r))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	rows, err := reader.ReadAll()
	if err != nil {
		return analytics.SectorMap{}, fmt.Errorf("%w: %v", ErrSectorSource, err)
	}

	symCol, secCol := 0, 1
	if len(rows) > 0 {
		if s, c, ok := sectorHeader(rows[0]); ok {
			symCol, secCol = s, c
			rows = rows[1:]
		}
	}

	entries := make([]analytics.SectorEntry, 0, len(rows))
	for i, row := range rows {
		if len(row) <= symCol || len(row) <= secCol {
			return analytics.SectorMap{}, fmt.Errorf("%w: row %d has %d columns", ErrSectorSource, i+1, len(row))
		}
		entries = append(entries, analytics.SectorEntry{Symbol: row[symCol], Sector: row[secCol]})
	}
	return analytics.NewSectorMap(entries), nil
}

// LoadSectorMap reads a sector mapping file from disk
func LoadSectorMap(path string) (analytics.SectorMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return analytics.SectorMap{}, fmt.Errorf("%w: %v", ErrSectorSource, err)
	}
	defer f.Close()

	m, err := ReadSectorMap(f)
	if err != nil {
		return m, err
	}
	log.Debug().Str("path", path).Int("symbols", m.Len()).Msg("Loaded sector map")
	return m, nil
}

// SectorFileLoader defers reading path until the engine asks for the mapping.
// An empty path yields an empty mapping.
func SectorFileLoader(path string) analytics.SectorLoader {
	return func() (analytics.SectorMap, error) {
		if path == "" {
			return analytics.SectorMap{}, nil
		}
		return LoadSectorMap(path)
	}
}

func sectorHeader(row []string) (int, int, bool) {
	symCol, secCol := -1, -1
	for i, h := range row {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "symbol", "ticker":
			symCol = i
		case "sector":
			secCol = i
		}
	}
	if symCol == -1 || secCol == -1 {
		return 0, 0, false
	}
	return symCol, secCol, true
}
