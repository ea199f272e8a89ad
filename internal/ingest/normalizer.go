// Package ingest turns raw per-symbol price files into the canonical analytics table.
package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

var (
	// ErrMissingClose marks a source without a close column
	ErrMissingClose = errors.New("close column not found")
	// ErrNoSources is returned when a directory holds no YAML snapshots to extract
	ErrNoSources = errors.New("no snapshot files found")
)

// Default values applied to absent optional columns
const (
	DefaultVolume int64 = 1000000
)

// DefaultEpoch is the first synthesized date for sources without a date column
var DefaultEpoch = time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order when parsing the date column
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"02-Jan-2006",
}

// Source is one raw tabular price source. Symbol is used for rows that carry none.
type Source struct {
	Name   string
	Symbol string
	Reader io.Reader
}

// Options controls defaults applied while normalizing
type Options struct {
	Epoch         time.Time
	DefaultVolume int64
}

// DefaultOptions returns the standard defaults
func DefaultOptions() Options {
	return Options{Epoch: DefaultEpoch, DefaultVolume: DefaultVolume}
}

// SourceStatus records what happened to one source
type SourceStatus struct {
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	Accepted    bool   `json:"accepted"`
	Rows        int    `json:"rows"`
	DroppedRows int    `json:"dropped_rows"`
	Reason      string `json:"reason,omitempty"`
}

// Result is the normalized table and per-source outcome
type Result struct {
	Table   *analytics.PriceTable
	Sources []SourceStatus
}

// Skipped counts rejected sources
func (r *Result) Skipped() int {
	n := 0
	for _, s := range r.Sources {
		if !s.Accepted {
			n++
		}
	}
	return n
}

// Normalize parses every source and merges the survivors into one table. A source
// without a close column, or that cannot be parsed, is skipped as a whole. The table
// is empty, not nil, when nothing survives.
func Normalize(sources []Source, opts Options) *Result {
	if opts.Epoch.IsZero() {
		opts.Epoch = DefaultEpoch
	}
	if opts.DefaultVolume == 0 {
		opts.DefaultVolume = DefaultVolume
	}

	res := &Result{}
	var all []models.PriceRecord
	for _, src := range sources {
		records, dropped, err := parseSource(src, opts)
		status := SourceStatus{Name: src.Name, Symbol: src.Symbol, DroppedRows: dropped}
		if err != nil {
			status.Reason = err.Error()
			log.Warn().Str("source", src.Name).Err(err).Msg("Skipping price source")
			res.Sources = append(res.Sources, status)
			continue
		}
		status.Accepted = true
		status.Rows = len(records)
		res.Sources = append(res.Sources, status)
		all = append(all, records...)
		log.Info().Str("source", src.Name).Int("rows", len(records)).Int("dropped", dropped).Msg("Loaded price source")
	}

	res.Table = analytics.NewPriceTable(all)
	if res.Table.Empty() {
		log.Warn().Int("sources", len(sources)).Msg("No usable price sources")
	}
	return res
}

// LoadDir normalizes every *.csv file in dir, deriving the symbol from the file name.
// A directory without CSV files yields an empty table.
func LoadDir(dir string, opts Options) (*Result, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	sort.Strings(paths)

	var sources []Source
	var files []*os.File
	defer func() {
		for _, f := range files {
			f.Close()
		}
	}()
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			log.Warn().Str("path", p).Err(err).Msg("Cannot open price file")
			continue
		}
		files = append(files, f)
		sources = append(sources, Source{
			Name:   filepath.Base(p),
			Symbol: strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)),
			Reader: f,
		})
	}
	return Normalize(sources, opts), nil
}

type columns struct {
	symbol, date, open, high, low, close, volume int
}

func findColumns(header []string) columns {
	c := columns{-1, -1, -1, -1, -1, -1, -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		switch name {
		case "symbol", "ticker":
			c.symbol = i
		case "date", "timestamp":
			c.date = i
		case "open":
			c.open = i
		case "high":
			c.high = i
		case "low":
			c.low = i
		case "close", "close price", "closeprice":
			c.close = i
		case "volume":
			c.volume = i
		}
	}
	return c
}

// parseSource returns the records of one source and the number of rows dropped for a
// blank or unparseable close
func parseSource(src Source, opts Options) ([]models.PriceRecord, int, error) {
	reader := csv.NewReader(stripBOM(src.Reader))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, 0, fmt.Errorf("empty source")
	}

	cols := findColumns(rows[0])
	if cols.close == -1 {
		return nil, 0, ErrMissingClose
	}

	var records []models.PriceRecord
	dropped := 0
	for i, row := range rows[1:] {
		closeVal, ok := parseDecimal(cell(row, cols.close))
		if !ok {
			dropped++
			continue
		}

		rec := models.PriceRecord{
			Symbol: strings.TrimSpace(src.Symbol),
			Close:  closeVal.Decimal,
			Volume: opts.DefaultVolume,
		}
		if sym := strings.TrimSpace(cell(row, cols.symbol)); sym != "" {
			rec.Symbol = sym
		}
		if rec.Symbol == "" {
			return nil, dropped, fmt.Errorf("row %d has no symbol", i+2)
		}

		if cols.date == -1 {
			rec.Date = opts.Epoch.AddDate(0, 0, i)
		} else {
			d, err := parseDate(cell(row, cols.date))
			if err != nil {
				return nil, dropped, fmt.Errorf("row %d: %w", i+2, err)
			}
			rec.Date = d
		}

		rec.Open, _ = parseDecimal(cell(row, cols.open))
		rec.High, _ = parseDecimal(cell(row, cols.high))
		rec.Low, _ = parseDecimal(cell(row, cols.low))
		if v, ok := parseDecimal(cell(row, cols.volume)); ok && !v.Decimal.IsNegative() {
			rec.Volume = v.Decimal.IntPart()
		}
		records = append(records, rec)
	}
	return records, dropped, nil
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// stripBOM drops a leading UTF-8 byte order mark written by spreadsheet tools
func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		br.Discard(len(utf8BOM))
	}
	return br
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseDecimal(s string) (decimal.NullDecimal, bool) {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "null") {
		return decimal.NullDecimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
