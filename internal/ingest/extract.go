package ingest

import (
	"encoding/csv"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// yamlRecord is one entry of a daily market snapshot file
type yamlRecord struct {
	Ticker string `yaml:"Ticker"`
	Date   string `yaml:"date"`
	Open   string `yaml:"open"`
	High   string `yaml:"high"`
	Low    string `yaml:"low"`
	Close  string `yaml:"close"`
	Volume string `yaml:"volume"`
}

// tickerPattern keeps ticker names usable as file names inside the output directory
var tickerPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.&_-]*$`)

// ExtractResult summarizes a YAML extraction
type ExtractResult struct {
	Files           int
	SkippedFiles    int
	Records         int
	Symbols         []string
	RejectedTickers []string
}

var csvHeader = []string{"Symbol", "Date", "Open", "High", "Low", "Close", "Volume"}

// ExtractYAML reads every *.yaml file below yamlDir, each holding a list of daily
// records for many tickers, and writes one <SYMBOL>.csv per ticker into outDir
func ExtractYAML(yamlDir, outDir string) (*ExtractResult, error) {
	var paths []string
	err := filepath.WalkDir(yamlDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && (strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", yamlDir, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoSources, yamlDir)
	}
	sort.Strings(paths)

	type row struct {
		date time.Time
		rec  yamlRecord
	}
	bySymbol := make(map[string][]row)
	rejected := make(map[string]bool)
	res := &ExtractResult{Files: len(paths)}

	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		var records []yamlRecord
		if err := yaml.Unmarshal(data, &records); err != nil {
			log.Warn().Str("path", p).Err(err).Msg("Skipping file that is not a record list")
			res.SkippedFiles++
			continue
		}
		for _, rec := range records {
			sym := strings.TrimSpace(rec.Ticker)
			if sym == "" {
				continue
			}
			if !tickerPattern.MatchString(sym) {
				if !rejected[sym] {
					rejected[sym] = true
					log.Warn().Str("path", p).Str("ticker", sym).Msg("Rejecting ticker that is not a valid file name")
				}
				continue
			}
			d, err := parseDate(strings.TrimSpace(rec.Date))
			if err != nil {
				log.Warn().Str("path", p).Str("symbol", sym).Err(err).Msg("Dropping record")
				continue
			}
			bySymbol[sym] = append(bySymbol[sym], row{date: d, rec: rec})
			res.Records++
		}
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	for sym, rows := range bySymbol {
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })
		out := make([][]string, 0, len(rows)+1)
		out = append(out, csvHeader)
		for _, r := range rows {
			out = append(out, []string{
				sym, r.date.Format("2006-01-02"),
				r.rec.Open, r.rec.High, r.rec.Low, r.rec.Close, r.rec.Volume,
			})
		}
		if err := writeCSVFile(filepath.Join(outDir, sym+".csv"), out); err != nil {
			return nil, err
		}
		res.Symbols = append(res.Symbols, sym)
	}
	sort.Strings(res.Symbols)
	for sym := range rejected {
		res.RejectedTickers = append(res.RejectedTickers, sym)
	}
	sort.Strings(res.RejectedTickers)

	log.Info().
		Int("files", res.Files).
		Int("records", res.Records).
		Int("symbols", len(res.Symbols)).
		Msg("Extracted YAML snapshots")
	return res, nil
}

func writeCSVFile(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
