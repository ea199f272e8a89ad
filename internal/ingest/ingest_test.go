package ingest

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func src(name, symbol, body string) Source {
	return Source{Name: name, Symbol: symbol, Reader: strings.NewReader(body)}
}

func TestNormalize(t *testing.T) {
	t.Run("merges sources sorted by symbol and date", func(t *testing.T) {
		res := Normalize([]Source{
			src("MSFT.csv", "MSFT", "date,open,high,low,close,volume\n2023-01-03,1,2,0.5,11,500\n2023-01-02,1,2,0.5,10,400\n"),
			src("AAPL.csv", "AAPL", "Date,Close\n2023-01-02,100\n"),
		}, DefaultOptions())

		require.Equal(t, 3, res.Table.Len())
		assert.Equal(t, []string{"AAPL", "MSFT"}, res.Table.Symbols())

		recs := res.Table.Records()
		assert.Equal(t, "AAPL", recs[0].Symbol)
		assert.Equal(t, DefaultVolume, recs[0].Volume)
		assert.False(t, recs[0].Open.Valid)
		assert.True(t, recs[1].Close.Equal(decimal.NewFromInt(10)))
		assert.Equal(t, int64(400), recs[1].Volume)
		assert.True(t, recs[1].Open.Valid)
		assert.Equal(t, 0, res.Skipped())
	})

	t.Run("skips source without close column", func(t *testing.T) {
		res := Normalize([]Source{
			src("BAD.csv", "BAD", "date,open\n2023-01-02,1\n"),
			src("OK.csv", "OK", "date,close\n2023-01-02,5\n"),
		}, DefaultOptions())

		assert.Equal(t, []string{"OK"}, res.Table.Symbols())
		require.Len(t, res.Sources, 2)
		assert.False(t, res.Sources[0].Accepted)
		assert.Equal(t, ErrMissingClose.Error(), res.Sources[0].Reason)
		assert.Equal(t, 1, res.Skipped())
	})

	t.Run("synthesizes dates from epoch", func(t *testing.T) {
		res := Normalize([]Source{src("X.csv", "X", "close\n1\n2\n3\n")}, DefaultOptions())

		recs := res.Table.Records()
		require.Len(t, recs, 3)
		for i, r := range recs {
			assert.Equal(t, DefaultEpoch.AddDate(0, 0, i), r.Date)
		}
	})

	t.Run("drops rows with blank close", func(t *testing.T) {
		res := Normalize([]Source{src("X.csv", "X", "date,close\n2023-01-02,1\n2023-01-03,\n2023-01-04,abc\n")}, DefaultOptions())

		assert.Equal(t, 1, res.Table.Len())
		assert.Equal(t, 2, res.Sources[0].DroppedRows)
	})

	t.Run("symbol column overrides source name", func(t *testing.T) {
		res := Normalize([]Source{src("all.csv", "all", "Ticker,Date,Close\nTCS,2023-01-02,1\nINFY,2023-01-02,2\n")}, DefaultOptions())

		assert.Equal(t, []string{"INFY", "TCS"}, res.Table.Symbols())
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		res := Normalize([]Source{src("X.csv", "X", "\xEF\xBB\xBFDate,Close\n2023-01-02,1\n")}, DefaultOptions())

		recs := res.Table.Records()
		require.Len(t, recs, 1)
		assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), recs[0].Date)
	})

	t.Run("bad date skips source", func(t *testing.T) {
		res := Normalize([]Source{src("X.csv", "X", "date,close\nyesterday,1\n")}, DefaultOptions())

		assert.True(t, res.Table.Empty())
		assert.False(t, res.Sources[0].Accepted)
	})

	t.Run("no usable sources gives empty table", func(t *testing.T) {
		res := Normalize(nil, Options{})

		require.NotNil(t, res.Table)
		assert.True(t, res.Table.Empty())
	})
}

func TestLoadDir(t *testing.T) {
	t.Run("uses file stem as symbol", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "HDFC.csv"), []byte("date,close\n2023-01-02,1\n"), 0644))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644))

		res, err := LoadDir(dir, DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, []string{"HDFC"}, res.Table.Symbols())
	})

	t.Run("empty directory yields an empty table", func(t *testing.T) {
		res, err := LoadDir(t.TempDir(), DefaultOptions())
		require.NoError(t, err)
		assert.True(t, res.Table.Empty())
		assert.Empty(t, res.Sources)
	})
}

func TestReadSectorMap(t *testing.T) {
	t.Run("header with named columns", func(t *testing.T) {
		m, err := ReadSectorMap(strings.NewReader("COMPANY,sector,Symbol\nTata,IT, tcs \nInfosys,IT,INFY\n"))
		require.NoError(t, err)

		sector, ok := m.Lookup("TCS")
		assert.True(t, ok)
		assert.Equal(t, "IT", sector)
		assert.Equal(t, 2, m.Len())
	})

	t.Run("headerless two columns with comments", func(t *testing.T) {
		m, err := ReadSectorMap(strings.NewReader("# symbol map\nAAPL,Technology\nXOM,Energy\n"))
		require.NoError(t, err)

		sector, ok := m.Lookup("xom")
		assert.True(t, ok)
		assert.Equal(t, "Energy", sector)
	})

	t.Run("short row is an error", func(t *testing.T) {
		_, err := ReadSectorMap(strings.NewReader("AAPL\n"))
		assert.True(t, errors.Is(err, ErrSectorSource))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadSectorMap(filepath.Join(t.TempDir(), "missing.csv"))
		assert.True(t, errors.Is(err, ErrSectorSource))
	})

	t.Run("empty path loader", func(t *testing.T) {
		m, err := SectorFileLoader("")()
		require.NoError(t, err)
		assert.Equal(t, 0, m.Len())
	})
}

func TestExtractYAML(t *testing.T) {
	yamlDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "csv")

	day1 := `- Ticker: SBIN
  close: 602.95
  date: '2023-10-03 05:30:00'
  high: 604.9
  low: 589.6
  month: 2023-10
  open: 596.6
  volume: 15322196
- Ticker: TCS
  close: 3513.85
  date: '2023-10-03 05:30:00'
  high: 3534.2
  low: 3480.1
  month: 2023-10
  open: 3500
  volume: 1948148
`
	day0 := `- Ticker: SBIN
  close: 590
  date: '2023-10-02 05:30:00'
  high: 600
  low: 580
  month: 2023-10
  open: 585
  volume: 1000
`
	require.NoError(t, os.MkdirAll(filepath.Join(yamlDir, "2023-10"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(yamlDir, "2023-10", "2023-10-03.yaml"), []byte(day1), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(yamlDir, "2023-10", "2023-10-02.yaml"), []byte(day0), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(yamlDir, "broken.yaml"), []byte("Ticker: x\n"), 0644))

	res, err := ExtractYAML(yamlDir, outDir)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Files)
	assert.Equal(t, 1, res.SkippedFiles)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, []string{"SBIN", "TCS"}, res.Symbols)

	loaded, err := LoadDir(outDir, DefaultOptions())
	require.NoError(t, err)
	recs := loaded.Table.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "SBIN", recs[0].Symbol)
	assert.True(t, recs[0].Close.Equal(decimal.NewFromInt(590)))
	assert.True(t, recs[1].Close.Equal(decimal.RequireFromString("602.95")))
	assert.Equal(t, int64(15322196), recs[1].Volume)
}

func TestExtractYAML_RejectsUnsafeTickers(t *testing.T) {
	yamlDir := t.TempDir()
	root := t.TempDir()
	outDir := filepath.Join(root, "csv")

	body := `- Ticker: ../escape
  close: 1
  date: '2023-10-03 05:30:00'
- Ticker: BRK/B
  close: 2
  date: '2023-10-03 05:30:00'
- Ticker: M&M
  close: 3
  date: '2023-10-03 05:30:00'
- Ticker: BAJAJ-AUTO
  close: 4
  date: '2023-10-03 05:30:00'
`
	require.NoError(t, os.WriteFile(filepath.Join(yamlDir, "2023-10-03.yaml"), []byte(body), 0644))

	res, err := ExtractYAML(yamlDir, outDir)
	require.NoError(t, err)
	assert.Equal(t, []string{"BAJAJ-AUTO", "M&M"}, res.Symbols)
	assert.Equal(t, []string{"../escape", "BRK/B"}, res.RejectedTickers)
	assert.Equal(t, 2, res.Records)

	_, err = os.Stat(filepath.Join(root, "escape.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(outDir, "BRK"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractYAML_NoSnapshots(t *testing.T) {
	_, err := ExtractYAML(t.TempDir(), t.TempDir())
	assert.True(t, errors.Is(err, ErrNoSources))
}
