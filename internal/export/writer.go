package export

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

// WorkbookName is the file written next to the CSV tables
const WorkbookName = "stock_analysis.xlsx"

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Exporter writes tables into a directory
type Exporter struct {
	dir string
}

// NewExporter creates an Exporter rooted at dir
func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

// Dir returns the output directory
func (e *Exporter) Dir() string {
	return e.dir
}

// WriteCSV writes every table to <dir>/<name>.csv with a UTF-8 BOM for Excel
func (e *Exporter) WriteCSV(tables []Table) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	paths := make([]string, 0, len(tables))
	for _, t := range tables {
		path := filepath.Join(e.dir, t.Name+".csv")
		if err := writeTable(path, t); err != nil {
			return paths, err
		}
		paths = append(paths, path)
		log.Debug().Str("file", path).Int("rows", len(t.Rows)).Msg("Wrote CSV table")
	}
	log.Info().Str("dir", e.dir).Int("files", len(paths)).Msg("CSV export complete")
	return paths, nil
}

func writeTable(path string, t Table) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	if err := writer.Write(t.Headers); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteWorkbook writes every table as a sheet of one xlsx workbook and returns its path
func (e *Exporter) WriteWorkbook(tables []Table) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", t.Name); err != nil {
				return "", fmt.Errorf("failed to name sheet %s: %w", t.Name, err)
			}
		} else if _, err := f.NewSheet(t.Name); err != nil {
			return "", fmt.Errorf("failed to create sheet %s: %w", t.Name, err)
		}

		if err := setRow(f, t.Name, 1, t.Headers); err != nil {
			return "", err
		}
		for r, row := range t.Rows {
			if err := setRow(f, t.Name, r+2, row); err != nil {
				return "", err
			}
		}
	}

	path := filepath.Join(e.dir, WorkbookName)
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}
	log.Info().Str("file", path).Int("sheets", len(tables)).Msg("Workbook export complete")
	return path, nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = cellValue(v)
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// cellValue keeps numbers numeric so spreadsheets can aggregate them
func cellValue(s string) interface{} {
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return f
	}
	return s
}
