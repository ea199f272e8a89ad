package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

const upsertPriceQuery = `
	INSERT INTO stock_prices (symbol, date, open, high, low, close, volume, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
	ON CONFLICT (symbol, date) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume,
		updated_at = EXCLUDED.updated_at
`

const selectPriceColumns = `SELECT symbol, date, open, high, low, close, volume FROM stock_prices`

// UpsertPriceRecord inserts or replaces the bar for (symbol, date)
func (db *DB) UpsertPriceRecord(p *models.PriceRecord) error {
	_, err := db.conn.Exec(upsertPriceQuery,
		p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert price for %s: %w", p.Symbol, err)
	}
	return nil
}

// UpsertPriceRecords writes records in a single transaction
func (db *DB) UpsertPriceRecords(records []models.PriceRecord) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(upsertPriceQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, p := range records {
		if _, err := stmt.Exec(p.Symbol, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume, now); err != nil {
			return 0, fmt.Errorf("failed to upsert price for %s: %w", p.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(records), nil
}

// GetPriceRecords returns the bars of symbol between start and end inclusive, oldest first
func (db *DB) GetPriceRecords(symbol string, start, end time.Time) ([]models.PriceRecord, error) {
	query := selectPriceColumns + `
		WHERE symbol = $1 AND date >= $2 AND date <= $3
		ORDER BY date ASC
	`
	rows, err := db.conn.Query(query, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices for %s: %w", symbol, err)
	}
	return scanPriceRecords(rows)
}

// GetAllPriceRecords returns every stored bar ordered by symbol and date
func (db *DB) GetAllPriceRecords() ([]models.PriceRecord, error) {
	rows, err := db.conn.Query(selectPriceColumns + ` ORDER BY symbol, date`)
	if err != nil {
		return nil, fmt.Errorf("failed to get prices: %w", err)
	}
	return scanPriceRecords(rows)
}

// LoadPriceTable builds the analysis table from the stored history
func (db *DB) LoadPriceTable() (*analytics.PriceTable, error) {
	records, err := db.GetAllPriceRecords()
	if err != nil {
		return nil, err
	}
	return analytics.NewPriceTable(records), nil
}

// ListPriceSymbols returns the distinct symbols with stored prices
func (db *DB) ListPriceSymbols() ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT symbol FROM stock_prices ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to list symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("failed to scan symbol: %w", err)
		}
		symbols = append(symbols, s)
	}
	return symbols, rows.Err()
}

// DeletePriceRecordsOlderThan removes bars dated before date
func (db *DB) DeletePriceRecordsOlderThan(date time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM stock_prices WHERE date < $1`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old prices: %w", err)
	}
	return result.RowsAffected()
}

func scanPriceRecords(rows *sql.Rows) ([]models.PriceRecord, error) {
	defer rows.Close()

	var records []models.PriceRecord
	for rows.Next() {
		var p models.PriceRecord
		if err := rows.Scan(&p.Symbol, &p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		p.Date = p.Date.UTC()
		records = append(records, p)
	}
	return records, rows.Err()
}
