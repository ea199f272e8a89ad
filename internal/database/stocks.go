package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

const upsertStockQuery = `
	INSERT INTO stocks (symbol, name, sector, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $4)
	ON CONFLICT (symbol) DO UPDATE SET
		name = COALESCE(EXCLUDED.name, stocks.name),
		sector = EXCLUDED.sector,
		updated_at = EXCLUDED.updated_at
`

// UpsertStock stores the sector classification of a symbol
func (db *DB) UpsertStock(s *models.Stock) error {
	now := time.Now()
	symbol := analytics.NormalizeSymbol(s.Symbol)
	sector := s.Sector
	if sector == "" {
		sector = analytics.UnknownSector
	}

	if _, err := db.conn.Exec(upsertStockQuery, symbol, nullString(s.Name), sector, now); err != nil {
		return fmt.Errorf("failed to upsert stock %s: %w", symbol, err)
	}
	s.Symbol = symbol
	s.Sector = sector
	s.UpdatedAt = now
	return nil
}

// ReplaceSectorMap makes m the full set of classified stocks in one transaction.
// Symbols absent from m are removed so they fall back to the unknown sector.
func (db *DB) ReplaceSectorMap(m analytics.SectorMap) (int, error) {
	entries := m.Entries()
	symbols := make([]string, len(entries))
	for i, e := range entries {
		symbols[i] = e.Symbol
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM stocks WHERE symbol <> ALL($1)`, pq.Array(symbols)); err != nil {
		return 0, fmt.Errorf("failed to remove stale stocks: %w", err)
	}

	stmt, err := tx.Prepare(upsertStockQuery)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, e := range entries {
		if _, err := stmt.Exec(e.Symbol, nil, e.Sector, now); err != nil {
			return 0, fmt.Errorf("failed to upsert stock %s: %w", e.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return len(entries), nil
}

// GetStock retrieves a stock by symbol
func (db *DB) GetStock(symbol string) (*models.Stock, error) {
	query := `
		SELECT symbol, name, sector, created_at, updated_at
		FROM stocks
		WHERE symbol = $1
	`
	stocks, err := db.scanStocks(db.conn.Query(query, analytics.NormalizeSymbol(symbol)))
	if err != nil {
		return nil, err
	}
	if len(stocks) == 0 {
		return nil, fmt.Errorf("stock %s: %w", symbol, ErrNotFound)
	}
	return stocks[0], nil
}

// ListStocks returns every classified stock ordered by symbol
func (db *DB) ListStocks() ([]*models.Stock, error) {
	query := `
		SELECT symbol, name, sector, created_at, updated_at
		FROM stocks
		ORDER BY symbol
	`
	return db.scanStocks(db.conn.Query(query))
}

// LoadSectorMap builds the sector mapping from the stocks table
func (db *DB) LoadSectorMap() (analytics.SectorMap, error) {
	stocks, err := db.ListStocks()
	if err != nil {
		return analytics.SectorMap{}, fmt.Errorf("%w: %v", analytics.ErrSectorSource, err)
	}
	entries := make([]analytics.SectorEntry, 0, len(stocks))
	for _, s := range stocks {
		entries = append(entries, analytics.SectorEntry{Symbol: s.Symbol, Sector: s.Sector})
	}
	return analytics.NewSectorMap(entries), nil
}

// DeleteStock removes a symbol's classification
func (db *DB) DeleteStock(symbol string) error {
	result, err := db.conn.Exec(`DELETE FROM stocks WHERE symbol = $1`, analytics.NormalizeSymbol(symbol))
	if err != nil {
		return fmt.Errorf("failed to delete stock: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("stock %s: %w", symbol, ErrNotFound)
	}
	return nil
}

func (db *DB) scanStocks(rows *sql.Rows, err error) ([]*models.Stock, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	var stocks []*models.Stock
	for rows.Next() {
		var s models.Stock
		var name sql.NullString
		if err := rows.Scan(&s.Symbol, &name, &s.Sector, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		if name.Valid {
			s.Name = name.String
		}
		stocks = append(stocks, &s)
	}
	return stocks, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
