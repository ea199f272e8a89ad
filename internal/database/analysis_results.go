package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// Monthly mover kinds stored in monthly_movers.kind
const (
	MoverGainer = "gainer"
	MoverLoser  = "loser"
)

// SaveReport persists a run and every derived table in one transaction
func (db *DB) SaveReport(report *analytics.Report) error {
	summary, err := json.Marshal(report.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO analysis_runs (id, generated_at, symbols, records, sector_status, summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, report.RunID, report.GeneratedAt, report.Summary.TotalSymbols, report.Summary.Records,
		string(report.Sectors.Status), summary, time.Now())
	if err != nil {
		return fmt.Errorf("failed to insert analysis run: %w", err)
	}

	var rows [][]interface{}
	for _, r := range report.YearlyReturns {
		rows = append(rows, []interface{}{report.RunID, r.Symbol, r.FirstClose, r.LastClose, r.ReturnPct})
	}
	if err := insertRows(tx, "yearly_returns", `
		INSERT INTO yearly_returns (run_id, symbol, first_close, last_close, return_pct)
		VALUES ($1, $2, $3, $4, $5)
	`, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, v := range report.Volatility {
		rows = append(rows, []interface{}{report.RunID, v.Symbol, v.VolatilityPct, v.Observations})
	}
	if err := insertRows(tx, "volatility", `
		INSERT INTO volatility (run_id, symbol, volatility_pct, observations)
		VALUES ($1, $2, $3, $4)
	`, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, s := range report.Sectors.Sectors {
		rows = append(rows, []interface{}{report.RunID, s.Sector, s.MeanReturnPct, s.Symbols})
	}
	if err := insertRows(tx, "sector_performance", `
		INSERT INTO sector_performance (run_id, sector, mean_return_pct, symbols)
		VALUES ($1, $2, $3, $4)
	`, rows); err != nil {
		return err
	}

	rows = rows[:0]
	cum := report.Cumulative
	for i, d := range cum.Dates {
		for j, v := range cum.Values[i] {
			if v != nil {
				rows = append(rows, []interface{}{report.RunID, d, cum.Symbols[j], *v})
			}
		}
	}
	if err := insertRows(tx, "cumulative_returns", `
		INSERT INTO cumulative_returns (run_id, date, symbol, value)
		VALUES ($1, $2, $3, $4)
	`, rows); err != nil {
		return err
	}

	rows = rows[:0]
	corr := report.Correlation
	for i := range corr.Symbols {
		for j := i + 1; j < len(corr.Symbols); j++ {
			if v := corr.Values[i][j]; v != nil {
				rows = append(rows, []interface{}{report.RunID, corr.Symbols[i], corr.Symbols[j], *v})
			}
		}
	}
	if err := insertRows(tx, "correlations", `
		INSERT INTO correlations (run_id, symbol_a, symbol_b, value)
		VALUES ($1, $2, $3, $4)
	`, rows); err != nil {
		return err
	}

	rows = rows[:0]
	for _, month := range analytics.SortedMonths(report.Monthly, false) {
		movers := report.Monthly[month]
		for i, r := range movers.Gainers {
			rows = append(rows, []interface{}{report.RunID, month, MoverGainer, i + 1, r.Symbol, r.ReturnPct})
		}
		for i, r := range movers.Losers {
			rows = append(rows, []interface{}{report.RunID, month, MoverLoser, i + 1, r.Symbol, r.ReturnPct})
		}
	}
	if err := insertRows(tx, "monthly_movers", `
		INSERT INTO monthly_movers (run_id, month, kind, rank, symbol, return_pct)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rows); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// insertRows runs one prepared insert per row. Nothing is prepared for an empty set.
func insertRows(tx *sql.Tx, table, query string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	stmt, err := tx.Prepare(query)
	if err != nil {
		return fmt.Errorf("failed to prepare %s insert: %w", table, err)
	}
	defer stmt.Close()

	for _, args := range rows {
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}
	return nil
}

const selectRunColumns = `SELECT id, generated_at, symbols, records, sector_status, created_at FROM analysis_runs`

// GetLatestRun returns the most recently generated run
func (db *DB) GetLatestRun() (*models.AnalysisRun, error) {
	row := db.conn.QueryRow(selectRunColumns + ` ORDER BY generated_at DESC LIMIT 1`)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no analysis runs found: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID
func (db *DB) GetRun(id string) (*models.AnalysisRun, error) {
	row := db.conn.QueryRow(selectRunColumns+` WHERE id = $1`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns up to limit runs, newest first
func (db *DB) ListRuns(limit int) ([]*models.AnalysisRun, error) {
	rows, err := db.conn.Query(selectRunColumns+` ORDER BY generated_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRunSummary decodes the stored market summary of a run
func (db *DB) GetRunSummary(id string) (*models.MarketSummary, error) {
	var raw []byte
	err := db.conn.QueryRow(`SELECT summary FROM analysis_runs WHERE id = $1`, id).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("analysis run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run summary: %w", err)
	}
	var s models.MarketSummary
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("failed to decode run summary: %w", err)
	}
	return &s, nil
}

// GetYearlyReturns returns a run's yearly returns, best first
func (db *DB) GetYearlyReturns(runID string) ([]models.YearlyReturn, error) {
	rows, err := db.conn.Query(`
		SELECT symbol, first_close, last_close, return_pct
		FROM yearly_returns
		WHERE run_id = $1
		ORDER BY return_pct DESC, symbol
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get yearly returns: %w", err)
	}
	defer rows.Close()

	var out []models.YearlyReturn
	for rows.Next() {
		var r models.YearlyReturn
		if err := rows.Scan(&r.Symbol, &r.FirstClose, &r.LastClose, &r.ReturnPct); err != nil {
			return nil, fmt.Errorf("failed to scan yearly return: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetVolatility returns a run's volatility ranking
func (db *DB) GetVolatility(runID string) ([]models.VolatilityRecord, error) {
	rows, err := db.conn.Query(`
		SELECT symbol, volatility_pct, observations
		FROM volatility
		WHERE run_id = $1
		ORDER BY volatility_pct DESC, symbol
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get volatility: %w", err)
	}
	defer rows.Close()

	var out []models.VolatilityRecord
	for rows.Next() {
		var v models.VolatilityRecord
		if err := rows.Scan(&v.Symbol, &v.VolatilityPct, &v.Observations); err != nil {
			return nil, fmt.Errorf("failed to scan volatility: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// GetSectorPerformance returns a run's sector averages
func (db *DB) GetSectorPerformance(runID string) ([]models.SectorPerformance, error) {
	rows, err := db.conn.Query(`
		SELECT sector, mean_return_pct, symbols
		FROM sector_performance
		WHERE run_id = $1
		ORDER BY mean_return_pct DESC, sector
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get sector performance: %w", err)
	}
	defer rows.Close()

	var out []models.SectorPerformance
	for rows.Next() {
		var s models.SectorPerformance
		if err := rows.Scan(&s.Sector, &s.MeanReturnPct, &s.Symbols); err != nil {
			return nil, fmt.Errorf("failed to scan sector performance: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// GetMonthlyMovers rebuilds a run's monthly leaderboard
func (db *DB) GetMonthlyMovers(runID string) (models.MonthlyMoversTable, error) {
	rows, err := db.conn.Query(`
		SELECT month, kind, symbol, return_pct
		FROM monthly_movers
		WHERE run_id = $1
		ORDER BY month, kind, rank
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to get monthly movers: %w", err)
	}
	defer rows.Close()

	out := models.MonthlyMoversTable{}
	for rows.Next() {
		var r models.MonthlyReturn
		var kind string
		if err := rows.Scan(&r.Month, &kind, &r.Symbol, &r.ReturnPct); err != nil {
			return nil, fmt.Errorf("failed to scan monthly mover: %w", err)
		}
		m := out[r.Month]
		m.Month = r.Month
		if kind == MoverGainer {
			m.Gainers = append(m.Gainers, r)
		} else {
			m.Losers = append(m.Losers, r)
		}
		out[r.Month] = m
	}
	return out, rows.Err()
}

// DeleteRunsOlderThan removes runs generated before date with their results
func (db *DB) DeleteRunsOlderThan(date time.Time) (int64, error) {
	result, err := db.conn.Exec(`DELETE FROM analysis_runs WHERE generated_at < $1`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old runs: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.AnalysisRun, error) {
	var r models.AnalysisRun
	if err := row.Scan(&r.ID, &r.GeneratedAt, &r.Symbols, &r.Records, &r.SectorState, &r.CreatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}
