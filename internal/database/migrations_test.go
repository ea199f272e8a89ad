package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("all tables exist", func(t *testing.T) {
		expectedTables := []string{
			"stocks",
			"stock_prices",
			"analysis_runs",
			"yearly_returns",
			"volatility",
			"sector_performance",
			"cumulative_returns",
			"correlations",
			"monthly_movers",
		}

		for _, tableName := range expectedTables {
			var exists bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM information_schema.tables
					WHERE table_schema = 'public'
					AND table_name = $1
				)
			`, tableName).Scan(&exists)

			require.NoError(t, err, "failed to check table existence for %s", tableName)
			assert.True(t, exists, "table %s should exist", tableName)
		}
	})

	t.Run("stock_prices table has correct columns", func(t *testing.T) {
		expectedColumns := map[string]string{
			"symbol":     "text",
			"date":       "date",
			"open":       "numeric",
			"high":       "numeric",
			"low":        "numeric",
			"close":      "numeric",
			"volume":     "bigint",
			"created_at": "timestamp without time zone",
			"updated_at": "timestamp without time zone",
		}

		for colName, expectedType := range expectedColumns {
			var actualType string
			err := testDB.GetRawConn().QueryRow(`
				SELECT data_type
				FROM information_schema.columns
				WHERE table_name = 'stock_prices' AND column_name = $1
			`, colName).Scan(&actualType)

			require.NoError(t, err, "column %s should exist in stock_prices table", colName)
			assert.Equal(t, expectedType, actualType, "column %s should have type %s", colName, expectedType)
		}
	})

	t.Run("stock_prices unique on symbol and date", func(t *testing.T) {
		var priceUnique bool
		err := testDB.GetRawConn().QueryRow(`
			SELECT EXISTS (
				SELECT FROM pg_constraint c
				JOIN pg_class t ON c.conrelid = t.oid
				WHERE t.relname = 'stock_prices'
				AND c.contype = 'u'
			)
		`).Scan(&priceUnique)
		require.NoError(t, err)
		assert.True(t, priceUnique, "stock_prices should have unique constraint on (symbol, date)")
	})

	t.Run("result tables reference analysis_runs", func(t *testing.T) {
		for _, table := range []string{"yearly_returns", "volatility", "sector_performance", "cumulative_returns", "correlations", "monthly_movers"} {
			var fk bool
			err := testDB.GetRawConn().QueryRow(`
				SELECT EXISTS (
					SELECT FROM pg_constraint c
					JOIN pg_class t ON c.conrelid = t.oid
					WHERE t.relname = $1
					AND c.contype = 'f'
				)
			`, table).Scan(&fk)
			require.NoError(t, err)
			assert.True(t, fk, "%s should have foreign key to analysis_runs", table)
		}
	})

	t.Run("migrate is idempotent", func(t *testing.T) {
		require.NoError(t, testDB.Migrate())
	})
}
