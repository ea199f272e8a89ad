package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

func TestStockRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	t.Run("UpsertStock normalizes symbol and defaults sector", func(t *testing.T) {
		testDB.TruncateAll(t)

		s := &models.Stock{Symbol: " aapl ", Name: "Apple Inc."}
		require.NoError(t, testDB.UpsertStock(s))
		assert.Equal(t, "AAPL", s.Symbol)
		assert.Equal(t, analytics.UnknownSector, s.Sector)

		got, err := testDB.GetStock("aapl")
		require.NoError(t, err)
		assert.Equal(t, "Apple Inc.", got.Name)
	})

	t.Run("ReplaceSectorMap keeps names", func(t *testing.T) {
		testDB.TruncateAll(t)

		require.NoError(t, testDB.UpsertStock(&models.Stock{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Unknown"}))
		n, err := testDB.ReplaceSectorMap(analytics.NewSectorMap([]analytics.SectorEntry{
			{Symbol: "AAPL", Sector: "Technology"},
			{Symbol: "XOM", Sector: "Energy"},
		}))
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		got, err := testDB.GetStock("AAPL")
		require.NoError(t, err)
		assert.Equal(t, "Technology", got.Sector)
		assert.Equal(t, "Apple Inc.", got.Name)
	})

	t.Run("ReplaceSectorMap drops symbols missing from the new map", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.ReplaceSectorMap(analytics.NewSectorMap([]analytics.SectorEntry{
			{Symbol: "AAPL", Sector: "Technology"},
			{Symbol: "XOM", Sector: "Energy"},
		}))
		require.NoError(t, err)
		_, err = testDB.ReplaceSectorMap(analytics.NewSectorMap([]analytics.SectorEntry{
			{Symbol: "AAPL", Sector: "Technology"},
		}))
		require.NoError(t, err)

		m, err := testDB.LoadSectorMap()
		require.NoError(t, err)
		assert.Equal(t, 1, m.Len())
		_, ok := m.Lookup("XOM")
		assert.False(t, ok)
	})

	t.Run("LoadSectorMap round trips", func(t *testing.T) {
		testDB.TruncateAll(t)

		_, err := testDB.ReplaceSectorMap(analytics.NewSectorMap([]analytics.SectorEntry{
			{Symbol: "TCS", Sector: "IT"},
		}))
		require.NoError(t, err)

		m, err := testDB.LoadSectorMap()
		require.NoError(t, err)
		sector, ok := m.Lookup("tcs")
		assert.True(t, ok)
		assert.Equal(t, "IT", sector)
	})

	t.Run("long symbols fit", func(t *testing.T) {
		testDB.TruncateAll(t)

		long := "NSE:" + strings.Repeat("X", 40)
		require.NoError(t, testDB.UpsertStock(&models.Stock{Symbol: long, Sector: "Energy"}))
		got, err := testDB.GetStock(long)
		require.NoError(t, err)
		assert.Equal(t, long, got.Symbol)
	})

	t.Run("DeleteStock missing symbol", func(t *testing.T) {
		testDB.TruncateAll(t)

		assert.ErrorIs(t, testDB.DeleteStock("NONE"), ErrNotFound)
	})
}

func TestReplaceSectorMap_RemovesStaleRowsFirst(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM stocks WHERE symbol <> ALL").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))
	prep := mock.ExpectPrepare("INSERT INTO stocks")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	n, err := db.ReplaceSectorMap(analytics.NewSectorMap([]analytics.SectorEntry{{Symbol: "AAPL", Sector: "Technology"}}))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSectorMap_RollsBackWhenDeleteFails(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqlDB.Close()

	db := &DB{conn: sqlDB}

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM stocks").WillReturnError(errors.New("lock timeout"))
	mock.ExpectRollback()

	_, err = db.ReplaceSectorMap(analytics.NewSectorMap([]analytics.SectorEntry{{Symbol: "AAPL", Sector: "Technology"}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to remove stale stocks")

	require.NoError(t, mock.ExpectationsWereMet())
}
