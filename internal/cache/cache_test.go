package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

func setupRedis(t *testing.T) *ReportCache {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get redis endpoint: %v", err)
	}

	c := NewReportCache(NewClient(endpoint, "", 0), "test:", time.Minute)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestReportCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	c := setupRedis(t)
	ctx := context.Background()

	t.Run("miss returns nil", func(t *testing.T) {
		require.NoError(t, c.Invalidate(ctx))

		got, err := c.GetLatest(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("set then get", func(t *testing.T) {
		v := 0.5
		report := &analytics.Report{
			RunID:       "run-1",
			GeneratedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
			TopGainers:  []models.YearlyReturn{{Symbol: "A", ReturnPct: 21}},
			Correlation: models.CorrelationMatrix{Symbols: []string{"A", "B"}, Values: [][]*float64{{nil, &v}, {&v, nil}}},
			Sectors:     analytics.SectorResult{Status: analytics.SectorStatusError, Message: "sector source unavailable"},
		}
		require.NoError(t, c.SetLatest(ctx, report))

		got, err := c.GetLatest(ctx)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "run-1", got.RunID)
		assert.True(t, report.GeneratedAt.Equal(got.GeneratedAt))
		assert.Equal(t, report.TopGainers, got.TopGainers)
		assert.Nil(t, got.Correlation.Values[0][0])
		assert.Equal(t, 0.5, *got.Correlation.Values[0][1])
		assert.Equal(t, analytics.SectorStatusError, got.Sectors.Status)
		assert.Equal(t, "sector source unavailable", got.Sectors.Message)
	})

	t.Run("invalidate removes entry", func(t *testing.T) {
		require.NoError(t, c.SetLatest(ctx, &analytics.Report{RunID: "run-2"}))
		require.NoError(t, c.Invalidate(ctx))

		got, err := c.GetLatest(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
