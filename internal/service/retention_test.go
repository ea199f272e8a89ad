package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRetentionStore struct {
	runsBefore   time.Time
	pricesBefore time.Time
	runsErr      error
}

func (s *fakeRetentionStore) DeleteRunsOlderThan(date time.Time) (int64, error) {
	s.runsBefore = date
	return 2, s.runsErr
}

func (s *fakeRetentionStore) DeletePriceRecordsOlderThan(date time.Time) (int64, error) {
	s.pricesBefore = date
	return 10, nil
}

func TestRetention_Run(t *testing.T) {
	now := time.Date(2024, 6, 30, 3, 0, 0, 0, time.UTC)

	t.Run("prunes both histories", func(t *testing.T) {
		store := &fakeRetentionStore{}
		r := Retention{Store: store, RunsAge: 24 * time.Hour, PricesAge: 48 * time.Hour, Now: func() time.Time { return now }}
		require.NoError(t, r.Run(context.Background()))
		assert.Equal(t, now.Add(-24*time.Hour), store.runsBefore)
		assert.Equal(t, now.Add(-48*time.Hour), store.pricesBefore)
	})

	t.Run("zero age keeps history", func(t *testing.T) {
		store := &fakeRetentionStore{}
		r := Retention{Store: store, RunsAge: time.Hour, Now: func() time.Time { return now }}
		require.NoError(t, r.Run(context.Background()))
		assert.False(t, store.runsBefore.IsZero())
		assert.True(t, store.pricesBefore.IsZero())
	})

	t.Run("store error stops the run", func(t *testing.T) {
		store := &fakeRetentionStore{runsErr: errors.New("locked")}
		r := Retention{Store: store, RunsAge: time.Hour, PricesAge: time.Hour}
		err := r.Run(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to prune runs")
		assert.True(t, store.pricesBefore.IsZero())
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		store := &fakeRetentionStore{}
		err := Retention{Store: store, RunsAge: time.Hour}.Run(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.True(t, store.runsBefore.IsZero())
	})
}
