package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
)

type countingRefresher struct {
	calls    int32
	err      error
	deadline bool
}

func (c *countingRefresher) Refresh(ctx context.Context) (*analytics.Report, error) {
	atomic.AddInt32(&c.calls, 1)
	_, c.deadline = ctx.Deadline()
	if c.err != nil {
		return nil, c.err
	}
	return &analytics.Report{RunID: "r"}, nil
}

func TestRegister_InvalidSpec(t *testing.T) {
	s := NewScheduler(context.Background(), &countingRefresher{}, 0)
	err := s.Register("not a cron line")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register refresh task")
}

func TestRegister_SetsNextRun(t *testing.T) {
	s := NewScheduler(context.Background(), &countingRefresher{}, 0)
	assert.True(t, s.Next().IsZero())

	require.NoError(t, s.Register("0 30 18 * * 1-5"))
	s.Start()
	defer s.Stop()

	next := s.Next()
	require.False(t, next.IsZero())
	assert.Equal(t, 18, next.Hour())
	assert.Equal(t, 30, next.Minute())
}

func TestRunNow(t *testing.T) {
	t.Run("applies timeout", func(t *testing.T) {
		r := &countingRefresher{}
		s := NewScheduler(context.Background(), r, time.Minute)
		s.RunNow()
		assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
		assert.True(t, r.deadline)
	})

	t.Run("errors are logged not raised", func(t *testing.T) {
		r := &countingRefresher{err: errors.New("no data")}
		s := NewScheduler(context.Background(), r, 0)
		s.RunNow()
		assert.Equal(t, int32(1), atomic.LoadInt32(&r.calls))
		assert.False(t, r.deadline)
	})
}

func TestScheduledRunFires(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping timing test in short mode")
	}
	r := &countingRefresher{}
	s := NewScheduler(context.Background(), r, 0)
	require.NoError(t, s.Register("* * * * * *"))
	s.Start()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&r.calls) > 0
	}, 3*time.Second, 50*time.Millisecond)
	s.Stop()
}

func TestRegisterTask(t *testing.T) {
	t.Run("invalid spec", func(t *testing.T) {
		s := NewScheduler(context.Background(), &countingRefresher{}, 0)
		err := s.RegisterTask("retention", "bad", func(context.Context) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "register retention task")
	})

	t.Run("fires with timeout", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping timing test in short mode")
		}
		var calls int32
		var deadline atomic.Bool
		s := NewScheduler(context.Background(), &countingRefresher{}, time.Minute)
		require.NoError(t, s.RegisterTask("retention", "* * * * * *", func(ctx context.Context) error {
			_, ok := ctx.Deadline()
			deadline.Store(ok)
			atomic.AddInt32(&calls, 1)
			return errors.New("logged only")
		}))
		s.Start()

		assert.Eventually(t, func() bool {
			return atomic.LoadInt32(&calls) > 0
		}, 3*time.Second, 50*time.Millisecond)
		s.Stop()
		assert.True(t, deadline.Load())
	})
}
