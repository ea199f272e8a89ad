package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

type mockPriceRepo struct {
	mu     sync.Mutex
	stored []models.PriceRecord
	err    error
	called chan struct{}
}

func (m *mockPriceRepo) UpsertPriceRecord(p *models.PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.err != nil {
		return m.err
	}
	m.stored = append(m.stored, *p)
	if m.called != nil {
		select {
		case m.called <- struct{}{}:
		default:
		}
	}
	return nil
}

func (m *mockPriceRepo) Stored() []models.PriceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.PriceRecord(nil), m.stored...)
}

type mockReader struct {
	cfg  kafka.ReaderConfig
	msgs chan kafka.Message

	mu         sync.Mutex
	closeCalls int
}

func newMockReader(topic string, buffer int) *mockReader {
	return &mockReader{
		cfg:  kafka.ReaderConfig{Topic: topic},
		msgs: make(chan kafka.Message, buffer),
	}
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-r.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.mu.Lock()
	r.closeCalls++
	r.mu.Unlock()
	return nil
}

func (r *mockReader) Config() kafka.ReaderConfig {
	return r.cfg
}

func priceEvent(t *testing.T, eventType string, data models.PriceBarData) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(models.PriceBarEvent{
		EventType: eventType,
		Source:    "collector",
		Data:      data,
		Timestamp: time.Now(),
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(data.Symbol), Value: payload}
}

func TestConsumer_processMessage(t *testing.T) {
	t.Run("stores bar with defaults for missing fields", func(t *testing.T) {
		repo := &mockPriceRepo{}
		consumer := &Consumer{repo: repo, defaultVolume: 1000000}

		err := consumer.processMessage(priceEvent(t, models.EventPriceBar, models.PriceBarData{
			Symbol: "TCS",
			Date:   "2023-10-03",
			Close:  "3513.85",
		}))
		require.NoError(t, err)

		stored := repo.Stored()
		require.Len(t, stored, 1)
		assert.Equal(t, "TCS", stored[0].Symbol)
		assert.Equal(t, time.Date(2023, 10, 3, 0, 0, 0, 0, time.UTC), stored[0].Date)
		assert.True(t, stored[0].Close.Equal(decimal.RequireFromString("3513.85")))
		assert.False(t, stored[0].Open.Valid)
		assert.Equal(t, int64(1000000), stored[0].Volume)
	})

	t.Run("keeps provided volume and prices", func(t *testing.T) {
		repo := &mockPriceRepo{}
		consumer := &Consumer{repo: repo, defaultVolume: 1}
		vol := int64(42)

		err := consumer.processMessage(priceEvent(t, models.EventPriceBar, models.PriceBarData{
			Symbol: "SBIN", Date: "2023-10-03", Open: "596.6", High: "604.9", Low: "589.6", Close: "602.95", Volume: &vol,
		}))
		require.NoError(t, err)

		stored := repo.Stored()
		require.Len(t, stored, 1)
		assert.Equal(t, int64(42), stored[0].Volume)
		assert.True(t, stored[0].High.Valid)
	})

	t.Run("ignores other event types", func(t *testing.T) {
		repo := &mockPriceRepo{}
		consumer := &Consumer{repo: repo}

		err := consumer.processMessage(priceEvent(t, "SOMETHING_ELSE", models.PriceBarData{Symbol: "X"}))
		require.NoError(t, err)
		assert.Empty(t, repo.Stored())
	})

	t.Run("rejects missing close", func(t *testing.T) {
		consumer := &Consumer{repo: &mockPriceRepo{}}

		err := consumer.processMessage(priceEvent(t, models.EventPriceBar, models.PriceBarData{Symbol: "X", Date: "2023-10-03"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid close")
	})

	t.Run("rejects bad date", func(t *testing.T) {
		consumer := &Consumer{repo: &mockPriceRepo{}}

		err := consumer.processMessage(priceEvent(t, models.EventPriceBar, models.PriceBarData{Symbol: "X", Date: "03/10/2023", Close: "1"}))
		require.Error(t, err)
	})

	t.Run("rejects malformed payload", func(t *testing.T) {
		consumer := &Consumer{repo: &mockPriceRepo{}}

		err := consumer.processMessage(kafka.Message{Value: []byte("{not json")})
		require.Error(t, err)
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		consumer := &Consumer{repo: &mockPriceRepo{err: errors.New("db down")}}

		err := consumer.processMessage(priceEvent(t, models.EventPriceBar, models.PriceBarData{Symbol: "X", Date: "2023-10-03", Close: "1"}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save price bar")
	})

	t.Run("notifies after store", func(t *testing.T) {
		consumer := &Consumer{repo: &mockPriceRepo{}}
		var got []string
		consumer.OnStored(func(r models.PriceRecord) { got = append(got, r.Symbol) })

		require.NoError(t, consumer.processMessage(priceEvent(t, models.EventPriceBar, models.PriceBarData{Symbol: "X", Date: "2023-10-03", Close: "1"})))
		assert.Equal(t, []string{"X"}, got)
	})
}

func TestConsumer_Start_consumesAndProcessesMessages(t *testing.T) {
	repo := &mockPriceRepo{called: make(chan struct{}, 1)}
	reader := newMockReader("prices-topic", 1)
	consumer := &Consumer{reader: reader, repo: repo, defaultVolume: 1}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- consumer.Start(ctx)
	}()

	reader.msgs <- priceEvent(t, models.EventPriceBar, models.PriceBarData{Symbol: "INFY", Date: "2023-10-03", Close: "1450.5"})

	select {
	case <-repo.called:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for price bar to be processed")
	}

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for consumer to shut down")
	}

	stored := repo.Stored()
	require.Len(t, stored, 1)
	assert.Equal(t, "INFY", stored[0].Symbol)

	reader.mu.Lock()
	defer reader.mu.Unlock()
	assert.Equal(t, 1, reader.closeCalls)
}
