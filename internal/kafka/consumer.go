package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

// PriceRepository stores bars received from Kafka
type PriceRepository interface {
	UpsertPriceRecord(p *models.PriceRecord) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
	Config() kafka.ReaderConfig
}

// Consumer ingests PRICE_BAR events into the price store
type Consumer struct {
	reader        messageReader
	repo          PriceRepository
	defaultVolume int64
	onStored      func(models.PriceRecord)
}

// NewConsumer creates a new Kafka consumer for price bar events
func NewConsumer(brokers []string, topic, groupID string, repo PriceRepository, defaultVolume int64) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:        reader,
		repo:          repo,
		defaultVolume: defaultVolume,
	}
}

// OnStored registers a callback run after each bar is persisted
func (c *Consumer) OnStored(fn func(models.PriceRecord)) {
	c.onStored = fn
}

// Start begins consuming messages until ctx is cancelled
func (c *Consumer) Start(ctx context.Context) error {
	log.Info().Str("topic", c.reader.Config().Topic).Msg("Starting Kafka price consumer")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Kafka price consumer shutting down")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return c.reader.Close()
				}
				log.Error().Err(err).Msg("Error reading message")
				continue
			}

			if err := c.processMessage(msg); err != nil {
				log.Error().Err(err).Int64("offset", msg.Offset).Msg("Error processing message")
			}
		}
	}
}

func (c *Consumer) processMessage(msg kafka.Message) error {
	var event models.PriceBarEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal price event: %w", err)
	}

	if event.EventType != models.EventPriceBar {
		log.Debug().Str("event_type", event.EventType).Msg("Ignoring event type")
		return nil
	}

	rec, err := c.convertEventToRecord(event.Data)
	if err != nil {
		return fmt.Errorf("failed to convert price event: %w", err)
	}

	if err := c.repo.UpsertPriceRecord(rec); err != nil {
		return fmt.Errorf("failed to save price bar: %w", err)
	}

	log.Debug().Str("symbol", rec.Symbol).Time("date", rec.Date).Str("source", event.Source).Msg("Stored price bar")
	if c.onStored != nil {
		c.onStored(*rec)
	}
	return nil
}

func (c *Consumer) convertEventToRecord(data models.PriceBarData) (*models.PriceRecord, error) {
	symbol := strings.TrimSpace(data.Symbol)
	if symbol == "" {
		return nil, fmt.Errorf("missing symbol")
	}

	date, err := time.Parse("2006-01-02", data.Date)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", data.Date, err)
	}

	closePrice, err := decimal.NewFromString(data.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid close %q: %w", data.Close, err)
	}

	rec := &models.PriceRecord{
		Symbol: symbol,
		Date:   date,
		Open:   optionalDecimal(data.Open),
		High:   optionalDecimal(data.High),
		Low:    optionalDecimal(data.Low),
		Close:  closePrice,
		Volume: c.defaultVolume,
	}
	if data.Volume != nil && *data.Volume >= 0 {
		rec.Volume = *data.Volume
	}
	return rec, nil
}

func optionalDecimal(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}
