package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/analytics"
	"github.com/PratikMahalle28/DataDrivenStockAnalysis/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes analysis events to Kafka
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishAnalysisCompleted announces a finished run with its headline results
func (p *Producer) PublishAnalysisCompleted(ctx context.Context, report *analytics.Report) error {
	summary := report.Summary
	event := models.AnalysisEvent{
		EventType:   models.EventAnalysisCompleted,
		RunID:       report.RunID,
		Summary:     &summary,
		TopGainers:  report.TopGainers,
		TopLosers:   report.TopLosers,
		SectorState: string(report.Sectors.Status),
		Timestamp:   time.Now().UTC(),
	}
	return p.publish(ctx, report.RunID, event)
}

// PublishPriceBar emits a single daily bar so other instances can ingest it
func (p *Producer) PublishPriceBar(ctx context.Context, source string, rec models.PriceRecord) error {
	data := models.PriceBarData{
		Symbol: rec.Symbol,
		Date:   rec.Date.Format("2006-01-02"),
		Close:  rec.Close.String(),
		Volume: &rec.Volume,
	}
	if rec.Open.Valid {
		data.Open = rec.Open.Decimal.String()
	}
	if rec.High.Valid {
		data.High = rec.High.Decimal.String()
	}
	if rec.Low.Valid {
		data.Low = rec.Low.Decimal.String()
	}
	event := models.PriceBarEvent{
		EventType: models.EventPriceBar,
		Source:    source,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
	return p.publish(ctx, rec.Symbol, event)
}

func (p *Producer) publish(ctx context.Context, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
