package models

import "time"

// Event type constants
const (
	EventAnalysisCompleted = "ANALYSIS_COMPLETED"
	EventPriceBar          = "PRICE_BAR"
)

// AnalysisEvent is published to Kafka when an analysis run finishes
type AnalysisEvent struct {
	EventType   string         `json:"event_type"`
	RunID       string         `json:"run_id"`
	Summary     *MarketSummary `json:"summary,omitempty"`
	TopGainers  []YearlyReturn `json:"top_gainers,omitempty"`
	TopLosers   []YearlyReturn `json:"top_losers,omitempty"`
	SectorState string         `json:"sector_status"`
	Timestamp   time.Time      `json:"timestamp"`
}

// PriceBarEvent carries one daily bar from an upstream collector
type PriceBarEvent struct {
	EventType string       `json:"event_type"`
	Source    string       `json:"source"`
	Data      PriceBarData `json:"data"`
	Timestamp time.Time    `json:"timestamp"`
}

// PriceBarData is the payload of a PriceBarEvent. Prices are decimal strings.
type PriceBarData struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date"`
	Open   string `json:"open,omitempty"`
	High   string `json:"high,omitempty"`
	Low    string `json:"low,omitempty"`
	Close  string `json:"close"`
	Volume *int64 `json:"volume,omitempty"`
}

// Stock holds the classification of a symbol
type Stock struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Sector    string    `json:"sector,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
