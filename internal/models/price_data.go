package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceRecord is one daily bar for a symbol. Open, High and Low are optional.
type PriceRecord struct {
	Symbol string              `json:"symbol"`
	Date   time.Time           `json:"date"`
	Open   decimal.NullDecimal `json:"open"`
	High   decimal.NullDecimal `json:"high"`
	Low    decimal.NullDecimal `json:"low"`
	Close  decimal.Decimal     `json:"close"`
	Volume int64               `json:"volume"`
}
