package model

import "time"

// PriceHistorySample is one append-only price observation for a variant.
// A new sample is stored only when the unit price or stock state changed
// relative to the most recent sample for the same (variant, source).
type PriceHistorySample struct {
	VariantID string `json:"variant_id"`
	Source    string `json:"source"`

	// UnitPriceUSD is nil when the listing currency was unconvertible.
	UnitPriceUSD *float64 `json:"unit_price_usd,omitempty"`
	PackPrice    float64  `json:"pack_price"`
	Currency     string   `json:"currency"`
	InStock      bool     `json:"in_stock"`

	RecordedAt time.Time `json:"recorded_at"`
}

// TrendDirection classifies recent price movement.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// PriceTrend summarizes the direction and magnitude of recent movement.
type PriceTrend struct {
	Direction TrendDirection `json:"direction"`
	ChangePct float64        `json:"change_pct"`
	Samples   int            `json:"samples"`
}
