package model

import "time"

// ComponentType identifies the hobby-electronics component category a BOM
// line refers to. An empty value means the line could not be classified.
type ComponentType string

const (
	TypeESC       ComponentType = "ESC"
	TypeMotor     ComponentType = "MOTOR"
	TypeBattery   ComponentType = "BATTERY"
	TypePropeller ComponentType = "PROP"
	TypeServo     ComponentType = "SERVO"
)

// Specs holds the structured specification fields extracted from free text.
// Every field is independently optional; extraction never fails.
type Specs struct {
	CurrentA    *int    `json:"current_a,omitempty"`
	PackQty     int     `json:"pack_qty"`
	VoltageS    *string `json:"voltage_s,omitempty"`
	CapacityMAh *int    `json:"capacity_mah,omitempty"`
	KV          *int    `json:"kv,omitempty"`

	// Size and Weight are only available when richer listing metadata is
	// ingested (motor stator size, prop code, servo weight class). They
	// participate in canonical keys but are not extracted from BOM lines.
	Size   string `json:"size,omitempty"`
	Weight string `json:"weight,omitempty"`

	// Raw carries the normalized source text for slug fallbacks.
	Raw string `json:"-"`
}

// BOMLine is one parsed line of a bill of materials. Immutable once produced.
type BOMLine struct {
	Raw      string        `json:"raw"`
	Type     ComponentType `json:"canonical_type,omitempty"`
	Quantity int           `json:"qty"`
	Specs    Specs         `json:"specs"`
	SpecKey  string        `json:"spec_key,omitempty"`
}

// Recognized reports whether the line classified to a known component type.
func (l BOMLine) Recognized() bool { return l.Type != "" }

// LineStatus is the terminal outcome of pricing one BOM line.
type LineStatus string

const (
	StatusMatched      LineStatus = "MATCHED"
	StatusInvalidLine  LineStatus = "INVALID_LINE"
	StatusNotFound     LineStatus = "NOT_FOUND"
	StatusPendingCrawl LineStatus = "PENDING_CRAWL"
)

// PricedLine is the per-line pricing outcome returned to callers.
type PricedLine struct {
	BOM        BOMLine           `json:"bom"`
	Status     LineStatus        `json:"status"`
	Selected   *RankedCandidate  `json:"selected,omitempty"`
	Candidates []RankedCandidate `json:"candidates,omitempty"`

	UnitPriceUSD  *float64 `json:"unit_price_usd,omitempty"`
	TotalPriceUSD *float64 `json:"total_price_usd,omitempty"`

	Trend *PriceTrend `json:"trend,omitempty"`

	// SearchURL is a manual marketplace search fallback, populated for
	// PENDING_CRAWL lines so the user is never left with a dead end.
	SearchURL string `json:"search_url,omitempty"`
}

// Result is the full response for one BOM pricing request.
type Result struct {
	Currency    string       `json:"currency"`
	GeneratedAt time.Time    `json:"generated_at"`
	Truncated   bool         `json:"truncated,omitempty"`
	Items       []PricedLine `json:"items"`
	TotalUSD    float64      `json:"total_usd"`
}
