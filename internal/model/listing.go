package model

import "time"

// Listing is one catalog row: a specific (listing, variant, pack) offer
// discovered by the crawler. Identified by VariantID; re-ingesting the same
// variant upserts the same row.
type Listing struct {
	VariantID string        `json:"variant_id"`
	Source    string        `json:"source"`
	SpecKey   string        `json:"spec_key"`
	Type      ComponentType `json:"canonical_type"`

	Title        string `json:"title"`
	VariantLabel string `json:"variant_label"`
	Brand        string `json:"brand,omitempty"`
	PackQty      int    `json:"pack_qty"`

	// Price is the pack price in the listing's local currency.
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`

	SellerName     string   `json:"seller_name,omitempty"`
	SellerRating   *float64 `json:"seller_rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
	SoldCount      *int     `json:"sold_count,omitempty"`
	StoreAgeYears  *float64 `json:"store_age_years,omitempty"`
	HasChoiceBadge bool     `json:"has_choice_badge,omitempty"`
	HasPhotos      bool     `json:"has_photos,omitempty"`

	StockAvailable bool   `json:"stock_available"`
	ProductURL     string `json:"product_url"`

	FirstSeen time.Time `json:"first_seen"`
	LastSeen  time.Time `json:"last_seen"`
}

// RiskTier buckets a candidate's composite score for display.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// RankedCandidate is a request-scoped, scored view of a Listing. Never
// persisted.
type RankedCandidate struct {
	ID        string `json:"id"`
	VariantID string `json:"variant_id"`

	Brand           string `json:"brand"`
	DisplayLabel    string `json:"display_label"`
	RawVariantLabel string `json:"raw_variant_label"`
	Title           string `json:"title"`

	PackQty        int      `json:"pack_qty"`
	PackPriceUSD   *float64 `json:"pack_price_usd,omitempty"`
	UnitPriceUSD   *float64 `json:"unit_price_usd,omitempty"`
	UnitPriceLocal float64  `json:"unit_price_local"`
	LocalCurrency  string   `json:"local_currency"`
	FXRate         *float64 `json:"fx_rate_used,omitempty"`

	Confidence   float64 `json:"confidence"`
	Feedback     float64 `json:"feedback_score"`
	Trust        float64 `json:"trust_score"`
	VariantMatch float64 `json:"variant_match"`
	FinalScore   float64 `json:"final_score"`

	Risk       RiskTier  `json:"risk"`
	Seller     string    `json:"seller,omitempty"`
	ProductURL string    `json:"product_url"`
	LastSeen   time.Time `json:"last_seen"`
	Default    bool      `json:"default"`
}
