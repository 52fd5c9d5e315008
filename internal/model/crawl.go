package model

import "time"

// CrawlStatus tracks a keyword through the external crawl queue.
type CrawlStatus string

const (
	CrawlPending    CrawlStatus = "pending"
	CrawlInProgress CrawlStatus = "in_progress"
	CrawlDone       CrawlStatus = "done"
	CrawlSoftFail   CrawlStatus = "soft_fail"
)

// CrawlRequest is one pending-work row consumed by the external crawler.
type CrawlRequest struct {
	Keyword    string        `json:"keyword"`
	Type       ComponentType `json:"canonical_type,omitempty"`
	Priority   int           `json:"priority"`
	Status     CrawlStatus   `json:"status"`
	FailCount  int           `json:"fail_count"`
	EnqueuedAt time.Time     `json:"enqueued_at"`
	NextRetry  *time.Time    `json:"next_retry,omitempty"`
}

// CrawlResult is the payload delivered by the crawler collaborator over the
// HMAC-authenticated webhook, or ingested offline from a file.
type CrawlResult struct {
	Keyword  string           `json:"search_keyword,omitempty"`
	Source   string           `json:"source,omitempty"`
	Listings []CrawledListing `json:"listings"`
}

// CrawledListing is one discovered product with its sellable variants.
type CrawledListing struct {
	ProductURL     string   `json:"product_url"`
	Title          string   `json:"listing_title"`
	StoreName      string   `json:"store_name,omitempty"`
	Rating         *float64 `json:"rating,omitempty"`
	ReviewCount    *int     `json:"review_count,omitempty"`
	SoldCount      *int     `json:"sold_count,omitempty"`
	StoreAgeYears  *float64 `json:"store_age_years,omitempty"`
	HasChoiceBadge bool     `json:"has_choice_badge,omitempty"`
	HasPhotos      bool     `json:"has_photos,omitempty"`

	Variants []CrawledVariant `json:"variants"`
}

// CrawledVariant is one purchasable option of a crawled listing.
type CrawledVariant struct {
	Label          string  `json:"variant_label"`
	Price          float64 `json:"price"`
	Currency       string  `json:"currency"`
	StockAvailable bool    `json:"stock_available"`
}
