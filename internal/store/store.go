package store

import (
	"context"
	"time"

	"github.com/randunun/bom-pricer/internal/model"
)

// CrawlFilter specifies criteria for listing the crawl queue.
type CrawlFilter struct {
	Status model.CrawlStatus `json:"status,omitempty"`
	Limit  int               `json:"limit,omitempty"`
}

// Store defines the persistence interface for the pricing catalog.
type Store interface {
	// Catalog
	UpsertListing(ctx context.Context, l model.Listing) error
	UpsertListings(ctx context.Context, ls []model.Listing) (int, error)
	GetListing(ctx context.Context, variantID string) (*model.Listing, error)
	ListCandidates(ctx context.Context, specKey string) ([]model.Listing, error)

	// Price history
	AppendPriceSample(ctx context.Context, s model.PriceHistorySample) (bool, error)
	ListPriceHistory(ctx context.Context, variantID, source string, limit int) ([]model.PriceHistorySample, error)

	// Trust
	GetTrust(ctx context.Context, userKey string) (map[string]model.TrustEntry, error)
	RecordSelection(ctx context.Context, userKey, brand, seller string, step, cap float64) (*model.TrustEntry, error)

	// Crawl queue
	EnqueueCrawl(ctx context.Context, keyword string, componentType model.ComponentType, priority int) error
	GetCrawlKeyword(ctx context.Context, keyword string) (*model.CrawlRequest, error)
	UpdateCrawlStatus(ctx context.Context, keyword string, status model.CrawlStatus, nextRetry *time.Time) error
	ListCrawlQueue(ctx context.Context, filter CrawlFilter) ([]model.CrawlRequest, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
