// Package ingest normalizes crawler payloads into catalog listings and
// price history samples.
package ingest

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/currency"

	"github.com/randunun/bom-pricer/internal/bom"
	"github.com/randunun/bom-pricer/internal/model"
	"github.com/randunun/bom-pricer/internal/pricing"
	"github.com/randunun/bom-pricer/internal/scoring"
	"github.com/randunun/bom-pricer/internal/spec"
	"github.com/randunun/bom-pricer/internal/store"
)

// reItemID pulls the numeric product id out of marketplace URLs like
// https://www.aliexpress.com/item/1005001234.html. The full URL is used as
// the identity fallback when no id is present.
var reItemID = regexp.MustCompile(`/item/(\d+)`)

// Options tune ingestion behavior.
type Options struct {
	// Source tags every listing and sample; defaults to "prod".
	Source string
	// Concurrency bounds parallel history appends. Defaults to 4.
	Concurrency int
}

// Report summarizes one ingested payload.
type Report struct {
	Listings        int `json:"listings"`
	Variants        int `json:"variants"`
	SamplesAppended int `json:"samples_appended"`
	Skipped         int `json:"skipped"`
}

// Ingestor converts crawl results into catalog rows.
type Ingestor struct {
	store store.Store
	fx    pricing.Converter
	opts  Options
}

// New builds an Ingestor. fx is used to record USD unit prices in history.
func New(st store.Store, fx pricing.Converter, opts Options) *Ingestor {
	if opts.Source == "" {
		opts.Source = "prod"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	return &Ingestor{store: st, fx: fx, opts: opts}
}

// ProductID derives the stable listing identity from a product URL.
func ProductID(productURL string) string {
	if m := reItemID.FindStringSubmatch(productURL); m != nil {
		return m[1]
	}
	return productURL
}

// Normalize flattens a crawl payload into listings, one per variant. A
// variant with an unrecognized ISO currency code is dropped, never priced
// at zero.
func (in *Ingestor) Normalize(res model.CrawlResult) ([]model.Listing, int) {
	source := res.Source
	if source == "" {
		source = in.opts.Source
	}

	now := time.Now().UTC()
	var listings []model.Listing
	skipped := 0

	for _, cl := range res.Listings {
		productID := ProductID(cl.ProductURL)
		brand := scoring.Brand(cl.Title)

		for _, v := range cl.Variants {
			if _, err := currency.ParseISO(v.Currency); err != nil {
				zap.L().Warn("ingest: dropping variant with bad currency",
					zap.String("product_url", cl.ProductURL),
					zap.String("variant", v.Label),
					zap.String("currency", v.Currency),
				)
				skipped++
				continue
			}

			text := strings.ToUpper(cl.Title + " " + v.Label)
			specs := spec.Extract(text)
			ctype := bom.Classify(text)
			variantID := spec.VariantID(productID, v.Label, specs.PackQty, source)

			listings = append(listings, model.Listing{
				VariantID:      variantID,
				Source:         source,
				SpecKey:        spec.CanonicalKey(string(ctype), specs),
				Type:           ctype,
				Title:          cl.Title,
				VariantLabel:   v.Label,
				Brand:          brand,
				PackQty:        specs.PackQty,
				Price:          v.Price,
				Currency:       strings.ToUpper(v.Currency),
				SellerName:     cl.StoreName,
				SellerRating:   cl.Rating,
				ReviewCount:    cl.ReviewCount,
				SoldCount:      cl.SoldCount,
				StoreAgeYears:  cl.StoreAgeYears,
				HasChoiceBadge: cl.HasChoiceBadge,
				HasPhotos:      cl.HasPhotos,
				StockAvailable: v.StockAvailable,
				ProductURL:     cl.ProductURL,
				LastSeen:       now,
			})
		}
	}
	return listings, skipped
}

// Ingest upserts the payload's listings and appends price history, then
// marks the originating crawl keyword done.
func (in *Ingestor) Ingest(ctx context.Context, res model.CrawlResult) (*Report, error) {
	listings, skipped := in.Normalize(res)

	n, err := in.store.UpsertListings(ctx, listings)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: upsert listings")
	}

	appended := 0
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.opts.Concurrency)
	results := make([]bool, len(listings))
	for i, l := range listings {
		i, l := i, l
		g.Go(func() error {
			sample := model.PriceHistorySample{
				VariantID: l.VariantID,
				Source:    l.Source,
				PackPrice: l.Price,
				Currency:  l.Currency,
				InStock:   l.StockAvailable,
			}
			if packUSD, ok := in.fx.ToUSD(l.Price, l.Currency); ok {
				unit := pricing.UnitPrice(packUSD, l.PackQty)
				sample.UnitPriceUSD = &unit
			}
			inserted, err := in.store.AppendPriceSample(gctx, sample)
			if err != nil {
				return eris.Wrapf(err, "ingest: append sample %s", l.VariantID)
			}
			results[i] = inserted
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, inserted := range results {
		if inserted {
			appended++
		}
	}

	if res.Keyword != "" {
		if err := in.markKeywordDone(ctx, res.Keyword); err != nil {
			return nil, err
		}
	}

	return &Report{
		Listings:        len(res.Listings),
		Variants:        n,
		SamplesAppended: appended,
		Skipped:         skipped,
	}, nil
}

// markKeywordDone completes the crawl queue entry if one exists. Payloads
// for keywords nobody enqueued are accepted silently.
func (in *Ingestor) markKeywordDone(ctx context.Context, keyword string) error {
	existing, err := in.store.GetCrawlKeyword(ctx, keyword)
	if err != nil {
		return eris.Wrap(err, "ingest: check crawl keyword")
	}
	if existing == nil {
		return nil
	}
	if err := in.store.UpdateCrawlStatus(ctx, keyword, model.CrawlDone, nil); err != nil {
		return eris.Wrap(err, "ingest: mark keyword done")
	}
	return nil
}
