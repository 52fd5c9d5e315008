// Package pricer orchestrates the pricing pipeline: parse a BOM, match
// lines against the catalog, rank candidates, and fill gaps through the
// crawl queue.
package pricer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/randunun/bom-pricer/internal/bom"
	"github.com/randunun/bom-pricer/internal/model"
	"github.com/randunun/bom-pricer/internal/pricing"
	"github.com/randunun/bom-pricer/internal/resilience"
	"github.com/randunun/bom-pricer/internal/scoring"
	"github.com/randunun/bom-pricer/internal/store"
)

// Config tunes the pricing pipeline.
type Config struct {
	// MaxBOMLines caps how many lines one request may price.
	MaxBOMLines int
	// PollAttempts and PollInterval bound how long a request waits for a
	// freshly enqueued keyword to be crawled before answering PENDING_CRAWL.
	PollAttempts int
	PollInterval time.Duration
	// SearchBaseURL prefixes the manual search fallback link.
	SearchBaseURL string
}

// Pricer prices BOMs against the listing catalog.
type Pricer struct {
	store   store.Store
	fx      pricing.Converter
	scoring scoring.Config
	cfg     Config
	now     func() time.Time
}

// New builds a Pricer with production defaults where cfg leaves zero values.
func New(st store.Store, fx pricing.Converter, sc scoring.Config, cfg Config) *Pricer {
	if cfg.MaxBOMLines <= 0 {
		cfg.MaxBOMLines = bom.DefaultMaxLines
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 5
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	return &Pricer{store: st, fx: fx, scoring: sc, cfg: cfg, now: time.Now}
}

// PriceBOM prices free-form BOM text for one user. Unrecognized lines come
// back as INVALID_LINE rows rather than failing the whole request.
func (p *Pricer) PriceBOM(ctx context.Context, userKey, text string) (*model.Result, error) {
	lines, truncated := bom.Parse(text, p.cfg.MaxBOMLines)

	trust := map[string]model.TrustEntry{}
	if userKey != "" {
		var err error
		trust, err = p.store.GetTrust(ctx, userKey)
		if err != nil {
			return nil, eris.Wrap(err, "pricer: load trust")
		}
	}

	result := &model.Result{
		Currency:    "USD",
		GeneratedAt: p.now().UTC(),
		Truncated:   truncated,
	}

	var total float64
	for _, line := range lines {
		item, err := p.priceLine(ctx, line, trust)
		if err != nil {
			return nil, err
		}
		if item.TotalPriceUSD != nil {
			total += *item.TotalPriceUSD
		}
		result.Items = append(result.Items, *item)
	}
	result.TotalUSD = pricing.Round2(total)

	return result, nil
}

func (p *Pricer) priceLine(ctx context.Context, line model.BOMLine, trust map[string]model.TrustEntry) (*model.PricedLine, error) {
	item := &model.PricedLine{BOM: line}

	if !line.Recognized() {
		item.Status = model.StatusInvalidLine
		return item, nil
	}

	candidates, err := p.store.ListCandidates(ctx, line.SpecKey)
	if err != nil {
		return nil, eris.Wrapf(err, "pricer: candidates for %s", line.SpecKey)
	}
	if len(candidates) > 0 {
		p.fillMatch(ctx, item, line, candidates, trust)
		return item, nil
	}

	return p.handleMiss(ctx, item, line, trust)
}

// fillMatch ranks the candidates and settles the line's prices and trend.
func (p *Pricer) fillMatch(ctx context.Context, item *model.PricedLine, line model.BOMLine, candidates []model.Listing, trust map[string]model.TrustEntry) {
	ranked := scoring.Rank(candidates, trust, p.fx, p.scoring, p.now())
	item.Status = model.StatusMatched
	item.Candidates = ranked
	item.Selected = &ranked[0]

	if unit := ranked[0].UnitPriceUSD; unit != nil {
		u := pricing.Round2(*unit)
		item.UnitPriceUSD = &u
		t := pricing.Round2(u * float64(line.Quantity))
		item.TotalPriceUSD = &t
	}

	sources := map[string]string{}
	for _, c := range candidates {
		sources[c.VariantID] = c.Source
	}
	history, err := p.store.ListPriceHistory(ctx, ranked[0].VariantID, sources[ranked[0].VariantID], 0)
	if err != nil {
		// A missing trend never blocks a priced line.
		zap.L().Warn("pricer: price history unavailable",
			zap.String("variant_id", ranked[0].VariantID),
			zap.Error(err),
		)
		return
	}
	trend := pricing.AnalyzeTrend(history)
	item.Trend = &trend
}

// handleMiss runs the crawl fallback: an exhausted keyword is a hard
// NOT_FOUND, anything else is enqueued and polled briefly before answering
// PENDING_CRAWL with a manual search link.
func (p *Pricer) handleMiss(ctx context.Context, item *model.PricedLine, line model.BOMLine, trust map[string]model.TrustEntry) (*model.PricedLine, error) {
	keyword := SearchKeyword(line)

	existing, err := p.store.GetCrawlKeyword(ctx, keyword)
	if err != nil {
		return nil, eris.Wrapf(err, "pricer: check keyword %q", keyword)
	}
	if existing != nil && existing.Status == model.CrawlDone {
		item.Status = model.StatusNotFound
		return item, nil
	}

	if err := p.store.EnqueueCrawl(ctx, keyword, line.Type, 0); err != nil {
		return nil, eris.Wrapf(err, "pricer: enqueue %q", keyword)
	}

	poll := resilience.FixedPoll(p.cfg.PollAttempts, p.cfg.PollInterval)
	candidates, pollErr := resilience.DoVal(ctx, poll, func(ctx context.Context) ([]model.Listing, error) {
		cs, err := p.store.ListCandidates(ctx, line.SpecKey)
		if err != nil {
			return nil, err
		}
		if len(cs) == 0 {
			return nil, eris.Errorf("no candidates yet for %s", line.SpecKey)
		}
		return cs, nil
	})
	if pollErr == nil && len(candidates) > 0 {
		p.fillMatch(ctx, item, line, candidates, trust)
		return item, nil
	}

	item.Status = model.StatusPendingCrawl
	item.SearchURL = p.cfg.SearchBaseURL + searchEscape(keyword)
	return item, nil
}

// searchEscape percent-encodes a search keyword. Spaces become %20, not +,
// so the link pastes cleanly outside query-string contexts.
func searchEscape(keyword string) string {
	return strings.ReplaceAll(url.QueryEscape(keyword), "+", "%20")
}

// Select records a user's explicit candidate choice, growing brand-seller
// trust for future rankings.
func (p *Pricer) Select(ctx context.Context, userKey, brand, seller string) (*model.TrustEntry, error) {
	if userKey == "" {
		return nil, eris.New("pricer: select requires a user key")
	}
	entry, err := p.store.RecordSelection(ctx, userKey, brand, seller, p.scoring.TrustStep, p.scoring.TrustCap)
	return entry, eris.Wrap(err, "pricer: record selection")
}

// SearchKeyword renders the crawl query for an unmatched line from its
// extracted specs, falling back to the raw text.
func SearchKeyword(line model.BOMLine) string {
	s := line.Specs
	switch line.Type {
	case model.TypeESC:
		if s.CurrentA != nil {
			return fmt.Sprintf("%dA ESC", *s.CurrentA)
		}
	case model.TypeMotor:
		switch {
		case s.Size != "" && s.KV != nil:
			return fmt.Sprintf("%s %dKV motor", s.Size, *s.KV)
		case s.KV != nil:
			return fmt.Sprintf("%dKV brushless motor", *s.KV)
		}
	case model.TypeBattery:
		if s.VoltageS != nil && s.CapacityMAh != nil {
			return fmt.Sprintf("%s %dmAh lipo battery", *s.VoltageS, *s.CapacityMAh)
		}
		if s.VoltageS != nil {
			return fmt.Sprintf("%s lipo battery", *s.VoltageS)
		}
	case model.TypePropeller:
		if s.Size != "" {
			return fmt.Sprintf("%s propeller", s.Size)
		}
	case model.TypeServo:
		if s.Weight != "" {
			return fmt.Sprintf("%s servo", s.Weight)
		}
	}
	return strings.ToLower(strings.TrimSpace(line.Raw))
}
