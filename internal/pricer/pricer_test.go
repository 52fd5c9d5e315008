package pricer

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randunun/bom-pricer/internal/bom"
	"github.com/randunun/bom-pricer/internal/model"
	"github.com/randunun/bom-pricer/internal/pricing"
	"github.com/randunun/bom-pricer/internal/scoring"
	"github.com/randunun/bom-pricer/internal/store"
)

func fp(v float64) *float64 { return &v }

func newTestPricer(t *testing.T) (*Pricer, *store.SQLiteStore) {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	fx := pricing.NewConverter(map[string]float64{"LKR": 1.0 / 320.0})
	p := New(st, fx, scoring.Default(), Config{
		PollAttempts:  1,
		PollInterval:  time.Millisecond,
		SearchBaseURL: "https://www.aliexpress.com/wholesale?SearchText=",
	})
	return p, st
}

func seedListing(t *testing.T, st *store.SQLiteStore, l model.Listing) {
	t.Helper()
	require.NoError(t, st.UpsertListing(context.Background(), l))
}

func escListing(variantID string, packQty int, packPriceUSD float64) model.Listing {
	return model.Listing{
		VariantID:      variantID,
		Source:         "prod",
		SpecKey:        "ESC:30A",
		Type:           model.TypeESC,
		Title:          "HobbyFans 30A Brushless ESC",
		VariantLabel:   "30A",
		PackQty:        packQty,
		Price:          packPriceUSD,
		Currency:       "USD",
		SellerName:     "AceStore",
		SellerRating:   fp(4.8),
		StockAvailable: true,
		ProductURL:     "https://example.com/item/1",
		LastSeen:       time.Now().UTC(),
	}
}

func TestPriceBOM_MatchedLine(t *testing.T) {
	p, st := newTestPricer(t)
	seedListing(t, st, escListing("v1", 4, 20))

	result, err := p.PriceBOM(context.Background(), "user-1", "30A ESC x2")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	assert.Equal(t, model.StatusMatched, item.Status)
	require.NotNil(t, item.Selected)
	assert.True(t, item.Selected.Default)
	require.NotNil(t, item.UnitPriceUSD)
	assert.Equal(t, 5.0, *item.UnitPriceUSD)
	require.NotNil(t, item.TotalPriceUSD)
	assert.Equal(t, 10.0, *item.TotalPriceUSD)
	assert.Equal(t, 10.0, result.TotalUSD)
	assert.Equal(t, "USD", result.Currency)
	assert.False(t, result.Truncated)
}

func TestPriceBOM_PrefersCheaperUnitOnTie(t *testing.T) {
	p, st := newTestPricer(t)
	seedListing(t, st, escListing("v-dear", 1, 6))
	seedListing(t, st, escListing("v-cheap", 4, 20))

	result, err := p.PriceBOM(context.Background(), "", "30A ESC")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.NotNil(t, result.Items[0].Selected)
	assert.Equal(t, "v-cheap", result.Items[0].Selected.VariantID)
	assert.Len(t, result.Items[0].Candidates, 2)
}

func TestPriceBOM_InvalidLine(t *testing.T) {
	p, _ := newTestPricer(t)

	result, err := p.PriceBOM(context.Background(), "", "two rolls of duct tape")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, model.StatusInvalidLine, result.Items[0].Status)
	assert.Nil(t, result.Items[0].UnitPriceUSD)
	assert.Equal(t, 0.0, result.TotalUSD)
}

func TestPriceBOM_PendingCrawl(t *testing.T) {
	p, st := newTestPricer(t)

	result, err := p.PriceBOM(context.Background(), "", "99A ESC")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)

	item := result.Items[0]
	assert.Equal(t, model.StatusPendingCrawl, item.Status)
	assert.Equal(t, "https://www.aliexpress.com/wholesale?SearchText=99A%20ESC", item.SearchURL)

	kw, err := st.GetCrawlKeyword(context.Background(), "99A ESC")
	require.NoError(t, err)
	require.NotNil(t, kw)
	assert.Equal(t, model.CrawlPending, kw.Status)
	assert.Equal(t, model.TypeESC, kw.Type)
}

func TestPriceBOM_NotFoundAfterCrawlCompleted(t *testing.T) {
	p, st := newTestPricer(t)
	ctx := context.Background()

	require.NoError(t, st.EnqueueCrawl(ctx, "99A ESC", model.TypeESC, 0))
	require.NoError(t, st.UpdateCrawlStatus(ctx, "99A ESC", model.CrawlDone, nil))

	result, err := p.PriceBOM(ctx, "", "99A ESC")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	assert.Equal(t, model.StatusNotFound, result.Items[0].Status)
	assert.Empty(t, result.Items[0].SearchURL)
}

func TestPriceBOM_Truncation(t *testing.T) {
	p, st := newTestPricer(t)
	seedListing(t, st, escListing("v1", 4, 20))
	p.cfg.MaxBOMLines = 2

	text := "30A ESC\n30A ESC\n30A ESC"
	result, err := p.PriceBOM(context.Background(), "", text)
	require.NoError(t, err)
	assert.True(t, result.Truncated)
	assert.Len(t, result.Items, 2)
}

func TestPriceBOM_TrendAttached(t *testing.T) {
	p, st := newTestPricer(t)
	ctx := context.Background()
	seedListing(t, st, escListing("v1", 4, 20))

	old := model.PriceHistorySample{
		VariantID: "v1", Source: "prod", UnitPriceUSD: fp(4.0),
		PackPrice: 16, Currency: "USD", InStock: true,
		RecordedAt: time.Now().UTC().Add(-48 * time.Hour),
	}
	recent := old
	recent.UnitPriceUSD = fp(5.0)
	recent.PackPrice = 20
	recent.RecordedAt = time.Now().UTC()

	for _, s := range []model.PriceHistorySample{old, recent} {
		_, err := st.AppendPriceSample(ctx, s)
		require.NoError(t, err)
	}

	result, err := p.PriceBOM(ctx, "", "30A ESC")
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.NotNil(t, result.Items[0].Trend)
	assert.Equal(t, model.TrendUp, result.Items[0].Trend.Direction)
	assert.Equal(t, 25.0, result.Items[0].Trend.ChangePct)
	assert.Equal(t, 2, result.Items[0].Trend.Samples)
}

func TestPriceBOM_TrustInfluencesRanking(t *testing.T) {
	p, st := newTestPricer(t)
	ctx := context.Background()

	trusted := escListing("v-trusted", 1, 6)
	trusted.SellerName = "LoyalShop"
	trusted.Title = "Emax 30A ESC"
	seedListing(t, st, trusted)
	seedListing(t, st, escListing("v-other", 1, 5))

	// max out trust for Emax|LoyalShop
	for i := 0; i < 6; i++ {
		_, err := p.Select(ctx, "user-1", "Emax", "LoyalShop")
		require.NoError(t, err)
	}

	result, err := p.PriceBOM(ctx, "user-1", "30A ESC")
	require.NoError(t, err)
	require.NotNil(t, result.Items[0].Selected)
	assert.Equal(t, "v-trusted", result.Items[0].Selected.VariantID)

	// a user without the trust history sees the cheaper default
	anon, err := p.PriceBOM(ctx, "", "30A ESC")
	require.NoError(t, err)
	assert.Equal(t, "v-other", anon.Items[0].Selected.VariantID)
}

func TestSelect_RequiresUser(t *testing.T) {
	p, _ := newTestPricer(t)

	_, err := p.Select(context.Background(), "", "Emax", "LoyalShop")
	require.Error(t, err)
}

func TestSearchKeyword(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"30A ESC", "30A ESC"},
		{"920KV motor", "920KV brushless motor"},
		{"3S 2200mAh lipo", "3S 2200mAh lipo battery"},
		{"3S lipo", "3S lipo battery"},
		{"mystery widget", "mystery widget"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := SearchKeyword(bom.ParseLine(tt.line))
			assert.Equal(t, tt.want, got)
		})
	}
}
