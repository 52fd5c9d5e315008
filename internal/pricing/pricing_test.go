package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randunun/bom-pricer/internal/model"
)

func fp(v float64) *float64 { return &v }

func TestConverter_USD(t *testing.T) {
	c := NewConverter(map[string]float64{"LKR": 1.0 / 320.0})
	usd, ok := c.ToUSD(5.0, "USD")
	require.True(t, ok)
	assert.Equal(t, 5.0, usd)
}

func TestConverter_LKR(t *testing.T) {
	c := NewConverter(map[string]float64{"LKR": 1.0 / 320.0})
	usd, ok := c.ToUSD(3200, "lkr")
	require.True(t, ok)
	assert.InDelta(t, 10.0, usd, 0.0001)
}

func TestConverter_UnknownCurrency(t *testing.T) {
	c := NewConverter(nil)
	_, ok := c.ToUSD(100, "XYZ")
	assert.False(t, ok)
}

func TestConverter_Rounds4(t *testing.T) {
	c := NewConverter(map[string]float64{"LKR": 1.0 / 320.0})
	usd, ok := c.ToUSD(1, "LKR")
	require.True(t, ok)
	assert.Equal(t, 0.0031, usd)
}

func TestUnitPrice_Pack(t *testing.T) {
	assert.Equal(t, 5.0, UnitPrice(20.0, 4))
	assert.Equal(t, 3.55, UnitPrice(3.55, 1))
}

func TestUnitPrice_GuardsZeroQty(t *testing.T) {
	assert.Equal(t, 20.0, UnitPrice(20.0, 0))
	assert.Equal(t, 20.0, UnitPrice(20.0, -3))
}

func TestUnitPrice_RoundTrip(t *testing.T) {
	for qty := 1; qty <= 12; qty++ {
		pack := 19.99
		unit := UnitPrice(pack, qty)
		assert.InDelta(t, pack, unit*float64(qty), 0.001, "qty %d", qty)
	}
}

func TestLikelyPrice_Empty(t *testing.T) {
	e := LikelyPrice(nil)
	assert.Nil(t, e.LikelyPrice)
	assert.Equal(t, MethodNoVariants, e.Method)
}

func TestLikelyPrice_Single(t *testing.T) {
	e := LikelyPrice([]float64{3.55})
	require.NotNil(t, e.LikelyPrice)
	assert.Equal(t, 3.55, *e.LikelyPrice)
	assert.Equal(t, MethodSingleVariant, e.Method)
}

func TestLikelyPrice_Pair(t *testing.T) {
	e := LikelyPrice([]float64{4.0, 3.0})
	require.NotNil(t, e.LikelyPrice)
	assert.Equal(t, 3.5, *e.LikelyPrice)
	assert.Equal(t, MethodPairAverage, e.Method)
}

func TestLikelyPrice_TrimsPriceTraps(t *testing.T) {
	// Two bulk-trap lows among five variants: bottom 30% (one item) is cut,
	// leaving the median of the realistic band.
	e := LikelyPrice([]float64{1.20, 1.30, 3.55, 3.70, 3.80})
	require.NotNil(t, e.LikelyPrice)
	assert.InDelta(t, 3.625, *e.LikelyPrice, 0.0001)
	assert.Equal(t, 5, e.VariantCount)
	assert.Equal(t, MethodVariantMedian, e.Method)
}

func sample(price float64) model.PriceHistorySample {
	return model.PriceHistorySample{UnitPriceUSD: fp(price)}
}

func TestAnalyzeTrend_TooFewSamples(t *testing.T) {
	tr := AnalyzeTrend([]model.PriceHistorySample{sample(5)})
	assert.Equal(t, model.TrendStable, tr.Direction)
	assert.Equal(t, 0.0, tr.ChangePct)
}

func TestAnalyzeTrend_Up(t *testing.T) {
	tr := AnalyzeTrend([]model.PriceHistorySample{sample(5.50), sample(5.00)})
	assert.Equal(t, model.TrendUp, tr.Direction)
	assert.Equal(t, 10.0, tr.ChangePct)
}

func TestAnalyzeTrend_Down(t *testing.T) {
	tr := AnalyzeTrend([]model.PriceHistorySample{sample(4.00), sample(5.00)})
	assert.Equal(t, model.TrendDown, tr.Direction)
	assert.Equal(t, -20.0, tr.ChangePct)
}

func TestAnalyzeTrend_NoiseBand(t *testing.T) {
	// +4% stays inside the ±5% band.
	tr := AnalyzeTrend([]model.PriceHistorySample{sample(5.20), sample(5.00)})
	assert.Equal(t, model.TrendStable, tr.Direction)
	assert.Equal(t, 4.0, tr.ChangePct)
}

func TestAnalyzeTrend_ZeroOldest(t *testing.T) {
	tr := AnalyzeTrend([]model.PriceHistorySample{sample(5.00), sample(0)})
	assert.Equal(t, model.TrendStable, tr.Direction)
	assert.Equal(t, 0.0, tr.ChangePct)
}

func TestAnalyzeTrend_WindowCap(t *testing.T) {
	var samples []model.PriceHistorySample
	samples = append(samples, sample(10)) // newest
	for i := 0; i < 9; i++ {
		samples = append(samples, sample(5))
	}
	samples = append(samples, sample(100)) // 11th, outside the window
	tr := AnalyzeTrend(samples)
	assert.Equal(t, 10, tr.Samples)
	assert.Equal(t, 100.0, tr.ChangePct) // 5 → 10 within the window
	assert.Equal(t, model.TrendUp, tr.Direction)
}

func TestAnalyzeTrend_SkipsUnconvertible(t *testing.T) {
	samples := []model.PriceHistorySample{
		sample(6.00),
		{UnitPriceUSD: nil},
		sample(5.00),
	}
	tr := AnalyzeTrend(samples)
	assert.Equal(t, 2, tr.Samples)
	assert.Equal(t, 20.0, tr.ChangePct)
}
