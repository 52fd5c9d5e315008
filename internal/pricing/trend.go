package pricing

import "github.com/randunun/bom-pricer/internal/model"

// Movement below this magnitude is treated as noise, not a trend.
const trendBandPct = 5.0

// trendWindow limits how many recent samples participate.
const trendWindow = 10

// AnalyzeTrend computes direction and magnitude of recent price movement.
// Samples are expected newest first; at most the ten most recent are used.
// Samples without a convertible unit price are skipped.
func AnalyzeTrend(samples []model.PriceHistorySample) model.PriceTrend {
	var prices []float64
	for _, s := range samples {
		if s.UnitPriceUSD == nil {
			continue
		}
		prices = append(prices, *s.UnitPriceUSD)
		if len(prices) == trendWindow {
			break
		}
	}

	trend := model.PriceTrend{Direction: model.TrendStable, Samples: len(prices)}
	if len(prices) < 2 {
		return trend
	}

	newest, oldest := prices[0], prices[len(prices)-1]
	if oldest == 0 {
		return trend
	}

	trend.ChangePct = Round1((newest - oldest) / oldest * 100)
	switch {
	case trend.ChangePct > trendBandPct:
		trend.Direction = model.TrendUp
	case trend.ChangePct < -trendBandPct:
		trend.Direction = model.TrendDown
	}
	return trend
}
