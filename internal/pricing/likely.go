package pricing

import "sort"

// Price-method tags reported by LikelyPrice.
const (
	MethodNoVariants    = "no_variants"
	MethodSingleVariant = "single_variant"
	MethodPairAverage   = "pair_average"
	MethodFullMedian    = "full_median"
	MethodVariantMedian = "variant_median"
)

// Estimate is the outcome of the variant price filter.
type Estimate struct {
	LikelyPrice  *float64 `json:"likely_price,omitempty"`
	VariantCount int      `json:"variant_count"`
	Method       string   `json:"price_method"`
}

// LikelyPrice computes a "likely real price" from a listing's variant
// prices. Marketplace listings bury the real price among bulk/fake low
// variants and rare overpriced ones, so the bottom 30% and top 10% are
// trimmed before taking the median.
func LikelyPrice(prices []float64) Estimate {
	n := len(prices)
	if n == 0 {
		return Estimate{Method: MethodNoVariants}
	}

	sorted := make([]float64, n)
	copy(sorted, prices)
	sort.Float64s(sorted)

	if n == 1 {
		p := sorted[0]
		return Estimate{LikelyPrice: &p, VariantCount: 1, Method: MethodSingleVariant}
	}
	if n == 2 {
		p := Round4((sorted[0] + sorted[1]) / 2)
		return Estimate{LikelyPrice: &p, VariantCount: 2, Method: MethodPairAverage}
	}

	bottomCut := int(float64(n) * 0.30)
	topCut := int(float64(n) * 0.10)

	if bottomCut+topCut >= n {
		p := Round4(median(sorted))
		return Estimate{LikelyPrice: &p, VariantCount: n, Method: MethodFullMedian}
	}

	filtered := sorted[bottomCut : n-topCut]
	if len(filtered) == 0 {
		filtered = sorted
	}

	p := Round4(median(filtered))
	return Estimate{LikelyPrice: &p, VariantCount: n, Method: MethodVariantMedian}
}

func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
