package scoring

import (
	"github.com/randunun/bom-pricer/internal/model"
	"github.com/randunun/bom-pricer/internal/pricing"
)

// absentTier is the floor sub-score for absent or worthless signals. The
// scoring pipeline never errors on missing optional fields.
const absentTier = 0.1

// FeedbackScore computes the tiered seller-feedback sub-score in [0, 1].
// Each signal maps to a tier value, then the tiers combine with the
// configured weights (which sum to 1.0 in the default config).
func FeedbackScore(l model.Listing, w FeedbackWeights) float64 {
	score := w.Rating*ratingTier(l.SellerRating) +
		w.Reviews*reviewTier(l.ReviewCount) +
		w.Sold*soldTier(l.SoldCount) +
		w.StoreAge*storeAgeTier(l.StoreAgeYears) +
		w.Choice*boolTier(l.HasChoiceBadge) +
		w.Photos*boolTier(l.HasPhotos)
	return pricing.Round2(score)
}

func ratingTier(rating *float64) float64 {
	if rating == nil || *rating == 0 {
		return absentTier
	}
	switch r := *rating; {
	case r >= 4.7:
		return 1.0
	case r >= 4.3:
		return 0.7
	case r >= 4.0:
		return 0.4
	}
	return absentTier
}

func reviewTier(count *int) float64 {
	if count == nil {
		return absentTier
	}
	switch c := *count; {
	case c >= 500:
		return 1.0
	case c >= 100:
		return 0.7
	case c >= 20:
		return 0.4
	}
	return absentTier
}

func soldTier(count *int) float64 {
	if count == nil {
		return absentTier
	}
	switch c := *count; {
	case c >= 1000:
		return 1.0
	case c >= 200:
		return 0.7
	case c >= 50:
		return 0.4
	}
	return absentTier
}

func storeAgeTier(years *float64) float64 {
	if years == nil {
		return absentTier
	}
	switch y := *years; {
	case y >= 3:
		return 1.0
	case y >= 1:
		return 0.5
	}
	return absentTier
}

func boolTier(b bool) float64 {
	if b {
		return 1.0
	}
	return 0.0
}

// NormalizeTrust maps a raw trust score in [0, cap] to [0, 1] for blending.
func NormalizeTrust(raw, cap float64) float64 {
	if cap <= 0 {
		return 0
	}
	n := raw / cap
	if n < 0 {
		return 0
	}
	if n > 1 {
		return 1
	}
	return n
}
