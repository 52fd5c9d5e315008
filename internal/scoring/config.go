// Package scoring ranks catalog candidates with a weighted multi-factor
// score: price freshness decay, seller feedback, per-user trust, and
// variant-match confidence.
package scoring

// BlendWeights control how the four sub-scores combine into the final score.
type BlendWeights struct {
	Confidence   float64 `json:"confidence"`
	VariantMatch float64 `json:"variant_match"`
	Feedback     float64 `json:"feedback"`
	Trust        float64 `json:"trust"`
}

// FeedbackWeights control the tiered seller-feedback sub-score.
type FeedbackWeights struct {
	Rating   float64 `json:"rating"`
	Reviews  float64 `json:"reviews"`
	Sold     float64 `json:"sold"`
	StoreAge float64 `json:"store_age"`
	Choice   float64 `json:"choice"`
	Photos   float64 `json:"photos"`
}

// Config holds every scoring knob. All values are injected so the blend can
// be tuned without code changes; the defaults reproduce the documented
// formula exactly.
type Config struct {
	// BaseConfidence is the freshness score of a just-updated price.
	BaseConfidence float64 `json:"base_confidence"`

	// DecayDays is the e-folding time of price freshness.
	DecayDays float64 `json:"decay_days"`

	// VariantMatchScore is the fixed confidence assigned to exact spec-key
	// matches. Placeholder for a future semantic matcher.
	VariantMatchScore float64 `json:"variant_match_score"`

	// TrustStep and TrustCap govern the per-selection trust increment.
	TrustStep float64 `json:"trust_step"`
	TrustCap  float64 `json:"trust_cap"`

	Blend    BlendWeights    `json:"blend"`
	Feedback FeedbackWeights `json:"feedback"`
}

// Default returns the standard scoring configuration.
func Default() Config {
	return Config{
		BaseConfidence:    0.85,
		DecayDays:         30,
		VariantMatchScore: 0.85,
		TrustStep:         0.05,
		TrustCap:          0.3,
		Blend: BlendWeights{
			Confidence:   0.45,
			VariantMatch: 0.20,
			Feedback:     0.20,
			Trust:        0.15,
		},
		Feedback: FeedbackWeights{
			Rating:   0.30,
			Reviews:  0.20,
			Sold:     0.20,
			StoreAge: 0.15,
			Choice:   0.10,
			Photos:   0.05,
		},
	}
}
