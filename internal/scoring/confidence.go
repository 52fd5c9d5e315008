package scoring

import (
	"math"
	"time"

	"github.com/randunun/bom-pricer/internal/pricing"
)

// Decay erodes a base confidence score by price staleness: base × e^(−d/τ)
// where d is days since the price was last seen and τ is DecayDays. A zero
// last-seen time means freshness is unknown and the base passes through.
// The result approaches but never reaches exactly zero.
func Decay(base float64, lastSeen time.Time, decayDays float64, now time.Time) float64 {
	if lastSeen.IsZero() {
		return base
	}
	if decayDays <= 0 {
		decayDays = 30
	}
	days := now.Sub(lastSeen).Hours() / 24
	if days < 0 {
		days = 0
	}
	return pricing.Round2(base * math.Exp(-days/decayDays))
}
