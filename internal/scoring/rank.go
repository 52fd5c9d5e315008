package scoring

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/randunun/bom-pricer/internal/model"
	"github.com/randunun/bom-pricer/internal/pricing"
)

var (
	reBrand    = regexp.MustCompile(`^(\w+)`)
	reQtyWords = regexp.MustCompile(`(?i)\b\d+\s*(pcs|pc)\b`)
)

// missingPriceSentinel sorts unpriced candidates after priced ones when
// final scores tie.
const missingPriceSentinel = 1e12

// Brand returns the leading word of a listing title, or "Unknown" when the
// title starts with something other than a word character.
func Brand(title string) string {
	m := reBrand.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return "Unknown"
	}
	return m[1]
}

// DisplayLabel renders a buyer-facing label: the pack quantity followed by
// the variant label with any embedded quantity words stripped.
func DisplayLabel(variantLabel string, packQty int) string {
	if packQty < 1 {
		packQty = 1
	}
	cleaned := strings.TrimSpace(reQtyWords.ReplaceAllString(variantLabel, ""))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	unit := "Pcs"
	if packQty == 1 {
		unit = "Pc"
	}
	if cleaned == "" {
		return fmt.Sprintf("%d%s", packQty, unit)
	}
	return fmt.Sprintf("%d%s %s", packQty, unit, cleaned)
}

// RiskFor maps a final score to its risk tier.
func RiskFor(finalScore float64) model.RiskTier {
	switch {
	case finalScore >= 0.8:
		return model.RiskLow
	case finalScore >= 0.6:
		return model.RiskMedium
	}
	return model.RiskHigh
}

// Rank scores and orders listings for one canonical key. Trust scores are
// keyed by brand|seller, see model.TrustKey. The first returned candidate
// carries the Default flag.
func Rank(listings []model.Listing, trust map[string]model.TrustEntry, fx pricing.Converter, cfg Config, now time.Time) []model.RankedCandidate {
	out := make([]model.RankedCandidate, 0, len(listings))
	for _, l := range listings {
		out = append(out, score(l, trust, fx, cfg, now))
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FinalScore != out[j].FinalScore {
			return out[i].FinalScore > out[j].FinalScore
		}
		return sortPrice(out[i]) < sortPrice(out[j])
	})
	if len(out) > 0 {
		out[0].Default = true
	}
	return out
}

func score(l model.Listing, trust map[string]model.TrustEntry, fx pricing.Converter, cfg Config, now time.Time) model.RankedCandidate {
	brand := Brand(l.Title)

	unitLocal := pricing.UnitPrice(l.Price, l.PackQty)
	var packUSD, unitUSD, fxRate *float64
	if v, ok := fx.ToUSD(l.Price, l.Currency); ok {
		packUSD = &v
		u := pricing.Round4(v / float64(max(l.PackQty, 1)))
		unitUSD = &u
		if r, ok := fx.Rate(l.Currency); ok {
			fxRate = &r
		}
	}

	conf := Decay(cfg.BaseConfidence, l.LastSeen, cfg.DecayDays, now)
	fb := FeedbackScore(l, cfg.Feedback)
	rawTrust := 0.0
	if e, ok := trust[model.TrustKey(brand, l.SellerName)]; ok {
		rawTrust = e.Score
	}
	tr := NormalizeTrust(rawTrust, cfg.TrustCap)
	vm := cfg.VariantMatchScore

	final := pricing.Round2(cfg.Blend.Confidence*conf +
		cfg.Blend.VariantMatch*vm +
		cfg.Blend.Feedback*fb +
		cfg.Blend.Trust*tr)

	return model.RankedCandidate{
		ID:              l.VariantID,
		VariantID:       l.VariantID,
		Brand:           brand,
		DisplayLabel:    DisplayLabel(l.VariantLabel, l.PackQty),
		RawVariantLabel: l.VariantLabel,
		Title:           l.Title,
		PackQty:         l.PackQty,
		PackPriceUSD:    packUSD,
		UnitPriceUSD:    unitUSD,
		UnitPriceLocal:  unitLocal,
		LocalCurrency:   strings.ToUpper(l.Currency),
		FXRate:          fxRate,
		Confidence:      conf,
		Feedback:        fb,
		Trust:           pricing.Round2(tr),
		VariantMatch:    vm,
		FinalScore:      final,
		Risk:            RiskFor(final),
		Seller:          l.SellerName,
		ProductURL:      l.ProductURL,
		LastSeen:        l.LastSeen,
	}
}

func sortPrice(c model.RankedCandidate) float64 {
	if c.UnitPriceUSD == nil {
		return missingPriceSentinel
	}
	return *c.UnitPriceUSD
}
