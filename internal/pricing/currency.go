// Package pricing normalizes listing prices: currency conversion from an
// injected rate table, pack-to-unit math, likely-price estimation across
// variants, and trend analysis over history samples.
package pricing

import (
	"math"
	"strings"
)

// Converter converts local-currency amounts to USD using a fixed rate table.
// The table is injected at construction and never mutated afterwards.
type Converter struct {
	rates map[string]float64
}

// NewConverter builds a Converter from a code→rate map (units of USD per one
// unit of the currency). USD is pinned to 1.0 regardless of the input.
func NewConverter(rates map[string]float64) Converter {
	m := make(map[string]float64, len(rates)+1)
	for code, rate := range rates {
		m[strings.ToUpper(code)] = rate
	}
	m["USD"] = 1.0
	return Converter{rates: m}
}

// ToUSD converts value to USD, rounded to 4 decimals for storage. Unknown
// currency codes report ok=false: the caller propagates a null price rather
// than a silent zero.
func (c Converter) ToUSD(value float64, currency string) (float64, bool) {
	rate, ok := c.rates[strings.ToUpper(currency)]
	if !ok {
		return 0, false
	}
	return Round4(value * rate), true
}

// Rate exposes the configured rate for a currency code.
func (c Converter) Rate(currency string) (float64, bool) {
	rate, ok := c.rates[strings.ToUpper(currency)]
	return rate, ok
}

// Round4 rounds to 4 decimal places (intermediate storage precision).
func Round4(v float64) float64 { return math.Round(v*1e4) / 1e4 }

// Round2 rounds to 2 decimal places (display and score precision).
func Round2(v float64) float64 { return math.Round(v*1e2) / 1e2 }

// Round1 rounds to 1 decimal place (trend percentages).
func Round1(v float64) float64 { return math.Round(v*10) / 10 }
