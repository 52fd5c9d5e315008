// Package bom parses raw bill-of-materials text into typed, keyed lines.
package bom

import (
	"regexp"
	"strings"

	"github.com/randunun/bom-pricer/internal/model"
	"github.com/randunun/bom-pricer/internal/spec"
)

// reDimensions matches propeller size notation like "5x4.5" or "5045"-style
// "5X45" pairs, used to classify lines that never say "prop".
var reDimensions = regexp.MustCompile(`\b\d+X\d+(?:\.\d+)?\b`)

// DefaultMaxLines caps a single pricing batch. Lines beyond the cap are
// dropped and the batch is flagged as truncated, never errored.
const DefaultMaxLines = 100

// Classify maps upper-cased line text to a component type by substring
// presence, in priority order. Returns "" for unrecognized text.
func Classify(upper string) model.ComponentType {
	switch {
	case strings.Contains(upper, "ESC"):
		return model.TypeESC
	case strings.Contains(upper, "MOTOR"):
		return model.TypeMotor
	case strings.Contains(upper, "LIPO"), strings.Contains(upper, "BATTERY"):
		return model.TypeBattery
	case strings.Contains(upper, "PROP"), reDimensions.MatchString(upper):
		return model.TypePropeller
	case strings.Contains(upper, "SERVO"):
		return model.TypeServo
	}
	return ""
}

// ParseLine parses one trimmed, non-empty BOM line. Unrecognized lines come
// back with an empty type and no spec key; they are routed to an
// INVALID_LINE outcome downstream instead of failing the batch.
func ParseLine(line string) model.BOMLine {
	upper := strings.ToUpper(strings.TrimSpace(line))

	specs := spec.Extract(upper)
	ctype := Classify(upper)

	qty := specs.PackQty
	if qty < 1 {
		qty = 1
	}

	return model.BOMLine{
		Raw:      upper,
		Type:     ctype,
		Quantity: qty,
		Specs:    specs,
		SpecKey:  spec.CanonicalKey(string(ctype), specs),
	}
}

// Parse splits BOM text into lines and parses each non-empty one, applying
// the batch cap. The second return reports whether lines were dropped.
func Parse(text string, maxLines int) ([]model.BOMLine, bool) {
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}

	var lines []model.BOMLine
	truncated := false
	for _, raw := range strings.Split(strings.TrimSpace(text), "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if len(lines) >= maxLines {
			truncated = true
			break
		}
		lines = append(lines, ParseLine(raw))
	}
	return lines, truncated
}
