package spec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/randunun/bom-pricer/internal/model"
)

// UnknownDiscriminator is the sentinel used when no discriminating spec is
// present. Under-specified lines land in a broad per-type bucket on purpose;
// see the catalog matching notes in DESIGN.md.
const UnknownDiscriminator = "UNKNOWN"

const slugMaxLen = 50

var reWhitespace = regexp.MustCompile(`\s+`)

// CanonicalKey maps a component type plus extracted specs to the stable
// string key used for every catalog join. It is pure: the same inputs always
// produce the same key. An empty type yields an empty key.
func CanonicalKey(componentType string, s model.Specs) string {
	if componentType == "" {
		return ""
	}
	t := strings.ToUpper(componentType)

	switch t {
	case "ESC":
		if s.CurrentA != nil {
			return fmt.Sprintf("ESC:%dA", *s.CurrentA)
		}
		return "ESC:" + UnknownDiscriminator

	case "MOTOR":
		if s.Size != "" && s.KV != nil {
			return fmt.Sprintf("MOTOR:%s:%dKV", s.Size, *s.KV)
		}
		if s.KV != nil {
			return fmt.Sprintf("MOTOR:%dKV", *s.KV)
		}
		// DC/coreless motors carry no KV rating; fall back to a raw-text slug.
		if s.Raw != "" {
			return "MOTOR:" + slug(s.Raw)
		}
		return "MOTOR:" + UnknownDiscriminator

	case "BATTERY", "LIPO":
		if s.VoltageS != nil && s.CapacityMAh != nil {
			return fmt.Sprintf("BATTERY:%s:%dMAH", *s.VoltageS, *s.CapacityMAh)
		}
		if s.VoltageS != nil {
			return "BATTERY:" + *s.VoltageS
		}
		return "BATTERY:" + UnknownDiscriminator

	case "PROP", "PROPELLER":
		if s.Size != "" {
			return "PROP:" + s.Size
		}
		return "PROP:" + UnknownDiscriminator

	case "SERVO":
		if s.Weight != "" {
			return "SERVO:" + s.Weight
		}
		return "SERVO:" + UnknownDiscriminator
	}

	return t + ":" + UnknownDiscriminator
}

func slug(raw string) string {
	s := reWhitespace.ReplaceAllString(strings.TrimSpace(raw), "_")
	// Truncate on rune boundaries so multi-byte titles stay valid UTF-8.
	if r := []rune(s); len(r) > slugMaxLen {
		s = string(r[:slugMaxLen])
	}
	return s
}
