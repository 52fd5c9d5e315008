// Package spec holds the pure text-to-specification kernel: extracting
// structured specs from free text, generating canonical catalog keys, and
// deriving stable variant identities. Nothing in this package does I/O.
package spec

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/randunun/bom-pricer/internal/model"
)

var (
	rePackWords    = regexp.MustCompile(`(\d+)\s*(?:PCS|PC|PAIRS|PAIR)`)
	rePackAfterX   = regexp.MustCompile(`X\s*(\d+)`)
	rePackBeforeX  = regexp.MustCompile(`^(\d+)\s*X`)
	rePackTrailing = regexp.MustCompile(`[X\s](\d+)\s*$`)

	reAmps     = regexp.MustCompile(`(\d+)\s*A\b`)
	reVoltage  = regexp.MustCompile(`(\d+(?:-\d+)?)\s*S\b`)
	reCapacity = regexp.MustCompile(`(\d+)\s*MAH`)
	reKV       = regexp.MustCompile(`(\d+)\s*KV`)
)

// escMinAmps separates ESC current ratings from BEC/UBEC ratings, which are
// usually 3A or 5A and would otherwise win the first-match rule.
const escMinAmps = 10

// Extract parses structured specs out of arbitrary text (a listing title,
// a variant label, or a raw BOM line). Every field defaults independently;
// unparseable text never produces an error.
func Extract(text string) model.Specs {
	s := model.Specs{PackQty: 1}
	if text == "" {
		return s
	}
	upper := strings.ToUpper(text)
	s.Raw = upper

	s.PackQty = extractPackQty(upper)

	if amps, ok := extractAmps(upper); ok {
		s.CurrentA = &amps
	}

	if m := reVoltage.FindStringSubmatch(upper); m != nil {
		v := m[1] + "S"
		s.VoltageS = &v
	}

	if m := reCapacity.FindStringSubmatch(upper); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			s.CapacityMAh = &n
		}
	}

	if m := reKV.FindStringSubmatch(upper); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			s.KV = &n
		}
	}

	return s
}

// extractPackQty tries the pack patterns in priority order: "4Pcs"/"2Pairs",
// then "x5", then "5x", then a bare trailing count. First hit wins.
func extractPackQty(upper string) int {
	for _, re := range []*regexp.Regexp{rePackWords, rePackAfterX, rePackBeforeX, rePackTrailing} {
		if m := re.FindStringSubmatch(upper); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n >= 1 {
				return n
			}
			return 1
		}
	}
	return 1
}

// extractAmps collects every "<N>A" token and prefers the first value at or
// above escMinAmps; smaller values are only used when nothing larger exists.
func extractAmps(upper string) (int, bool) {
	matches := reAmps.FindAllStringSubmatch(upper, -1)
	if len(matches) == 0 {
		return 0, false
	}

	candidates := make([]int, 0, len(matches))
	for _, m := range matches {
		if n, err := strconv.Atoi(m[1]); err == nil {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}

	for _, a := range candidates {
		if a >= escMinAmps {
			return a, true
		}
	}
	return candidates[0], true
}
