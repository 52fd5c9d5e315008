package spec

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
)

// DefaultSource tags rows produced by the production crawl. Test-mode
// ingestion uses a different tag so its identities never collide with
// production rows.
const DefaultSource = "prod"

// VariantID derives the stable identity for a (listing, variant, pack,
// source) tuple. SHA-1 is used for content addressing, not secrecy; the
// identity keys idempotent catalog upserts and price-history rows.
func VariantID(productID, variantLabel string, packQty int, source string) string {
	if packQty < 1 {
		packQty = 1
	}
	if source == "" {
		source = DefaultSource
	}
	input := fmt.Sprintf("%s|%s|%d|%s", productID, variantLabel, packQty, source)
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}
