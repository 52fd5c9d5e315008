package pricing

// UnitPrice converts a pack price to a per-unit price. Listings are priced
// per pack ("4Pcs $20") while BOM quantities are per unit, so every price
// passes through here before scoring. Pack quantity is clamped to 1.
func UnitPrice(packPrice float64, packQty int) float64 {
	if packQty < 1 {
		packQty = 1
	}
	return Round4(packPrice / float64(packQty))
}
