package model

import "time"

// TrustEntry records a user's affinity for a (brand, seller) pair, built up
// from explicit selection events. Score grows additively per selection and
// is capped; it never decays.
type TrustEntry struct {
	UserKey string `json:"user_key"`
	Brand   string `json:"brand"`
	Seller  string `json:"seller"`

	Score       float64   `json:"score"`
	SelectCount int       `json:"select_count"`
	LastSelect  time.Time `json:"last_selected"`
}

// TrustKey is the lookup key used inside a per-user trust map.
func TrustKey(brand, seller string) string { return brand + "|" + seller }
