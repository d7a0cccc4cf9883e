// internal/domain/models/tier.go
package models

// Tiers are integer sensitivity classes:
//
//	0 public, 1 publishable, 2 official, 3 sensitive, 4 secret
const (
	TierMin = 0
	TierMax = 4
)

// ValidTier reports whether t is inside the tier range {0..4}.
func ValidTier(t int) bool {
	return t >= TierMin && t <= TierMax
}
