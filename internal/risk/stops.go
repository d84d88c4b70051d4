package risk

import "signalGenerator/internal/domain"

// Tighter reports whether candidate reduces risk relative to current.
// Any candidate is tighter than an unset stop.
func Tighter(side domain.Side, candidate, current float64, hasCurrent bool) bool {
	if !hasCurrent {
		return true
	}
	if side == domain.SideShort {
		return candidate < current
	}
	return candidate > current
}
