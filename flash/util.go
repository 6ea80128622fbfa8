package flash

import (
	"golang.org/x/exp/constraints"
)

// clamp will pin v into the [lo, hi] range.
func clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
