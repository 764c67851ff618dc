package math

import (
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Clamp returns the value `f` clamped to the range [low, high].
// It works for any numeric type (integers and floats).
func Clamp[T constraints.Ordered](f, low, high T) T {
	if f < low {
		return low
	}
	if f > high {
		return high
	}
	return f
}

// MipLevels returns floor(log2(max(width, height))) + 1.
func MipLevels(width, height uint32) uint32 {
	size := max(width, height)
	if size == 0 {
		return 1
	}
	return uint32(bits.Len32(size))
}
