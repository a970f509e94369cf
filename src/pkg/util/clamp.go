package util

import (
	"cmp"
	"math"
)

// Clamp clamps val to the range [min, max] for any ordered type.
func Clamp[T cmp.Ordered](val, min, max T) T {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// RoundPixels rounds a scaled dimension to the nearest whole pixel, never below 1.
func RoundPixels(value float64) int {
	rounded := int(math.Round(value))
	if rounded < 1 {
		return 1
	}
	return rounded
}
