// Package numeric holds the small generic numeric helpers shared
// across the receiver, mixer, and flight-state packages, generalized
// from several float64-only mapRange/clamp copies into the
// constraints.Float-parameterized versions.
package numeric

import "golang.org/x/exp/constraints"

// Clamp constrains v to [min, max].
func Clamp[T constraints.Float](v, min, max T) T {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// MapRange linearly rescales value from [fromMin, fromMax] into
// [toMin, toMax], without clamping the result to the target range.
func MapRange[T constraints.Float](value, fromMin, fromMax, toMin, toMax T) T {
	return (value-fromMin)/(fromMax-fromMin)*(toMax-toMin) + toMin
}
