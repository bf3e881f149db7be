package math

import "golang.org/x/exp/constraints"

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

// IsPowerOf2 reports whether v is a positive power of two.
func IsPowerOf2[T constraints.Integer](v T) bool {
	return v > 0 && v&(v-1) == 0
}

// PrevPowerOf2 returns the largest power of two <= v, or 0 if v < 1.
func PrevPowerOf2[T constraints.Integer](v T) T {
	if v < 1 {
		return 0
	}
	p := T(1)
	for p <= v/2 {
		p *= 2
	}
	return p
}

// NextPowerOf2 returns the smallest power of two >= v, or 1 if v < 1.
func NextPowerOf2[T constraints.Integer](v T) T {
	p := T(1)
	for p < v {
		p *= 2
	}
	return p
}

// NearestPowerOf2 returns the power of two closest to v. Ties go down.
func NearestPowerOf2[T constraints.Integer](v T) T {
	if v < 1 {
		return 1
	}
	lo := PrevPowerOf2(v)
	if lo == v {
		return v
	}
	hi := lo * 2
	if hi-v < v-lo {
		return hi
	}
	return lo
}
