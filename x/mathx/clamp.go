// Package mathx holds small generic numeric helpers shared by the services.
package mathx

import "golang.org/x/exp/constraints"

// Clamp limits v to [lo, hi]. Swapped bounds are put back in order.
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	lo, hi = order(lo, hi)
	return max(lo, min(v, hi))
}

// Between reports whether v lies in the closed range [lo, hi]. NaN is never
// in range.
func Between[T constraints.Ordered](v, lo, hi T) bool {
	lo, hi = order(lo, hi)
	return lo <= v && v <= hi
}

// CopySign returns |mag| carrying the sign of sign. Zero counts as positive.
func CopySign[T constraints.Signed | constraints.Float](mag, sign T) T {
	if mag < 0 {
		mag = -mag
	}
	if sign < 0 {
		return -mag
	}
	return mag
}

func order[T constraints.Ordered](a, b T) (T, T) {
	if b < a {
		return b, a
	}
	return a, b
}
