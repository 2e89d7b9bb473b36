package math

import "golang.org/x/exp/constraints"

// Clamp limits f to [low, high]. low wins when the range is empty.
func Clamp[T constraints.Ordered](f, low, high T) T {
	return max(low, min(f, high))
}

// ClampMax limits f to limit, where a zero limit means unbounded.
func ClampMax[T constraints.Integer | constraints.Float](f, limit T) T {
	if limit == 0 {
		return f
	}
	return min(f, limit)
}
