package common

import "math"

func Lerp(a, b, t float64) float64 {
	return a + t*(b-a)
}

// Finite reports whether v is neither NaN nor infinite.
func Finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FiniteOr returns v, or fallback when v is NaN or infinite.
func FiniteOr(v, fallback float64) float64 {
	if Finite(v) {
		return v
	}
	return fallback
}
