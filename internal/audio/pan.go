package audio

import "math"

// EqualPower returns left/right channel gains for pan in [-1, 1].
// Total power is constant: left² + right² = 1. Center gives √2/2 on both sides.
func EqualPower(pan float64) (left, right float64) {
	pan = math.Max(-1, math.Min(1, pan))
	theta := (pan + 1) * math.Pi / 4
	return math.Cos(theta), math.Sin(theta)
}
