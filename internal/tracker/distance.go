package tracker

import (
	"math"

	"github.com/golang/geo/r2"
)

// Distance returns the planar Euclidean distance between (x1,y1) and (x2,y2).
// NaN and Inf inputs propagate; callers validate upstream.
func Distance(x1, y1, x2, y2 float64) float64 {
	return r2.Point{X: x1, Y: y1}.Sub(r2.Point{X: x2, Y: y2}).Norm()
}

// MetersToCentimeters converts a distance in meters to centimeters
// rounded to two decimals, half away from zero.
func MetersToCentimeters(m float64) float64 {
	return Round2(m * 100)
}

// Round2 rounds v to two decimal places, half away from zero
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// IsFinite reports whether v is neither NaN nor infinite
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
