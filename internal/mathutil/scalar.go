package mathutil

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}

// Rad2Deg converts radians to degrees.
func Rad2Deg(r float64) float64 {
	return r * 180 / math.Pi
}

func CosDeg(d float32) float32 { return float32(math.Cos(Deg2Rad(float64(d)))) }

func SinDeg(d float32) float32 { return float32(math.Sin(Deg2Rad(float64(d)))) }

// Atan2Deg returns atan2(y, x) in degrees.
func Atan2Deg(y, x float32) float32 {
	return float32(Rad2Deg(math.Atan2(float64(y), float64(x))))
}

// WrapDegrees folds an angle into [-180, 180] by removing whole turns.
func WrapDegrees(v float32) float32 {
	return v - float32(math.Round(float64(v)/360))*360
}

// Clamp limits v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NextPow2 returns the smallest power of two >= n (1 for n <= 1).
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
