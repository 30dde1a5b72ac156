package curve

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

// Interpolation selects how the segment leaving a keyframe is evaluated.
type Interpolation uint8

const (
	Linear Interpolation = iota
	Constant
	Bezier
)

func (i Interpolation) String() string {
	switch i {
	case Linear:
		return "linear"
	case Constant:
		return "constant"
	case Bezier:
		return "bezier"
	}
	return "unknown"
}

// ParseInterpolation is the inverse of Interpolation.String.
func ParseInterpolation(s string) (Interpolation, bool) {
	switch s {
	case "linear", "":
		return Linear, true
	case "constant", "stepped":
		return Constant, true
	case "bezier":
		return Bezier, true
	}
	return Linear, false
}

// Keyframe is one key of a scalar curve. Handles are absolute (time, value)
// points; HandleRight shapes the segment leaving this key and HandleLeft the
// segment arriving at it.
type Keyframe struct {
	Time        float32
	Value       float32
	Interp      Interpolation
	HandleLeft  mgl32.Vec2
	HandleRight mgl32.Vec2
	HasLeft     bool
	HasRight    bool
}

// Curve is a time-sorted list of keyframes.
type Curve struct {
	keys []Keyframe
}

// New returns a curve holding keys, sorted by time.
func New(keys ...Keyframe) *Curve {
	c := &Curve{}
	for _, k := range keys {
		c.Insert(k)
	}
	return c
}

// Insert adds k in time order. A key at an existing time replaces it.
func (c *Curve) Insert(k Keyframe) {
	i := sort.Search(len(c.keys), func(i int) bool { return c.keys[i].Time >= k.Time })
	if i < len(c.keys) && c.keys[i].Time == k.Time {
		c.keys[i] = k
		return
	}
	c.keys = append(c.keys, Keyframe{})
	copy(c.keys[i+1:], c.keys[i:])
	c.keys[i] = k
}

func (c *Curve) Len() int { return len(c.keys) }

func (c *Curve) Key(i int) Keyframe { return c.keys[i] }

// Keys returns a copy of the keyframes.
func (c *Curve) Keys() []Keyframe {
	out := make([]Keyframe, len(c.keys))
	copy(out, c.keys)
	return out
}

// Duration is the time of the last key, or 0 for an empty curve.
func (c *Curve) Duration() float32 {
	if len(c.keys) == 0 {
		return 0
	}
	return c.keys[len(c.keys)-1].Time
}

// ValueAt evaluates the curve at t. Times before the first key return the
// first value and times after the last key return the last value.
func (c *Curve) ValueAt(t float32) float32 {
	n := len(c.keys)
	if n == 0 {
		return 0
	}
	if t <= c.keys[0].Time {
		return c.keys[0].Value
	}
	if t >= c.keys[n-1].Time {
		return c.keys[n-1].Value
	}
	i := sort.Search(n, func(i int) bool { return c.keys[i].Time > t }) - 1
	k0, k1 := c.keys[i], c.keys[i+1]

	span := k1.Time - k0.Time
	if span <= 0 {
		return k1.Value
	}
	switch k0.Interp {
	case Constant:
		return k0.Value
	case Bezier:
		return bezierAt(k0, k1, t)
	}
	return k0.Value + (k1.Value-k0.Value)*(t-k0.Time)/span
}

// bezierAt solves x(s) = t for the segment's curve parameter and returns y(s).
func bezierAt(k0, k1 Keyframe, t float32) float32 {
	t0, v0 := float64(k0.Time), float64(k0.Value)
	t1, v1 := float64(k1.Time), float64(k1.Value)

	x1, y1 := t0+(t1-t0)/3, v0+(v1-v0)/3
	if k0.HasRight {
		x1, y1 = float64(k0.HandleRight[0]), float64(k0.HandleRight[1])
	}
	x2, y2 := t0+2*(t1-t0)/3, v0+2*(v1-v0)/3
	if k1.HasLeft {
		x2, y2 = float64(k1.HandleLeft[0]), float64(k1.HandleLeft[1])
	}
	// Handles outside the segment would make x(s) non-monotonic.
	x1 = clamp(x1, t0, t1)
	x2 = clamp(x2, t0, t1)

	s := solveParam(t0, x1, x2, t1, float64(t))
	return float32(cubic(v0, y1, y2, v1, s))
}

func cubic(p0, p1, p2, p3, s float64) float64 {
	u := 1 - s
	return u*u*u*p0 + 3*u*u*s*p1 + 3*u*s*s*p2 + s*s*s*p3
}

func cubicDeriv(p0, p1, p2, p3, s float64) float64 {
	u := 1 - s
	return 3*u*u*(p1-p0) + 6*u*s*(p2-p1) + 3*s*s*(p3-p2)
}

// solveParam finds s in [0,1] with x(s) = x using Newton steps and falls back
// to bisection when Newton leaves the interval or stalls.
func solveParam(p0, p1, p2, p3, x float64) float64 {
	span := p3 - p0
	tol := 1e-6 * span
	s := (x - p0) / span
	for i := 0; i < 8; i++ {
		err := cubic(p0, p1, p2, p3, s) - x
		if math.Abs(err) <= tol {
			return s
		}
		d := cubicDeriv(p0, p1, p2, p3, s)
		if math.Abs(d) < 1e-12 {
			break
		}
		next := s - err/d
		if next < 0 || next > 1 {
			break
		}
		s = next
	}

	lo, hi := 0.0, 1.0
	for i := 0; i < 64; i++ {
		s = (lo + hi) / 2
		err := cubic(p0, p1, p2, p3, s) - x
		if math.Abs(err) <= tol {
			return s
		}
		if err < 0 {
			lo = s
		} else {
			hi = s
		}
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
