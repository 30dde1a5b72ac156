package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Affine is a 2D affine transform stored as the linear part
//
//	| A B |
//	| C D |
//
// plus the translation (X, Y). Apply maps p to (A*px + B*py + X, C*px + D*py + Y).
type Affine struct {
	A, B, C, D float32
	X, Y       float32
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, D: 1}
}

// Apply transforms a point.
func (m Affine) Apply(p mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{
		m.A*p[0] + m.B*p[1] + m.X,
		m.C*p[0] + m.D*p[1] + m.Y,
	}
}

// ApplyVector transforms a direction, ignoring translation.
func (m Affine) ApplyVector(v mgl32.Vec2) mgl32.Vec2 {
	return mgl32.Vec2{m.A*v[0] + m.B*v[1], m.C*v[0] + m.D*v[1]}
}

// Mul returns m∘o: o is applied first.
func (m Affine) Mul(o Affine) Affine {
	return Affine{
		A: m.A*o.A + m.B*o.C,
		B: m.A*o.B + m.B*o.D,
		C: m.C*o.A + m.D*o.C,
		D: m.C*o.B + m.D*o.D,
		X: m.A*o.X + m.B*o.Y + m.X,
		Y: m.C*o.X + m.D*o.Y + m.Y,
	}
}

// Det returns the determinant of the linear part.
func (m Affine) Det() float32 {
	return m.A*m.D - m.B*m.C
}

// Inverse returns the inverse transform. A singular matrix yields the identity.
func (m Affine) Inverse() Affine {
	det := m.Det()
	if det == 0 {
		return Identity()
	}
	inv := 1 / det
	a, b := m.D*inv, -m.B*inv
	c, d := -m.C*inv, m.A*inv
	return Affine{
		A: a, B: b, C: c, D: d,
		X: -(a*m.X + b*m.Y),
		Y: -(c*m.X + d*m.Y),
	}
}

// RotationX is the world angle of the local x axis in degrees.
func (m Affine) RotationX() float32 { return Atan2Deg(m.C, m.A) }

// RotationY is the world angle of the local y axis in degrees.
func (m Affine) RotationY() float32 { return Atan2Deg(m.D, m.B) }

// ScaleX is the length of the local x axis.
func (m Affine) ScaleX() float32 { return float32(math.Hypot(float64(m.A), float64(m.C))) }

// ScaleY is the length of the local y axis.
func (m Affine) ScaleY() float32 { return float32(math.Hypot(float64(m.B), float64(m.D))) }

// Mat3 converts to a column-major homogeneous matrix.
func (m Affine) Mat3() mgl32.Mat3 {
	return mgl32.Mat3{
		m.A, m.C, 0,
		m.B, m.D, 0,
		m.X, m.Y, 1,
	}
}

// ApproxEqual compares all six components within eps.
func (m Affine) ApproxEqual(o Affine, eps float32) bool {
	return mgl32.FloatEqualThreshold(m.A, o.A, eps) &&
		mgl32.FloatEqualThreshold(m.B, o.B, eps) &&
		mgl32.FloatEqualThreshold(m.C, o.C, eps) &&
		mgl32.FloatEqualThreshold(m.D, o.D, eps) &&
		mgl32.FloatEqualThreshold(m.X, o.X, eps) &&
		mgl32.FloatEqualThreshold(m.Y, o.Y, eps)
}
