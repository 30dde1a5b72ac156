package curve

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func near(a, b, eps float32) bool {
	return float32(math.Abs(float64(a-b))) <= eps
}

func TestEmptyCurve(t *testing.T) {
	var c Curve
	if v := c.ValueAt(3); v != 0 {
		t.Errorf("empty ValueAt = %v", v)
	}
	if d := c.Duration(); d != 0 {
		t.Errorf("empty Duration = %v", d)
	}
}

func TestBoundaryClamp(t *testing.T) {
	for _, interp := range []Interpolation{Linear, Constant, Bezier} {
		c := New(
			Keyframe{Time: 1, Value: 10, Interp: interp, HandleRight: mgl32.Vec2{1.5, 30}, HasRight: true},
			Keyframe{Time: 2, Value: 20, HandleLeft: mgl32.Vec2{1.5, 0}, HasLeft: true},
		)
		tests := []struct {
			t, want float32
		}{
			{-5, 10}, {0, 10}, {1, 10}, {2, 20}, {2.5, 20}, {100, 20},
		}
		for _, tt := range tests {
			if got := c.ValueAt(tt.t); got != tt.want {
				t.Errorf("%v: ValueAt(%v) = %v, want %v", interp, tt.t, got, tt.want)
			}
		}
	}
}

func TestLinearAndConstant(t *testing.T) {
	c := New(
		Keyframe{Time: 0, Value: 0},
		Keyframe{Time: 1, Value: 10, Interp: Constant},
		Keyframe{Time: 2, Value: 30},
	)
	tests := []struct {
		t, want float32
	}{
		{0.25, 2.5}, {0.5, 5}, {1, 10}, {1.5, 10}, {1.99, 10},
	}
	for _, tt := range tests {
		if got := c.ValueAt(tt.t); !near(got, tt.want, 1e-5) {
			t.Errorf("ValueAt(%v) = %v, want %v", tt.t, got, tt.want)
		}
	}
}

func TestInsertOrderAndReplace(t *testing.T) {
	c := New(
		Keyframe{Time: 2, Value: 2},
		Keyframe{Time: 0, Value: 0},
		Keyframe{Time: 1, Value: 1},
	)
	c.Insert(Keyframe{Time: 1, Value: 5})
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}
	for i, want := range []float32{0, 1, 2} {
		if c.Key(i).Time != want {
			t.Errorf("key %d time = %v, want %v", i, c.Key(i).Time, want)
		}
	}
	if c.Key(1).Value != 5 {
		t.Errorf("replaced value = %v, want 5", c.Key(1).Value)
	}
	if c.Duration() != 2 {
		t.Errorf("Duration = %v", c.Duration())
	}
}

func TestBezierEndpointsExact(t *testing.T) {
	c := New(
		Keyframe{Time: 0, Value: 3, Interp: Bezier, HandleRight: mgl32.Vec2{0.9, 50}, HasRight: true},
		Keyframe{Time: 1, Value: 7, HandleLeft: mgl32.Vec2{0.1, -50}, HasLeft: true},
		Keyframe{Time: 2, Value: 7},
	)
	if v := c.ValueAt(0); v != 3 {
		t.Errorf("ValueAt(t0) = %v", v)
	}
	if v := c.ValueAt(1); v != 7 {
		t.Errorf("ValueAt(t1) = %v", v)
	}
}

func TestBezierChordHandlesMatchLinear(t *testing.T) {
	c := New(
		Keyframe{Time: 0, Value: 0, Interp: Bezier, HandleRight: mgl32.Vec2{1.0 / 3, 10.0 / 3}, HasRight: true},
		Keyframe{Time: 1, Value: 10, HandleLeft: mgl32.Vec2{2.0 / 3, 20.0 / 3}, HasLeft: true},
	)
	for _, tt := range []float32{0.1, 0.33, 0.5, 0.8, 0.95} {
		if got := c.ValueAt(tt); !near(got, tt*10, 1e-3) {
			t.Errorf("ValueAt(%v) = %v, want %v", tt, got, tt*10)
		}
	}
}

func TestBezierSolvesTimeDomain(t *testing.T) {
	// Ease-in-out: x handles pulled toward the ends, y flat at each end.
	c := New(
		Keyframe{Time: 0, Value: 0, Interp: Bezier, HandleRight: mgl32.Vec2{0.42, 0}, HasRight: true},
		Keyframe{Time: 1, Value: 1, HandleLeft: mgl32.Vec2{0.58, 1}, HasLeft: true},
	)
	if v := c.ValueAt(0.5); !near(v, 0.5, 1e-4) {
		t.Errorf("symmetric ease at midpoint = %v, want 0.5", v)
	}
	// Slow start: the value lags time early on.
	if v := c.ValueAt(0.1); v >= 0.1 {
		t.Errorf("ease-in ValueAt(0.1) = %v, want < 0.1", v)
	}
	prev := float32(-1)
	for i := 0; i <= 100; i++ {
		v := c.ValueAt(float32(i) / 100)
		if v < prev-1e-6 {
			t.Fatalf("non-monotonic at %d: %v < %v", i, v, prev)
		}
		prev = v
	}
}

func TestBezierHandlesOutsideSegment(t *testing.T) {
	c := New(
		Keyframe{Time: 0, Value: 0, Interp: Bezier, HandleRight: mgl32.Vec2{-3, 0}, HasRight: true},
		Keyframe{Time: 1, Value: 1, HandleLeft: mgl32.Vec2{4, 1}, HasLeft: true},
	)
	prev := float32(-1)
	for i := 0; i <= 50; i++ {
		v := c.ValueAt(float32(i) / 50)
		if math.IsNaN(float64(v)) || v < prev-1e-6 {
			t.Fatalf("ValueAt(%v) = %v after %v", float32(i)/50, v, prev)
		}
		prev = v
	}
}

func TestParseInterpolation(t *testing.T) {
	for _, i := range []Interpolation{Linear, Constant, Bezier} {
		got, ok := ParseInterpolation(i.String())
		if !ok || got != i {
			t.Errorf("ParseInterpolation(%q) = %v, %v", i.String(), got, ok)
		}
	}
	if _, ok := ParseInterpolation("cubic"); ok {
		t.Error("unknown name accepted")
	}
}
