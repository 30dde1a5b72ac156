package raster

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"skel-runtime/internal/skeleton"
)

func quad(min, max mgl32.Vec2, tint mgl32.Vec4, mode skeleton.BlendMode) skeleton.DrawItem {
	return skeleton.DrawItem{
		Op:    skeleton.OpTriangles,
		Blend: mode,
		Color: tint,
		Page:  0,
		Vertices: []mgl32.Vec2{
			{min[0], min[1]}, {min[0], max[1]}, {max[0], max[1]}, {max[0], min[1]},
		},
		UVs:       []mgl32.Vec2{{0, 1}, {0, 0}, {1, 0}, {1, 1}},
		Triangles: []uint16{0, 1, 2, 2, 3, 0},
	}
}

func whitePage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	return img
}

func TestRenderEmpty(t *testing.T) {
	img := Render(nil, nil, Options{Size: 16, Supersample: 2})
	if img.Bounds().Dx() != 32 || img.Bounds().Dy() != 32 {
		t.Fatalf("size = %v", img.Bounds())
	}
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			t.Fatal("empty draw list drew pixels")
		}
	}
}

func TestRenderQuadCoverage(t *testing.T) {
	// Half alpha shows any pixel drawn twice along the shared diagonal.
	items := []skeleton.DrawItem{quad(mgl32.Vec2{-1, -1}, mgl32.Vec2{1, 1}, mgl32.Vec4{1, 0, 0, 0.5}, skeleton.BlendNormal)}
	img := Render(items, []*image.NRGBA{whitePage()}, Options{Size: 32, Supersample: 1})
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if c := img.NRGBAAt(x, y); c != (color.NRGBA{255, 0, 0, 128}) {
				t.Fatalf("pixel (%d,%d) = %v", x, y, c)
			}
		}
	}
}

func TestRenderFrameAndMissingPage(t *testing.T) {
	items := []skeleton.DrawItem{quad(mgl32.Vec2{-1, -1}, mgl32.Vec2{1, 1}, mgl32.Vec4{0, 1, 0, 1}, skeleton.BlendNormal)}
	items[0].Page = 3
	frame := Bounds{Min: mgl32.Vec2{-2, -2}, Max: mgl32.Vec2{2, 2}}
	img := Render(items, nil, Options{Size: 32, Supersample: 1, Frame: &frame})
	if c := img.NRGBAAt(16, 16); c != (color.NRGBA{0, 255, 0, 255}) {
		t.Errorf("center = %v", c)
	}
	if c := img.NRGBAAt(2, 2); c.A != 0 {
		t.Errorf("outside quad = %v", c)
	}
}

func TestRenderTextureOrientation(t *testing.T) {
	// Top row red, bottom row blue: world up must show red.
	page := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	page.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	page.SetNRGBA(0, 1, color.NRGBA{0, 0, 255, 255})
	items := []skeleton.DrawItem{quad(mgl32.Vec2{-1, -1}, mgl32.Vec2{1, 1}, mgl32.Vec4{1, 1, 1, 1}, skeleton.BlendNormal)}
	img := Render(items, []*image.NRGBA{page}, Options{Size: 32, Supersample: 1})
	if c := img.NRGBAAt(16, 1); c.R != 255 || c.B != 0 {
		t.Errorf("top = %v", c)
	}
	if c := img.NRGBAAt(16, 30); c.B != 255 || c.R != 0 {
		t.Errorf("bottom = %v", c)
	}
}

func TestRenderClip(t *testing.T) {
	items := []skeleton.DrawItem{
		{Op: skeleton.OpClipStart, Vertices: []mgl32.Vec2{{-1, -1}, {0, -1}, {0, 1}, {-1, 1}}},
		quad(mgl32.Vec2{-1, -1}, mgl32.Vec2{1, 1}, mgl32.Vec4{1, 1, 1, 1}, skeleton.BlendNormal),
		{Op: skeleton.OpClipEnd},
		quad(mgl32.Vec2{0.5, 0.5}, mgl32.Vec2{1, 1}, mgl32.Vec4{0, 0, 1, 1}, skeleton.BlendNormal),
	}
	img := Render(items, []*image.NRGBA{whitePage()}, Options{Size: 32, Supersample: 1})
	if c := img.NRGBAAt(4, 16); c.A != 255 {
		t.Errorf("inside clip = %v", c)
	}
	if c := img.NRGBAAt(28, 16); c.A != 0 {
		t.Errorf("outside clip = %v", c)
	}
	if c := img.NRGBAAt(28, 2); c != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("after clip end = %v", c)
	}
}

func TestBlendModes(t *testing.T) {
	gray := [4]float32{0.5, 0.5, 0.5, 1}
	for _, tc := range []struct {
		mode skeleton.BlendMode
		src  [4]float32
		want [4]float32
	}{
		{skeleton.BlendNormal, [4]float32{1, 0, 0, 1}, [4]float32{1, 0, 0, 1}},
		{skeleton.BlendNormal, [4]float32{0.5, 0, 0, 0.5}, [4]float32{0.75, 0.25, 0.25, 1}},
		{skeleton.BlendAdditive, [4]float32{0.5, 0, 0, 0.5}, [4]float32{1, 0.5, 0.5, 1}},
		{skeleton.BlendMultiply, [4]float32{1, 0, 0, 1}, [4]float32{0.5, 0, 0, 1}},
		{skeleton.BlendScreen, [4]float32{0.5, 0.5, 0.5, 1}, [4]float32{0.75, 0.75, 0.75, 1}},
	} {
		fb := NewFrameBuffer(1, 1)
		copy(fb.Color, gray[:])
		fb.blend(0, tc.src, tc.mode)
		for c := 0; c < 4; c++ {
			if math.Abs(float64(fb.Color[c]-tc.want[c])) > 1e-6 {
				t.Errorf("%v: got %v, want %v", tc.mode, fb.Color, tc.want)
				break
			}
		}
	}
}

func TestSampleTextureClamped(t *testing.T) {
	tex := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	tex.SetNRGBA(0, 0, color.NRGBA{255, 0, 0, 255})
	tex.SetNRGBA(1, 0, color.NRGBA{0, 0, 255, 255})
	for _, tc := range []struct {
		u       float64
		r, b, a float32
	}{
		{0, 1, 0, 1},
		{-5, 1, 0, 1},
		{1, 0, 1, 1},
		{0.5, 0.5, 0.5, 1},
	} {
		r, _, b, a := SampleTexture(tex, tc.u, 0.5)
		if math.Abs(float64(r-tc.r)) > 1e-6 || math.Abs(float64(b-tc.b)) > 1e-6 || a != tc.a {
			t.Errorf("u=%v: got %v %v %v", tc.u, r, b, a)
		}
	}
}

func TestFit(t *testing.T) {
	items := []skeleton.DrawItem{
		{Op: skeleton.OpClipStart, Vertices: []mgl32.Vec2{{-100, -100}}},
		quad(mgl32.Vec2{-1, 0}, mgl32.Vec2{2, 3}, mgl32.Vec4{1, 1, 1, 1}, 0),
	}
	b, ok := Fit(items)
	if !ok || b.Min != (mgl32.Vec2{-1, 0}) || b.Max != (mgl32.Vec2{2, 3}) {
		t.Errorf("Fit = %v %v", b, ok)
	}
	if _, ok := Fit(nil); ok {
		t.Error("Fit(nil) ok")
	}
}
