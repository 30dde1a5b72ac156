package raster

import (
	"image"
	"math"
	"slices"

	"skel-runtime/internal/skeleton"
)

// Vertex is a screen-space position with its page UV.
type Vertex struct {
	X, Y float64
	U, V float64
}

// edge is twice the signed area of (a, b, p).
func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// owns breaks ties for pixel centers lying exactly on an edge. Reversing
// the edge flips the answer, so two triangles sharing it never both draw
// the pixel.
func owns(ax, ay, bx, by float64) bool {
	dy := by - ay
	return dy < 0 || (dy == 0 && bx-ax > 0)
}

func covers(w float64, ax, ay, bx, by float64) bool {
	return w > 0 || (w == 0 && owns(ax, ay, bx, by))
}

// RasterizeTriangle fills one triangle. tex may be nil, in which case the
// tint alone is drawn. tint is straight RGBA.
//
// This is the HOT PATH: no allocation inside the pixel loop.
func RasterizeTriangle(fb *FrameBuffer, v [3]Vertex, tex *image.NRGBA, tint [4]float32, mode skeleton.BlendMode) {
	area := edge(v[0].X, v[0].Y, v[1].X, v[1].Y, v[2].X, v[2].Y)
	if area > -1e-12 && area < 1e-12 {
		return
	}
	if area < 0 {
		v[1], v[2] = v[2], v[1]
		area = -area
	}
	invArea := 1.0 / area

	// Bounding box
	minX := int(math.Floor(math.Min(math.Min(v[0].X, v[1].X), v[2].X)))
	maxX := int(math.Ceil(math.Max(math.Max(v[0].X, v[1].X), v[2].X)))
	minY := int(math.Floor(math.Min(math.Min(v[0].Y, v[1].Y), v[2].Y)))
	maxY := int(math.Ceil(math.Max(math.Max(v[0].Y, v[1].Y), v[2].Y)))
	minX = max(minX, 0)
	minY = max(minY, 0)
	maxX = min(maxX, fb.Width-1)
	maxY = min(maxY, fb.Height-1)
	if minX > maxX || minY > maxY {
		return
	}

	// Premultiplied tint.
	tr, tg, tb, ta := tint[0]*tint[3], tint[1]*tint[3], tint[2]*tint[3], tint[3]

	for sy := minY; sy <= maxY; sy++ {
		py := float64(sy) + 0.5
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			px := float64(sx) + 0.5
			w0 := edge(v[1].X, v[1].Y, v[2].X, v[2].Y, px, py)
			w1 := edge(v[2].X, v[2].Y, v[0].X, v[0].Y, px, py)
			w2 := edge(v[0].X, v[0].Y, v[1].X, v[1].Y, px, py)
			if !covers(w0, v[1].X, v[1].Y, v[2].X, v[2].Y) ||
				!covers(w1, v[2].X, v[2].Y, v[0].X, v[0].Y) ||
				!covers(w2, v[0].X, v[0].Y, v[1].X, v[1].Y) {
				continue
			}
			idx := rowOff + sx
			if fb.Clip != nil && !fb.Clip[idx] {
				continue
			}

			src := [4]float32{tr, tg, tb, ta}
			if tex != nil {
				b0, b1, b2 := w0*invArea, w1*invArea, w2*invArea
				u := b0*v[0].U + b1*v[1].U + b2*v[2].U
				vv := b0*v[0].V + b1*v[1].V + b2*v[2].V
				cr, cg, cb, ca := SampleTexture(tex, u, vv)
				src = [4]float32{cr * tr, cg * tg, cb * tb, ca * ta}
			}
			if src[3] <= 0 && mode != skeleton.BlendAdditive {
				continue
			}
			fb.blend(idx*4, src, mode)
		}
	}
}

// blend composites premultiplied src over the pixel at offset i.
func (fb *FrameBuffer) blend(i int, src [4]float32, mode skeleton.BlendMode) {
	d := fb.Color[i : i+4 : i+4]
	sa, da := src[3], d[3]
	switch mode {
	case skeleton.BlendAdditive:
		for c := 0; c < 3; c++ {
			d[c] = min(d[c]+src[c], 1)
		}
		d[3] = sa + da*(1-sa)
	case skeleton.BlendMultiply:
		for c := 0; c < 3; c++ {
			d[c] = src[c]*d[c] + src[c]*(1-da) + d[c]*(1-sa)
		}
		d[3] = sa + da*(1-sa)
	case skeleton.BlendScreen:
		for c := 0; c < 3; c++ {
			d[c] = src[c] + d[c]*(1-src[c])
		}
		d[3] = sa + da*(1-sa)
	default:
		for c := 0; c < 4; c++ {
			d[c] = src[c] + d[c]*(1-sa)
		}
	}
}

// SetClip installs a stencil covering the polygon poly (even-odd rule,
// tested at pixel centers). A polygon with fewer than three points clips
// everything away.
func (fb *FrameBuffer) SetClip(poly []Vertex) {
	clip := make([]bool, fb.Width*fb.Height)
	fb.Clip = clip
	if len(poly) < 3 {
		return
	}
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range poly {
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	y0 := max(int(math.Floor(minY)), 0)
	y1 := min(int(math.Ceil(maxY)), fb.Height-1)

	xs := make([]float64, 0, len(poly))
	for sy := y0; sy <= y1; sy++ {
		py := float64(sy) + 0.5
		xs = xs[:0]
		for i := range poly {
			a, b := poly[i], poly[(i+1)%len(poly)]
			if (a.Y <= py) == (b.Y <= py) {
				continue
			}
			xs = append(xs, a.X+(py-a.Y)*(b.X-a.X)/(b.Y-a.Y))
		}
		slices.Sort(xs)
		for k := 0; k+1 < len(xs); k += 2 {
			// Pixel centers inside [xs[k], xs[k+1]).
			start := max(int(math.Ceil(xs[k]-0.5)), 0)
			end := min(int(math.Ceil(xs[k+1]-0.5)), fb.Width)
			for sx := start; sx < end; sx++ {
				clip[sy*fb.Width+sx] = true
			}
		}
	}
}

// ClearClip removes the stencil.
func (fb *FrameBuffer) ClearClip() { fb.Clip = nil }

