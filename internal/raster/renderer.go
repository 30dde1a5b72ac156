package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"skel-runtime/internal/skeleton"
)

// Bounds is a world-space framing rectangle.
type Bounds struct {
	Min, Max mgl32.Vec2
}

// Options controls framing and output size.
type Options struct {
	Size        int // output size before supersampling
	Supersample int
	Margin      int // in output pixels
	Background  color.NRGBA

	// Frame, when set, replaces the draw list's own bounds so a sequence
	// of frames keeps one camera.
	Frame *Bounds
}

const defaultSize = 512

// DefaultMargin is the framing margin the tools use.
const DefaultMargin = 16

// RenderSize is the side of the image Render produces.
func (o Options) RenderSize() int {
	size, ss := o.Size, o.Supersample
	if size <= 0 {
		size = defaultSize
	}
	if ss <= 0 {
		ss = 1
	}
	return size * ss
}

// Fit returns the bounds of every triangle in items.
func Fit(items []skeleton.DrawItem) (Bounds, bool) {
	var b Bounds
	ok := false
	for _, it := range items {
		if it.Op != skeleton.OpTriangles {
			continue
		}
		for _, v := range it.Vertices {
			if !ok {
				b.Min, b.Max, ok = v, v, true
				continue
			}
			b.Min = mgl32.Vec2{min(b.Min[0], v[0]), min(b.Min[1], v[1])}
			b.Max = mgl32.Vec2{max(b.Max[0], v[0]), max(b.Max[1], v[1])}
		}
	}
	return b, ok
}

// Union grows b to hold o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		Min: mgl32.Vec2{min(b.Min[0], o.Min[0]), min(b.Min[1], o.Min[1])},
		Max: mgl32.Vec2{max(b.Max[0], o.Max[0]), max(b.Max[1], o.Max[1])},
	}
}

// view maps world space (y up) to a square framebuffer (y down), fitting
// the larger side of the bounds inside the margin.
type view struct {
	cx, cy float64
	scale  float64
	half   float64
}

func newView(b Bounds, renderSize, margin int) view {
	spanX := float64(b.Max[0] - b.Min[0])
	spanY := float64(b.Max[1] - b.Min[1])
	span := math.Max(math.Max(spanX, spanY), 0.001)
	inner := float64(renderSize - 2*margin)
	if inner <= 0 {
		inner = float64(renderSize)
	}
	return view{
		cx:    float64(b.Min[0]+b.Max[0]) / 2,
		cy:    float64(b.Min[1]+b.Max[1]) / 2,
		scale: inner / span,
		half:  float64(renderSize) / 2,
	}
}

func (v view) project(p mgl32.Vec2) (float64, float64) {
	return (float64(p[0])-v.cx)*v.scale + v.half, v.half - (float64(p[1])-v.cy)*v.scale
}

// Render rasterizes a draw list onto a RenderSize square image. pages are
// indexed by DrawItem.Page; a missing page draws the flat tint.
func Render(items []skeleton.DrawItem, pages []*image.NRGBA, opts Options) *image.NRGBA {
	renderSize := opts.RenderSize()
	ss := max(opts.Supersample, 1)
	margin := max(opts.Margin, 0) * ss

	fb := NewFrameBuffer(renderSize, renderSize)
	if opts.Background.A > 0 {
		fb.Fill(opts.Background)
	}

	bounds, ok := Fit(items)
	if opts.Frame != nil {
		bounds, ok = *opts.Frame, true
	}
	if !ok {
		return fb.Image()
	}
	vw := newView(bounds, renderSize, margin)

	for _, it := range items {
		switch it.Op {
		case skeleton.OpClipStart:
			poly := make([]Vertex, len(it.Vertices))
			for i, p := range it.Vertices {
				poly[i].X, poly[i].Y = vw.project(p)
			}
			fb.SetClip(poly)
		case skeleton.OpClipEnd:
			fb.ClearClip()
		case skeleton.OpTriangles:
			drawTriangles(fb, vw, it, page(pages, it.Page))
		}
	}
	return fb.Image()
}

func page(pages []*image.NRGBA, i int) *image.NRGBA {
	if i < 0 || i >= len(pages) {
		return nil
	}
	return pages[i]
}

func drawTriangles(fb *FrameBuffer, vw view, it skeleton.DrawItem, tex *image.NRGBA) {
	nv := len(it.Vertices)
	hasUV := tex != nil && len(it.UVs) >= nv
	if !hasUV {
		tex = nil
	}
	tint := [4]float32{it.Color[0], it.Color[1], it.Color[2], it.Color[3]}

	for t := 0; t+2 < len(it.Triangles); t += 3 {
		var tri [3]Vertex
		valid := true
		for k := 0; k < 3; k++ {
			i := int(it.Triangles[t+k])
			if i >= nv {
				valid = false
				break
			}
			tri[k].X, tri[k].Y = vw.project(it.Vertices[i])
			if hasUV {
				tri[k].U, tri[k].V = float64(it.UVs[i][0]), float64(it.UVs[i][1])
			}
		}
		if valid {
			RasterizeTriangle(fb, tri, tex, tint, it.Blend)
		}
	}
}
