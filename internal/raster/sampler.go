package raster

import (
	"image"
	"math"

	"skel-runtime/internal/mathutil"
)

// SampleTexture performs bilinear filtering with clamped UVs. The result is
// premultiplied RGBA in [0,1]. Accesses tex.Pix directly for performance.
func SampleTexture(tex *image.NRGBA, u, v float64) (r, g, b, a float32) {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()
	if w == 0 || h == 0 {
		return 0, 0, 0, 0
	}

	// Texel centers sit at half-integer positions.
	fx := mathutil.Clamp(u*float64(w)-0.5, 0, float64(w-1))
	fy := mathutil.Clamp(v*float64(h)-0.5, 0, float64(h-1))
	x0 := int(math.Floor(fx))
	y0 := int(math.Floor(fy))
	x1 := min(x0+1, w-1)
	y1 := min(y0+1, h-1)
	dx := float32(fx - float64(x0))
	dy := float32(fy - float64(y0))

	stride := tex.Stride
	pix := tex.Pix

	// Four texels
	i00 := y0*stride + x0*4
	i10 := y0*stride + x1*4
	i01 := y1*stride + x0*4
	i11 := y1*stride + x1*4

	w00 := (1 - dx) * (1 - dy)
	w10 := dx * (1 - dy)
	w01 := (1 - dx) * dy
	w11 := dx * dy

	for _, t := range [4]struct {
		i int
		w float32
	}{{i00, w00}, {i10, w10}, {i01, w01}, {i11, w11}} {
		ta := float32(pix[t.i+3]) / 255 * t.w
		r += float32(pix[t.i]) / 255 * ta
		g += float32(pix[t.i+1]) / 255 * ta
		b += float32(pix[t.i+2]) / 255 * ta
		a += ta
	}
	return r, g, b, a
}

