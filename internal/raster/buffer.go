package raster

import (
	"image"
	"image/color"
)

// FrameBuffer holds the rendering target as flat slices for cache locality.
// Color is premultiplied RGBA in [0,1].
type FrameBuffer struct {
	Width  int
	Height int
	Color  []float32 // RGBA interleaved, len = W*H*4
	Clip   []bool    // stencil, nil while no clip is active
}

// NewFrameBuffer allocates a transparent color buffer.
func NewFrameBuffer(w, h int) *FrameBuffer {
	return &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]float32, w*h*4),
	}
}

// Fill sets every pixel to c.
func (fb *FrameBuffer) Fill(c color.NRGBA) {
	a := float32(c.A) / 255
	px := [4]float32{
		float32(c.R) / 255 * a,
		float32(c.G) / 255 * a,
		float32(c.B) / 255 * a,
		a,
	}
	for i := 0; i < len(fb.Color); i += 4 {
		copy(fb.Color[i:i+4], px[:])
	}
}

// Image converts the buffer to straight alpha.
func (fb *FrameBuffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	for i := 0; i < len(fb.Color); i += 4 {
		a := fb.Color[i+3]
		if a <= 0 {
			continue
		}
		inv := 1 / a
		img.Pix[i] = clamp255(fb.Color[i] * inv * 255)
		img.Pix[i+1] = clamp255(fb.Color[i+1] * inv * 255)
		img.Pix[i+2] = clamp255(fb.Color[i+2] * inv * 255)
		img.Pix[i+3] = clamp255(a * 255)
	}
	return img
}

func clamp255(v float32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
