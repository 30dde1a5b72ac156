package atlas

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// Region is a named rectangle on an atlas page.
//
// W and H are the size of the stored content before rotation; a rotated
// region occupies H×W pixels on the page. OrigW/OrigH are the size of the
// source image before whitespace stripping and OffsetX/OffsetY locate the
// content inside it (bottom-left origin).
type Region struct {
	Name    string
	Page    int
	X, Y    int
	W, H    int
	OrigW   int
	OrigH   int
	OffsetX int
	OffsetY int
	Rotate  bool
	Index   int
	PageW   int
	PageH   int
}

// PageRect is the region's footprint on its page.
func (r Region) PageRect() image.Rectangle {
	w, h := r.W, r.H
	if r.Rotate {
		w, h = h, w
	}
	return image.Rect(r.X, r.Y, r.X+w, r.Y+h)
}

// UV returns the footprint corners normalized to the page: (u, v) top-left
// and (u2, v2) bottom-right, v growing downward.
func (r Region) UV() (uv, uv2 mgl32.Vec2) {
	if r.PageW <= 0 || r.PageH <= 0 {
		return mgl32.Vec2{}, mgl32.Vec2{}
	}
	rect := r.PageRect()
	pw, ph := float32(r.PageW), float32(r.PageH)
	return mgl32.Vec2{float32(rect.Min.X) / pw, float32(rect.Min.Y) / ph},
		mgl32.Vec2{float32(rect.Max.X) / pw, float32(rect.Max.Y) / ph}
}

// MapUV converts a content coordinate (s right, t up, both in [0,1]) into a
// page-normalized coordinate.
func (r Region) MapUV(s, t float32) mgl32.Vec2 {
	uv, uv2 := r.UV()
	if r.Rotate {
		// Stored rotated 90° clockwise: content up runs along page +x,
		// content right along page +y.
		return mgl32.Vec2{uv[0] + t*(uv2[0]-uv[0]), uv[1] + s*(uv2[1]-uv[1])}
	}
	return mgl32.Vec2{uv[0] + s*(uv2[0]-uv[0]), uv[1] + (1-t)*(uv2[1]-uv[1])}
}
