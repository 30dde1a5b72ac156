package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// AlphaBounds returns the smallest rectangle holding every pixel with
// non-zero alpha.
func AlphaBounds(img *image.NRGBA) (image.Rectangle, bool) {
	b := img.Bounds()
	r := image.Rectangle{}
	found := false
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		for x := b.Min.X; x < b.Max.X; x, off = x+1, off+4 {
			if img.Pix[off+3] == 0 {
				continue
			}
			px := image.Rect(x, y, x+1, y+1)
			if !found {
				r, found = px, true
			} else {
				r = r.Union(px)
			}
		}
	}
	return r, found
}

// CropAndCenter crops to the non-transparent content, scales it so its
// larger side fills fillRatio of a size×size canvas and centers it. A fully
// transparent image yields an empty canvas.
func CropAndCenter(img *image.NRGBA, size int, fillRatio float64) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, size, size))
	r, ok := AlphaBounds(img)
	if !ok || size <= 0 {
		return canvas
	}
	if fillRatio <= 0 || fillRatio > 1 {
		fillRatio = 1
	}

	cropped := img.SubImage(r).(*image.NRGBA)
	w, h := fitSize(r.Dx(), r.Dy(), float64(size)*fillRatio)
	scaled := scale(cropped, w, h)

	off := image.Pt((size-w)/2, (size-h)/2)
	draw.Draw(canvas, scaled.Bounds().Add(off), scaled, image.Point{}, draw.Src)
	return canvas
}
