package postprocess

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample scales img so its larger side becomes targetSize, filtering in
// premultiplied alpha so transparent edges keep no dark halo. Images already
// small enough are returned as is.
func Downsample(img *image.NRGBA, targetSize int) *image.NRGBA {
	b := img.Bounds()
	if targetSize <= 0 || (b.Dx() <= targetSize && b.Dy() <= targetSize) {
		return img
	}
	w, h := fitSize(b.Dx(), b.Dy(), float64(targetSize))
	return scale(img, w, h)
}

// fitSize scales (w, h) so the larger side becomes side, never below 1.
func fitSize(w, h int, side float64) (int, int) {
	f := side / float64(max(w, h))
	return max(int(float64(w)*f+0.5), 1), max(int(float64(h)*f+0.5), 1)
}

// scale resizes with CatmullRom (approximates Lanczos) in premultiplied space.
func scale(img *image.NRGBA, w, h int) *image.NRGBA {
	premul := image.NewRGBA(image.Rect(0, 0, img.Bounds().Dx(), img.Bounds().Dy()))
	draw.Draw(premul, premul.Bounds(), img, img.Bounds().Min, draw.Src)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), premul, premul.Bounds(), draw.Src, nil)
	return unpremultiply(dst)
}

func unpremultiply(src *image.RGBA) *image.NRGBA {
	b := src.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			si := src.PixOffset(x, y)
			di := out.PixOffset(x, y)
			a := float64(src.Pix[si+3])
			if a > 1 {
				inv := 255.0 / a
				out.Pix[di] = clamp8(float64(src.Pix[si]) * inv)
				out.Pix[di+1] = clamp8(float64(src.Pix[si+1]) * inv)
				out.Pix[di+2] = clamp8(float64(src.Pix[si+2]) * inv)
			}
			out.Pix[di+3] = src.Pix[si+3]
		}
	}
	return out
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
