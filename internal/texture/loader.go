package texture

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ftrvxmtrx/tga"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Extensions lists the image formats Load understands, in lookup priority:
// formats with alpha first.
var Extensions = []string{".png", ".webp", ".tga", ".bmp", ".jpg", ".jpeg"}

// Supported reports whether path has an extension Load can decode.
func Supported(path string) bool {
	return rank(path) >= 0
}

func rank(path string) int {
	ext := strings.ToLower(filepath.Ext(path))
	for i, e := range Extensions {
		if e == ext {
			return i
		}
	}
	return -1
}

// Load reads an image file and returns it as NRGBA.
func Load(path string) (*image.NRGBA, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}
	if !Supported(path) {
		return nil, fmt.Errorf("texture: unknown extension: %s", filepath.Ext(path))
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts any image to NRGBA with its origin at (0, 0). Images
// without an alpha channel come out opaque.
func ToNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	return dst
}
