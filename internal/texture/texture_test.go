package texture

import (
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/bmp"
)

func writeImage(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	switch filepath.Ext(path) {
	case ".png":
		err = png.Encode(f, img)
	case ".jpg":
		err = jpeg.Encode(f, img, nil)
	case ".bmp":
		err = bmp.Encode(f, img)
	}
	if err != nil {
		t.Fatal(err)
	}
}

func solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func TestIndexPrefersAlphaFormats(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "Body.jpg"), solid(4, 4, color.NRGBA{255, 0, 0, 255}))
	writeImage(t, filepath.Join(dir, "sub", "body.png"), solid(4, 4, color.NRGBA{0, 255, 0, 128}))
	writeImage(t, filepath.Join(dir, "arm.bmp"), solid(2, 3, color.NRGBA{0, 0, 255, 255}))
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	idx := BuildIndex(dir, filepath.Join(dir, "missing"))
	if idx.Len() != 2 {
		t.Fatalf("indexed %v", idx.Names())
	}
	path, ok := idx.ResolvePath(`images\BODY.tga`)
	if !ok || filepath.Ext(path) != ".png" {
		t.Errorf("body resolves to %q", path)
	}
}

func TestCacheLoadsOnce(t *testing.T) {
	dir := t.TempDir()
	writeImage(t, filepath.Join(dir, "arm.bmp"), solid(2, 3, color.NRGBA{0, 0, 255, 255}))
	c := NewCache(BuildIndex(dir))

	a := c.Resolve("arm")
	if a == nil {
		t.Fatal("arm not loaded")
	}
	if a.Bounds().Dx() != 2 || a.Bounds().Dy() != 3 {
		t.Errorf("bounds = %v", a.Bounds())
	}
	if got := a.NRGBAAt(1, 1); got != (color.NRGBA{0, 0, 255, 255}) {
		t.Errorf("pixel = %v", got)
	}
	if c.Resolve("arm") != a {
		t.Error("second resolve reloaded the image")
	}
	if _, err := c.Get("leg"); err == nil {
		t.Error("missing image resolved")
	}
}

func TestToNRGBAOpaqueAndOrigin(t *testing.T) {
	g := image.NewGray(image.Rect(5, 5, 7, 7))
	g.SetGray(5, 5, color.Gray{200})
	n := ToNRGBA(g)
	if n.Rect.Min != (image.Point{}) {
		t.Errorf("origin = %v", n.Rect.Min)
	}
	if got := n.NRGBAAt(0, 0); got != (color.NRGBA{200, 200, 200, 255}) {
		t.Errorf("pixel = %v", got)
	}
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.gif")
	if err := os.WriteFile(path, []byte("GIF89a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("gif loaded")
	}
}
