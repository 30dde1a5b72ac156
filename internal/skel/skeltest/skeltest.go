// Package skeltest builds small skeleton files and atlases for tests of the
// packages that consume decoded models.
package skeltest

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"skel-runtime/internal/atlas"
	"skel-runtime/internal/binreader"
)

var white = mgl32.Vec4{1, 1, 1, 1}

// Minimal returns a skeleton with bones root and child (x=10), one slot
// "slot" on child showing the 64x32 region "body", event "hit" and
// animation "walk" that rotates child from 0 to 90 degrees over one second
// and fires "hit" at 0.5.
func Minimal() []byte {
	w := &binreader.Writer{}

	w.String("cafe")
	w.String("4.0.64")
	w.Floats(-32, -16, 64, 32)
	w.Bool(false)

	w.Count(2)
	w.String("body")
	w.String("hit")

	w.Count(2)
	bone(w, "root", -1, 0)
	bone(w, "child", 0, 10)

	w.Count(1)
	w.String("slot")
	w.Count(1)
	w.Color(white)
	w.Int(-1)
	w.StringRef(1)
	w.Count(0)

	w.Count(0) // ik
	w.Count(0) // transform
	w.Count(0) // path

	w.Count(1) // default skin slots
	w.Count(0)
	w.Count(1)
	w.StringRef(1)
	w.StringRef(0)
	w.Byte(0) // region
	w.StringRef(1)
	w.Floats(0, 0, 0, 1, 1, 64, 32)
	w.Color(white)
	w.Count(0) // named skins

	w.Count(1)
	w.StringRef(2)
	w.Varint(7, false)
	w.Float(0.5)
	w.NullString()
	w.NullString()

	w.Count(1)
	w.String("walk")
	w.Count(0) // slot timelines
	w.Count(1)
	w.Count(1) // child
	w.Count(1)
	w.Byte(0) // rotate
	w.Count(2)
	w.Count(0)
	w.Floats(0, 0)
	w.Byte(0) // linear
	w.Floats(1, 90)
	w.Count(0) // ik
	w.Count(0) // transform
	w.Count(0) // path
	w.Count(0) // deform
	w.Count(0) // draw order
	w.Count(1)
	w.Float(0.5)
	w.Count(0)
	w.Varint(7, false)
	w.Float(0.5)
	w.Bool(false)

	return w.Bytes()
}

func bone(w *binreader.Writer, name string, parent int32, x float32) {
	w.String(name)
	if parent >= 0 {
		w.Varint(parent, true)
	}
	w.Floats(0, x, 0, 1, 1, 0, 0, 0)
	w.Count(0)
	w.Bool(false)
}

// Solid returns a w×h image filled with c.
func Solid(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

// Atlas packs an opaque red "body" region matching Minimal.
func Atlas(t testing.TB) *atlas.Packed {
	t.Helper()
	p, err := atlas.Pack([]atlas.Source{{Name: "body", Image: Solid(64, 32, color.NRGBA{255, 0, 0, 255})}}, atlas.Options{Padding: 1})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// WriteFile writes Minimal to dir/name.skel and returns the path.
func WriteFile(t testing.TB, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name+".skel")
	if err := os.WriteFile(path, Minimal(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
