package skel

import (
	"github.com/go-gl/mathgl/mgl32"

	"skel-runtime/internal/binreader"
)

var white = mgl32.Vec4{1, 1, 1, 1}

// String table shared by every fixture. References are 1-based.
const (
	refBody = 1
	refHit  = 2
	refAlt  = 3
)

// fixture writes a small skeleton: bones root and child (x=10, length 5
// unless overridden), slots on the
// child, a 64x32 region "body" in the default skin, event "hit" and
// animation "walk" rotating the child from 0 to 16380 degrees over one
// second and firing "hit" at 0.5. Hooks replace individual sections.
type fixture struct {
	nonessential bool
	childParent  int32
	childX       float32
	childLength  float32
	slots        []string

	defaultSkin   func(w *binreader.Writer)
	namedSkins    func(w *binreader.Writer)
	slotTimelines func(w *binreader.Writer)
	boneTimelines func(w *binreader.Writer)
	deform        func(w *binreader.Writer)
	drawOrder     func(w *binreader.Writer)
}

func newFixture() *fixture {
	return &fixture{slots: []string{"slot"}, childX: 10, childLength: 5}
}

func (f *fixture) bytes() []byte {
	w := &binreader.Writer{}

	w.String("f00dfeed")
	w.String("4.0.64")
	w.Floats(-32, -16, 64, 32)
	w.Bool(f.nonessential)
	if f.nonessential {
		w.Float(30)
		w.String("./images/")
		w.NullString()
	}

	w.Count(3)
	w.String("body")
	w.String("hit")
	w.String("alt")

	w.Count(2)
	f.bone(w, "root", -1, 0, 0)
	f.bone(w, "child", f.childParent, f.childX, f.childLength)

	w.Count(len(f.slots))
	for _, name := range f.slots {
		w.String(name)
		w.Count(1)
		w.Color(white)
		w.Int(-1)
		if name == "slot" {
			w.StringRef(refBody)
		} else {
			w.StringRef(0)
		}
		w.Count(0)
	}

	w.Count(0) // ik
	w.Count(0) // transform
	w.Count(0) // path

	if f.defaultSkin != nil {
		f.defaultSkin(w)
	} else {
		w.Count(1)
		w.Count(0) // slot
		w.Count(1)
		w.StringRef(refBody)
		writeRegion(w, 0, 64, 32)
	}
	if f.namedSkins != nil {
		f.namedSkins(w)
	} else {
		w.Count(0)
	}

	w.Count(1)
	w.StringRef(refHit)
	w.Varint(7, false)
	w.Float(0.5)
	w.NullString()
	w.NullString()

	w.Count(1)
	w.String("walk")
	section(w, f.slotTimelines)
	if f.boneTimelines != nil {
		f.boneTimelines(w)
	} else {
		w.Count(1)
		w.Count(1) // child
		w.Count(1)
		writeCurve1(w, 0, [][2]float32{{0, 0}, {1, 16380}}, nil)
	}
	w.Count(0) // ik
	w.Count(0) // transform
	w.Count(0) // path
	section(w, f.deform)
	section(w, f.drawOrder)

	w.Count(1)
	w.Float(0.5)
	w.Count(0)
	w.Varint(-9, false)
	w.Float(1.5)
	w.Bool(false)

	return w.Bytes()
}

func section(w *binreader.Writer, fn func(*binreader.Writer)) {
	if fn == nil {
		w.Count(0)
		return
	}
	fn(w)
}

func (f *fixture) bone(w *binreader.Writer, name string, parent int32, x, length float32) {
	w.String(name)
	if parent >= 0 {
		w.Varint(parent, true)
	}
	w.Floats(0, x, 0, 1, 1, 0, 0, length)
	w.Count(0) // mode
	w.Bool(false)
	if f.nonessential {
		w.Color(mgl32.Vec4{1, 0, 0, 1})
	}
}

// writeRegion writes a region attachment whose name is the skin key.
func writeRegion(w *binreader.Writer, path int, width, height float32) {
	w.StringRef(0)
	w.Byte(0)
	w.StringRef(path)
	w.Floats(0, 0, 0, 1, 1, width, height)
	w.Color(white)
}

// writeCurve1 writes a single-component bone timeline of type kind with
// linear curves, or bezier curves where handles[i] is given for key i.
func writeCurve1(w *binreader.Writer, kind byte, keys [][2]float32, handles map[int][4]float32) {
	w.Byte(kind)
	w.Count(len(keys))
	w.Count(len(handles))
	for i, k := range keys {
		w.Floats(k[0], k[1])
		if i == len(keys)-1 {
			break
		}
		if h, ok := handles[i]; ok {
			w.Byte(curveBezier)
			w.Floats(h[0], h[1], h[2], h[3])
		} else {
			w.Byte(curveLinear)
		}
	}
}
