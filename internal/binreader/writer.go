package binreader

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Writer produces buffers in the layout Reader consumes. It is used to build
// fixtures; it is not a full skeleton encoder.
type Writer struct {
	buf []byte
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) Byte(b byte) { w.buf = append(w.buf, b) }

func (w *Writer) Bool(v bool) {
	if v {
		w.Byte(1)
	} else {
		w.Byte(0)
	}
}

func (w *Writer) Short(v int16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, uint16(v))
}

func (w *Writer) Int(v int32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, uint32(v))
}

func (w *Writer) Float(v float32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, math.Float32bits(v))
}

func (w *Writer) Floats(vs ...float32) {
	for _, v := range vs {
		w.Float(v)
	}
}

// Varint writes v in the variable-length form read by Reader.Varint.
func (w *Writer) Varint(v int32, optimizePositive bool) {
	u := uint32(v)
	if !optimizePositive {
		u = uint32((v << 1) ^ (v >> 31))
	}
	for i := 0; i < 4 && u >= 0x80; i++ {
		w.Byte(byte(u&0x7F) | 0x80)
		u >>= 7
	}
	w.Byte(byte(u))
}

// Count writes a non-negative count.
func (w *Writer) Count(n int) { w.Varint(int32(n), true) }

func (w *Writer) Shorts(vs ...uint16) {
	w.Count(len(vs))
	for _, v := range vs {
		w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	}
}

// String writes a non-null string.
func (w *Writer) String(s string) {
	w.Count(len(s) + 1)
	w.buf = append(w.buf, s...)
}

// NullString writes the null string marker.
func (w *Writer) NullString() { w.Byte(0) }

// StringRef writes a 1-based index into the string table; 0 is null.
func (w *Writer) StringRef(idx int) { w.Count(idx) }

func (w *Writer) Color(c mgl32.Vec4) { w.Int(int32(PackColor(c))) }
