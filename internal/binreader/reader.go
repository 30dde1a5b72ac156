package binreader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrTruncated     = errors.New("binreader: unexpected end of buffer")
	ErrBadString     = errors.New("binreader: invalid utf-8 string")
	ErrRefOutOfRange = errors.New("binreader: string reference out of range")
)

// Reader is a forward-only big-endian cursor over a byte slice.
// The first failed read sticks: later reads return zero values and Err
// reports the original failure.
type Reader struct {
	data    []byte
	off     int
	err     error
	strings []string
}

// New returns a Reader positioned at the start of buf.
func New(buf []byte) *Reader {
	return &Reader{data: buf}
}

// Offset returns the current read position.
func (r *Reader) Offset() int { return r.off }

// Len returns the size of the underlying buffer.
func (r *Reader) Len() int { return len(r.data) }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.data) - r.off }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Fail records err as the sticky error unless one is already set.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w (offset %d)", err, r.off)
	}
}

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.off+n > len(r.data) {
		r.Fail(ErrTruncated)
		r.off = len(r.data)
		return false
	}
	return true
}

// Byte reads one unsigned byte.
func (r *Reader) Byte() byte {
	if !r.need(1) {
		return 0
	}
	b := r.data[r.off]
	r.off++
	return b
}

// Int8 reads one signed byte.
func (r *Reader) Int8() int8 { return int8(r.Byte()) }

// Bool reads one byte; any non-zero value is true.
func (r *Reader) Bool() bool { return r.Byte() != 0 }

// Short reads a big-endian int16.
func (r *Reader) Short() int16 {
	if !r.need(2) {
		return 0
	}
	v := int16(binary.BigEndian.Uint16(r.data[r.off:]))
	r.off += 2
	return v
}

// Int reads a big-endian int32.
func (r *Reader) Int() int32 {
	if !r.need(4) {
		return 0
	}
	v := int32(binary.BigEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

// Float reads a big-endian IEEE-754 float32.
func (r *Reader) Float() float32 {
	return math.Float32frombits(uint32(r.Int()))
}

// Floats reads n consecutive floats.
func (r *Reader) Floats(n int) []float32 {
	if !r.need(n * 4) {
		return nil
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = r.Float()
	}
	return out
}

// Bytes returns the next n bytes. The result aliases the buffer.
func (r *Reader) Bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

// Skip advances past n bytes.
func (r *Reader) Skip(n int) {
	if r.need(n) {
		r.off += n
	}
}

// Varint reads a variable-length integer: 7 payload bits per byte with the
// high bit as continuation flag, at most 5 bytes. With optimizePositive
// false the value is zig-zag decoded.
func (r *Reader) Varint(optimizePositive bool) int32 {
	var result uint32
	for shift := uint(0); shift <= 28; shift += 7 {
		b := r.Byte()
		if r.err != nil {
			return 0
		}
		result |= uint32(b&0x7F) << shift
		if b&0x80 == 0 {
			break
		}
	}
	if optimizePositive {
		return int32(result)
	}
	return int32(result>>1) ^ -int32(result&1)
}

// Count reads a positive varint used as an element count.
func (r *Reader) Count() int {
	n := int(r.Varint(true))
	if n < 0 {
		r.Fail(ErrTruncated)
		return 0
	}
	return n
}

// Shorts reads a varint count followed by that many unsigned shorts.
func (r *Reader) Shorts() []uint16 {
	n := r.Count()
	if !r.need(n * 2) {
		return nil
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(r.data[r.off:])
		r.off += 2
	}
	return out
}

// String reads a length-prefixed UTF-8 string. A stored length of 0 is the
// null string (ok false), 1 the empty string.
func (r *Reader) String() (string, bool) {
	n := r.Varint(true)
	if r.err != nil || n == 0 {
		return "", false
	}
	if n == 1 {
		return "", true
	}
	b := r.Bytes(int(n) - 1)
	if b == nil {
		return "", false
	}
	if !utf8.Valid(b) {
		r.Fail(ErrBadString)
		return "", false
	}
	return string(b), true
}

// SetStrings installs the table used by StringRef.
func (r *Reader) SetStrings(table []string) { r.strings = table }

// Strings returns the installed string table.
func (r *Reader) Strings() []string { return r.strings }

// StringRef reads an index into the string table. Index 0 is null.
func (r *Reader) StringRef() (string, bool) {
	idx := r.Varint(true)
	if r.err != nil || idx == 0 {
		return "", false
	}
	if idx < 0 || int(idx-1) >= len(r.strings) {
		r.Fail(fmt.Errorf("%w: %d of %d", ErrRefOutOfRange, idx, len(r.strings)))
		return "", false
	}
	return r.strings[idx-1], true
}

// Color reads an RGBA8888 int and returns its channels in [0,1].
func (r *Reader) Color() mgl32.Vec4 {
	return UnpackColor(uint32(r.Int()))
}

// UnpackColor splits an RGBA8888 value into float channels.
func UnpackColor(v uint32) mgl32.Vec4 {
	return mgl32.Vec4{
		float32(v>>24&0xFF) / 255,
		float32(v>>16&0xFF) / 255,
		float32(v>>8&0xFF) / 255,
		float32(v&0xFF) / 255,
	}
}

// PackColor is the inverse of UnpackColor.
func PackColor(c mgl32.Vec4) uint32 {
	var v uint32
	for i := 0; i < 4; i++ {
		ch := c[i]
		if ch < 0 {
			ch = 0
		} else if ch > 1 {
			ch = 1
		}
		v = v<<8 | uint32(ch*255+0.5)
	}
	return v
}
