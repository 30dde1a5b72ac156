package atlas

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"

	"golang.org/x/image/draw"

	"skel-runtime/internal/mathutil"
)

// ErrAtlasTooLarge means the sources do not fit in a MaxSize canvas.
var ErrAtlasTooLarge = errors.New("atlas: sources do not fit")

// DefaultMaxSize is used when Options.MaxSize is zero.
const DefaultMaxSize = 4096

// Source is one image to pack.
type Source struct {
	Name  string
	Image image.Image
}

// Options controls packing.
type Options struct {
	// Padding is added on every side of every image.
	Padding int
	// MaxSize bounds the canvas side.
	MaxSize int
}

// Pack places every source on one square power-of-two canvas. The result
// depends only on the names and sizes of the sources, not on their order.
func Pack(sources []Source, opts Options) (*Packed, error) {
	if opts.Padding < 0 {
		return nil, fmt.Errorf("atlas: negative padding %d", opts.Padding)
	}
	maxSize := opts.MaxSize
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	type item struct {
		src  Source
		w, h int // padded
	}
	items := make([]item, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	var area, side int
	for _, s := range sources {
		if seen[s.Name] {
			return nil, fmt.Errorf("atlas: duplicate source %q", s.Name)
		}
		seen[s.Name] = true
		if s.Image == nil {
			return nil, fmt.Errorf("atlas: source %q has no image", s.Name)
		}
		b := s.Image.Bounds()
		it := item{src: s, w: b.Dx() + 2*opts.Padding, h: b.Dy() + 2*opts.Padding}
		area += it.w * it.h
		side = max(side, it.w, it.h)
		items = append(items, it)
	}
	sort.SliceStable(items, func(i, j int) bool {
		mi, mj := max(items[i].w, items[i].h), max(items[j].w, items[j].h)
		if mi != mj {
			return mi > mj
		}
		return items[i].src.Name < items[j].src.Name
	})

	size := mathutil.NextPow2(max(side, int(math.Ceil(math.Sqrt(float64(area)))), 1))
	for ; size <= maxSize; size *= 2 {
		mr := newMaxRects(size)
		placed := make([]image.Rectangle, len(items))
		ok := true
		for i, it := range items {
			r, fits := mr.insert(it.w, it.h)
			if !fits {
				ok = false
				break
			}
			placed[i] = r
		}
		if !ok {
			continue
		}

		p := &Packed{
			Size:    size,
			Padding: opts.Padding,
			Canvas:  image.NewNRGBA(image.Rect(0, 0, size, size)),
			regions: make(map[string]Region, len(items)),
		}
		for i, it := range items {
			r := placed[i]
			inner := r.Inset(opts.Padding)
			b := it.src.Image.Bounds()
			draw.Draw(p.Canvas, inner, it.src.Image, b.Min, draw.Src)
			p.add(Region{
				Name:  it.src.Name,
				X:     r.Min.X,
				Y:     r.Min.Y,
				W:     r.Dx(),
				H:     r.Dy(),
				OrigW: r.Dx(),
				OrigH: r.Dy(),
				Index: -1,
				PageW: size,
				PageH: size,
			})
		}
		return p, nil
	}
	return nil, fmt.Errorf("%w: %d images, %d px² padded, max side %d", ErrAtlasTooLarge, len(items), area, maxSize)
}

// maxRects is a max-rects free list using the best-short-side-fit rule.
type maxRects struct {
	free []image.Rectangle
}

func newMaxRects(size int) *maxRects {
	return &maxRects{free: []image.Rectangle{image.Rect(0, 0, size, size)}}
}

func (m *maxRects) insert(w, h int) (image.Rectangle, bool) {
	best := -1
	bestShort, bestLong := math.MaxInt, math.MaxInt
	for i, f := range m.free {
		fw, fh := f.Dx(), f.Dy()
		if w > fw || h > fh {
			continue
		}
		short := min(fw-w, fh-h)
		long := max(fw-w, fh-h)
		if short < bestShort || (short == bestShort && long < bestLong) {
			best, bestShort, bestLong = i, short, long
		}
	}
	if best < 0 {
		return image.Rectangle{}, false
	}
	r := image.Rectangle{Min: m.free[best].Min, Max: m.free[best].Min.Add(image.Pt(w, h))}
	m.split(r)
	m.prune()
	return r, true
}

// split replaces every free rectangle overlapping used by the parts of it
// that lie outside used.
func (m *maxRects) split(used image.Rectangle) {
	out := make([]image.Rectangle, 0, len(m.free)+3)
	for _, f := range m.free {
		if !f.Overlaps(used) {
			out = append(out, f)
			continue
		}
		if used.Min.X > f.Min.X {
			out = append(out, image.Rect(f.Min.X, f.Min.Y, used.Min.X, f.Max.Y))
		}
		if used.Max.X < f.Max.X {
			out = append(out, image.Rect(used.Max.X, f.Min.Y, f.Max.X, f.Max.Y))
		}
		if used.Min.Y > f.Min.Y {
			out = append(out, image.Rect(f.Min.X, f.Min.Y, f.Max.X, used.Min.Y))
		}
		if used.Max.Y < f.Max.Y {
			out = append(out, image.Rect(f.Min.X, used.Max.Y, f.Max.X, f.Max.Y))
		}
	}
	m.free = out
}

// prune drops free rectangles contained in another one.
func (m *maxRects) prune() {
	out := make([]image.Rectangle, 0, len(m.free))
	for i, a := range m.free {
		contained := false
		for j, b := range m.free {
			if i == j || !a.In(b) {
				continue
			}
			// Keep the first of two identical rectangles.
			if a == b && i < j {
				continue
			}
			contained = true
			break
		}
		if !contained {
			out = append(out, a)
		}
	}
	m.free = out
}
