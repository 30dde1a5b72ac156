package atlas

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
)

// Packed is an immutable packing result: one square canvas and the padded
// rectangle of every source on it.
type Packed struct {
	Size    int
	Padding int
	Canvas  *image.NRGBA

	regions map[string]Region
	order   []string
}

func (p *Packed) add(r Region) {
	if p.regions == nil {
		p.regions = make(map[string]Region)
	}
	if _, dup := p.regions[r.Name]; !dup {
		p.order = append(p.order, r.Name)
	}
	p.regions[r.Name] = r
}

// Len returns the number of regions.
func (p *Packed) Len() int { return len(p.order) }

// Regions returns the padded regions in placement order.
func (p *Packed) Regions() []Region {
	out := make([]Region, 0, len(p.order))
	for _, n := range p.order {
		out = append(out, p.regions[n])
	}
	return out
}

// PaddedRect returns the rectangle reserved for name, padding included.
func (p *Packed) PaddedRect(name string) (image.Rectangle, bool) {
	r, ok := p.regions[name]
	if !ok {
		return image.Rectangle{}, false
	}
	return r.PageRect(), true
}

// FindRegion returns the unpadded image rectangle of name, ready for
// binding attachments.
func (p *Packed) FindRegion(name string) (Region, bool) {
	r, ok := p.regions[name]
	if !ok {
		return Region{}, false
	}
	pad := p.Padding
	r.X += pad
	r.Y += pad
	r.W = max(r.W-2*pad, 0)
	r.H = max(r.H-2*pad, 0)
	r.OrigW, r.OrigH = r.W, r.H
	return r, true
}

// PageImages returns the canvas as the single page of the atlas.
func (p *Packed) PageImages() []*image.NRGBA { return []*image.NRGBA{p.Canvas} }

// WriteImage encodes the canvas as PNG or WebP according to the extension
// of path.
func (p *Packed) WriteImage(path string) error {
	if p.Canvas == nil {
		return fmt.Errorf("atlas: no canvas to write")
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("atlas: create %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		err = png.Encode(f, p.Canvas)
	case ".webp":
		err = nativewebp.Encode(f, p.Canvas, nil)
	default:
		return fmt.Errorf("atlas: unsupported image format %q", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("atlas: encode %s: %w", path, err)
	}
	return f.Close()
}
