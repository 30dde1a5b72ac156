package atlas

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"skel-runtime/internal/texture"
)

// WriteTable writes the region table:
//
//	# size 256 padding 2
//	body
//	  X: 0
//	  Y: 0
//	  W: 68
//	  H: 36
//
// Rectangles are the padded ones, in placement order.
func (p *Packed) WriteTable(w io.Writer) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# size %d padding %d\n", p.Size, p.Padding)
	for _, r := range p.Regions() {
		fmt.Fprintf(bw, "%s\n  X: %d\n  Y: %d\n  W: %d\n  H: %d\n", r.Name, r.X, r.Y, r.W, r.H)
	}
	return bw.Flush()
}

// SaveTable writes the region table to path.
func (p *Packed) SaveTable(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("atlas: create %s: %w", path, err)
	}
	defer f.Close()
	if err := p.WriteTable(f); err != nil {
		return fmt.Errorf("atlas: write %s: %w", path, err)
	}
	return f.Close()
}

// ReadTable parses a region table. The result has no canvas. Without a
// header comment Size and Padding are zero.
func ReadTable(r io.Reader) (*Packed, error) {
	p := &Packed{regions: make(map[string]Region)}
	var cur *Region
	flush := func() {
		if cur != nil {
			p.add(*cur)
			cur = nil
		}
	}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		trimmed := strings.TrimSpace(text)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "#"):
			var size, pad int
			if n, _ := fmt.Sscanf(trimmed, "# size %d padding %d", &size, &pad); n == 2 {
				p.Size, p.Padding = size, pad
			}
			continue
		case text[0] != ' ' && text[0] != '\t':
			flush()
			if _, dup := p.regions[trimmed]; dup {
				return nil, fmt.Errorf("atlas: table line %d: duplicate region %q", line, trimmed)
			}
			cur = &Region{Name: trimmed, Index: -1}
			continue
		}

		if cur == nil {
			return nil, fmt.Errorf("atlas: table line %d: key before region name", line)
		}
		key, val, ok := strings.Cut(trimmed, ":")
		if !ok {
			return nil, fmt.Errorf("atlas: table line %d: want key: value, got %q", line, trimmed)
		}
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return nil, fmt.Errorf("atlas: table line %d: %w", line, err)
		}
		switch strings.TrimSpace(key) {
		case "X":
			cur.X = n
		case "Y":
			cur.Y = n
		case "W":
			cur.W, cur.OrigW = n, n
		case "H":
			cur.H, cur.OrigH = n, n
		default:
			return nil, fmt.Errorf("atlas: table line %d: unknown key %q", line, key)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("atlas: read table: %w", err)
	}
	flush()

	for name, r := range p.regions {
		r.PageW, r.PageH = p.Size, p.Size
		p.regions[name] = r
	}
	return p, nil
}

// Load restores a packed atlas from its table and canvas image without
// packing again. A table without a header takes its size from the image.
func Load(tablePath, imagePath string) (*Packed, error) {
	f, err := os.Open(tablePath)
	if err != nil {
		return nil, fmt.Errorf("atlas: open %s: %w", tablePath, err)
	}
	defer f.Close()
	p, err := ReadTable(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, tablePath)
	}

	img, err := texture.Load(imagePath)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	if p.Size == 0 {
		p.Size = b.Dx()
		for name, r := range p.regions {
			r.PageW, r.PageH = p.Size, p.Size
			p.regions[name] = r
		}
	}
	if b.Dx() != p.Size || b.Dy() != p.Size {
		return nil, fmt.Errorf("atlas: %s is %dx%d, table says %d", imagePath, b.Dx(), b.Dy(), p.Size)
	}
	for _, r := range p.Regions() {
		if !r.PageRect().In(b) {
			return nil, fmt.Errorf("atlas: region %q %v outside %s", r.Name, r.PageRect(), imagePath)
		}
	}
	p.Canvas = img
	return p, nil
}
