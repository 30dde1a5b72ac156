package atlas

import (
	"bufio"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"skel-runtime/internal/texture"
)

// Page is one texture of an atlas description.
type Page struct {
	Name      string
	Width     int
	Height    int
	Format    string
	MinFilter string
	MagFilter string
	Repeat    string
	PMA       bool
	Image     *image.NRGBA
}

// Description is a parsed text atlas: pages and the regions on them.
type Description struct {
	Pages   []*Page
	Regions []Region
	byName  map[string]int
}

// FindRegion returns the first region called name.
func (d *Description) FindRegion(name string) (Region, bool) {
	i, ok := d.byName[name]
	if !ok {
		return Region{}, false
	}
	return d.Regions[i], true
}

// ParseDescription reads the page/region text format. A page starts with its
// image file name, at the beginning of input or after a blank line, followed
// by page keys; every other bare line names a region on the current page.
// Both the legacy keys (xy, size, orig, offset) and the compact ones
// (bounds, offsets) are accepted.
func ParseDescription(r io.Reader) (*Description, error) {
	d := &Description{byName: make(map[string]int)}
	var page *Page
	var region *Region
	newPage := true

	flush := func() {
		if region == nil {
			return
		}
		if region.OrigW == 0 && region.OrigH == 0 {
			region.OrigW, region.OrigH = region.W, region.H
		}
		if _, dup := d.byName[region.Name]; !dup {
			d.byName[region.Name] = len(d.Regions)
		}
		d.Regions = append(d.Regions, *region)
		region = nil
	}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			flush()
			newPage = true
			continue
		}
		key, val, isKey := strings.Cut(text, ":")
		if !isKey {
			flush()
			if newPage {
				page = &Page{Name: text}
				d.Pages = append(d.Pages, page)
				newPage = false
				continue
			}
			region = &Region{Name: text, Page: len(d.Pages) - 1, Index: -1, PageW: page.Width, PageH: page.Height}
			continue
		}
		newPage = false
		if page == nil {
			return nil, fmt.Errorf("atlas: description line %d: key before page", line)
		}
		key = strings.TrimSpace(key)
		vals := splitValues(val)

		var err error
		if region == nil {
			err = pageKey(page, key, vals)
		} else {
			err = regionKey(region, key, vals)
		}
		if err != nil {
			return nil, fmt.Errorf("atlas: description line %d: %w", line, err)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("atlas: read description: %w", err)
	}
	flush()
	return d, nil
}

func splitValues(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func ints(vals []string, n int) ([]int, error) {
	if len(vals) < n {
		return nil, fmt.Errorf("want %d values, got %d", n, len(vals))
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		v, err := strconv.Atoi(vals[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func pageKey(p *Page, key string, vals []string) error {
	switch key {
	case "size":
		v, err := ints(vals, 2)
		if err != nil {
			return err
		}
		p.Width, p.Height = v[0], v[1]
	case "format":
		p.Format = vals[0]
	case "filter":
		p.MinFilter = vals[0]
		p.MagFilter = vals[0]
		if len(vals) > 1 {
			p.MagFilter = vals[1]
		}
	case "repeat":
		p.Repeat = vals[0]
	case "pma":
		p.PMA = vals[0] == "true"
	}
	return nil
}

var regionArity = map[string]int{"xy": 2, "size": 2, "orig": 2, "offset": 2, "index": 1, "bounds": 4, "offsets": 4}

func regionKey(r *Region, key string, vals []string) error {
	if key == "rotate" {
		switch vals[0] {
		case "true", "90":
			r.Rotate = true
		case "false", "0":
			r.Rotate = false
		default:
			return fmt.Errorf("unsupported rotation %q", vals[0])
		}
		return nil
	}
	n, ok := regionArity[key]
	if !ok {
		// split, pad and custom values carry nothing the runtime uses.
		return nil
	}
	v, err := ints(vals, n)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	switch key {
	case "xy":
		r.X, r.Y = v[0], v[1]
	case "size":
		r.W, r.H = v[0], v[1]
	case "bounds":
		r.X, r.Y, r.W, r.H = v[0], v[1], v[2], v[3]
	case "orig":
		r.OrigW, r.OrigH = v[0], v[1]
	case "offset":
		r.OffsetX, r.OffsetY = v[0], v[1]
	case "offsets":
		r.OffsetX, r.OffsetY, r.OrigW, r.OrigH = v[0], v[1], v[2], v[3]
	case "index":
		r.Index = v[0]
	}
	return nil
}

// LoadDescription parses an atlas description and loads its page images
// from the same directory.
func LoadDescription(path string) (*Description, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("atlas: open %s: %w", path, err)
	}
	defer f.Close()
	d, err := ParseDescription(f)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}

	dir := filepath.Dir(path)
	for pi, p := range d.Pages {
		img, err := texture.Load(filepath.Join(dir, p.Name))
		if err != nil {
			return nil, err
		}
		p.Image = img
		if p.Width == 0 || p.Height == 0 {
			p.Width, p.Height = img.Bounds().Dx(), img.Bounds().Dy()
			for i := range d.Regions {
				if d.Regions[i].Page == pi {
					d.Regions[i].PageW, d.Regions[i].PageH = p.Width, p.Height
				}
			}
		}
	}
	return d, nil
}

// PageImages returns the loaded page images in page order.
func (d *Description) PageImages() []*image.NRGBA {
	out := make([]*image.NRGBA, len(d.Pages))
	for i, p := range d.Pages {
		out[i] = p.Image
	}
	return out
}
