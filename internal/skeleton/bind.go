package skeleton

import (
	"fmt"

	"skel-runtime/internal/atlas"
)

// RegionSource looks up atlas regions by name.
type RegionSource interface {
	FindRegion(name string) (atlas.Region, bool)
}

// Bound reports whether BindAtlas has succeeded.
func (d *Data) Bound() bool { return d.bound.Load() }

// BindAtlas resolves the region of every region and mesh attachment in all
// skins. Either every attachment is bound or none is: a missing region
// returns ErrAtlasRegionMissing and leaves the data untouched. Binding
// happens at most once.
func (d *Data) BindAtlas(src RegionSource) error {
	if !d.bound.CompareAndSwap(false, true) {
		return ErrAlreadyBound
	}

	type binding struct {
		a      Attachment
		region *atlas.Region
	}
	var pending []binding
	resolved := make(map[string]*atlas.Region)

	find := func(a Attachment, path string) error {
		if path == "" {
			path = a.Name()
		}
		r, ok := resolved[path]
		if !ok {
			reg, found := src.FindRegion(path)
			if !found {
				return fmt.Errorf("%w: %q (attachment %q)", ErrAtlasRegionMissing, path, a.Name())
			}
			r = &reg
			resolved[path] = r
		}
		pending = append(pending, binding{a, r})
		return nil
	}

	for _, skin := range d.AllSkins() {
		for _, e := range skin.Entries() {
			var err error
			switch a := e.Attachment.(type) {
			case *RegionAttachment:
				err = find(a, a.Path)
			case *MeshAttachment:
				err = find(a, a.Path)
			}
			if err != nil {
				d.bound.Store(false)
				return err
			}
		}
	}

	for _, p := range pending {
		switch a := p.a.(type) {
		case *RegionAttachment:
			a.bind(p.region)
		case *MeshAttachment:
			a.bind(p.region)
		}
	}
	return nil
}
