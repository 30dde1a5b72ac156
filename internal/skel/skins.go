package skel

import (
	"github.com/go-gl/mathgl/mgl32"

	"skel-runtime/internal/skeleton"
)

func (d *decoder) skins() error {
	def, slots, err := d.skin(true)
	if err != nil {
		return err
	}
	d.data.DefaultSkin = def
	// The default skin takes skin index 0 whenever it lists slots, even if
	// every attachment in it was skipped.
	if slots > 0 {
		d.skinCount = 1
	}

	n := d.count()
	d.data.Skins = make([]*skeleton.Skin, 0, n)
	for i := 0; i < n; i++ {
		s, _, err := d.skin(false)
		if err != nil {
			return err
		}
		d.data.Skins = append(d.data.Skins, s)
	}
	d.skinCount += n
	return nil
}

// skin reads one skin and returns it with its slot count. The default skin
// is written as a bare slot count; a count of zero means it carries no
// attachments.
func (d *decoder) skin(isDefault bool) (*skeleton.Skin, int, error) {
	r := d.r
	var skin *skeleton.Skin
	var slotCount int
	if isDefault {
		skin = skeleton.NewSkin(skeleton.DefaultSkinName)
		slotCount = d.count()
	} else {
		name, ok := r.StringRef()
		if err := d.check(); err != nil {
			return nil, 0, err
		}
		if !ok {
			return nil, 0, d.fail(ErrMalformedBuffer, "skin without a name")
		}
		skin = skeleton.NewSkin(name)

		nb := d.count()
		skin.Bones = make([]int, 0, nb)
		for i := 0; i < nb; i++ {
			b, err := d.index(len(d.data.Bones), "skin bone")
			if err != nil {
				return nil, 0, err
			}
			skin.Bones = append(skin.Bones, b)
		}
		for _, c := range []struct {
			n    int
			what string
		}{{d.ikCount, "skin ik constraint"}, {d.transformCount, "skin transform constraint"}, {d.pathCount, "skin path constraint"}} {
			k := d.count()
			for i := 0; i < k; i++ {
				if _, err := d.index(c.n, c.what); err != nil {
					return nil, 0, err
				}
			}
		}
		slotCount = d.count()
	}

	for i := 0; i < slotCount; i++ {
		slot, err := d.index(len(d.data.Slots), "skin slot")
		if err != nil {
			return nil, 0, err
		}
		n := d.count()
		for j := 0; j < n; j++ {
			key, ok := r.StringRef()
			if err := d.check(); err != nil {
				return nil, 0, err
			}
			if !ok {
				return nil, 0, d.fail(ErrMalformedBuffer, "skin %q slot %d: attachment without a name", skin.Name, slot)
			}
			a, err := d.attachment(slot, key)
			if err != nil {
				return nil, 0, err
			}
			if a != nil {
				skin.SetAttachment(slot, key, a)
			}
		}
	}
	return skin, slotCount, d.check()
}

// attachment reads one attachment. Kinds without runtime support are read
// in full and nil is returned.
func (d *decoder) attachment(slot int, key string) (skeleton.Attachment, error) {
	r := d.r
	scale := d.opts.scale
	name, ok := r.StringRef()
	if !ok {
		name = key
	}
	kind := skeleton.AttachmentKind(r.Byte())
	if err := d.check(); err != nil {
		return nil, err
	}

	switch kind {
	case skeleton.KindRegion:
		a := skeleton.NewRegionAttachment(name)
		a.Path = d.path(name)
		a.Rotation = r.Float()
		a.X = r.Float() * scale
		a.Y = r.Float() * scale
		a.ScaleX = r.Float()
		a.ScaleY = r.Float()
		a.Width = r.Float() * scale
		a.Height = r.Float() * scale
		a.Color = r.Color()
		a.UpdateOffset()
		return a, d.check()

	case skeleton.KindBoundingBox:
		if _, err := d.vertices(d.count()); err != nil {
			return nil, err
		}
		if d.nonessential {
			r.Int()
		}
		return nil, d.check()

	case skeleton.KindMesh:
		a := skeleton.NewMeshAttachment(name)
		a.Path = d.path(name)
		a.Color = r.Color()
		n := d.count()
		raw := r.Floats(n * 2)
		a.Triangles = r.Shorts()
		v, err := d.vertices(n)
		if err != nil {
			return nil, err
		}
		a.Vertices = v
		a.HullLength = int(r.Varint(true))
		if d.nonessential {
			a.Edges = r.Shorts()
			a.Width = r.Float() * scale
			a.Height = r.Float() * scale
		}
		if err := d.check(); err != nil {
			return nil, err
		}
		a.UVs = make([]mgl32.Vec2, n)
		for i := range a.UVs {
			a.UVs[i] = mgl32.Vec2{raw[2*i], 1 - raw[2*i+1]}
		}
		for _, t := range a.Triangles {
			if int(t) >= n {
				return nil, d.fail(ErrUnresolvedReference, "mesh %q triangle index %d of %d vertices", name, t, n)
			}
		}
		return a, nil

	case skeleton.KindLinkedMesh:
		r.StringRef() // path
		r.Int()       // color
		r.StringRef() // skin
		r.StringRef() // parent mesh
		r.Bool()      // inherit deform
		if d.nonessential {
			r.Skip(8)
		}
		return nil, d.check()

	case skeleton.KindPath:
		r.Bool() // closed
		r.Bool() // constant speed
		n := d.count()
		if _, err := d.vertices(n); err != nil {
			return nil, err
		}
		r.Skip(n / 3 * 4) // lengths
		if d.nonessential {
			r.Int()
		}
		return nil, d.check()

	case skeleton.KindPoint:
		r.Skip(12) // rotation, x, y
		if d.nonessential {
			r.Int()
		}
		return nil, d.check()

	case skeleton.KindClipping:
		a := skeleton.NewClippingAttachment(name)
		end, err := d.index(len(d.data.Slots), "clipping end slot")
		if err != nil {
			return nil, err
		}
		a.EndSlot = end
		v, err := d.vertices(d.count())
		if err != nil {
			return nil, err
		}
		a.Vertices = v
		if d.nonessential {
			a.Color = r.Color()
		}
		return a, d.check()
	}
	return nil, d.fail(ErrMalformedBuffer, "slot %d attachment %q: unknown type %d", slot, name, kind)
}

func (d *decoder) path(name string) string {
	if p, ok := d.r.StringRef(); ok {
		return p
	}
	return name
}

// vertices reads n vertices, either as plain positions or as per-bone weights.
func (d *decoder) vertices(n int) (skeleton.Vertices, error) {
	r := d.r
	scale := d.opts.scale
	var v skeleton.Vertices
	if !r.Bool() {
		raw := r.Floats(n * 2)
		if err := d.check(); err != nil {
			return v, err
		}
		v.Positions = make([]mgl32.Vec2, n)
		for i := range v.Positions {
			v.Positions[i] = mgl32.Vec2{raw[2*i] * scale, raw[2*i+1] * scale}
		}
		return v, nil
	}

	if n > r.Remaining() {
		r.Fail(ErrMalformedBuffer)
		return v, d.check()
	}
	v.Weights = make([][]skeleton.VertexWeight, n)
	for i := 0; i < n; i++ {
		bc := d.count()
		ws := make([]skeleton.VertexWeight, bc)
		for j := range ws {
			b, err := d.index(len(d.data.Bones), "weighted vertex bone")
			if err != nil {
				return v, err
			}
			ws[j] = skeleton.VertexWeight{
				Bone:   b,
				Offset: mgl32.Vec2{r.Float() * scale, r.Float() * scale},
				Weight: r.Float(),
			}
		}
		v.Weights[i] = ws
	}
	return v, d.check()
}
