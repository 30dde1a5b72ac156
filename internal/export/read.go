package export

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"skel-runtime/internal/curve"
	"skel-runtime/internal/skeleton"
)

func unflatten(fs []float32) ([]mgl32.Vec2, error) {
	if len(fs)%2 != 0 {
		return nil, errors.Errorf("odd coordinate count %d", len(fs))
	}
	if fs == nil {
		return nil, nil
	}
	out := make([]mgl32.Vec2, len(fs)/2)
	for i := range out {
		out[i] = mgl32.Vec2{fs[2*i], fs[2*i+1]}
	}
	return out, nil
}

// ToData rebuilds and validates the graph a document describes.
func (doc *Document) ToData() (*skeleton.Data, error) {
	if doc.Format != FormatVersion {
		return nil, errors.Errorf("export: unsupported format %q", doc.Format)
	}
	d := &skeleton.Data{
		Name:       doc.Name,
		Hash:       doc.Hash,
		Version:    doc.Version,
		X:          doc.Bounds[0],
		Y:          doc.Bounds[1],
		Width:      doc.Bounds[2],
		Height:     doc.Bounds[3],
		FPS:        doc.FPS,
		ImagesPath: doc.ImagesPath,
		AudioPath:  doc.AudioPath,
	}
	for i, b := range doc.Bones {
		mode, ok := skeleton.ParseTransformMode(b.Mode)
		if b.Mode == "" {
			mode, ok = skeleton.ModeNormal, true
		}
		if !ok {
			return nil, errors.Errorf("export: bone %q: unknown mode %q", b.Name, b.Mode)
		}
		d.Bones = append(d.Bones, &skeleton.BoneData{
			Index: i, Name: b.Name, Parent: b.Parent, Length: b.Length,
			X: b.X, Y: b.Y, Rotation: b.Rotation,
			ScaleX: b.ScaleX, ScaleY: b.ScaleY, ShearX: b.ShearX, ShearY: b.ShearY,
			Mode: mode, SkinRequired: b.SkinRequired, Color: mgl32.Vec4(b.Color),
		})
	}
	for i, s := range doc.Slots {
		blend, ok := skeleton.ParseBlendMode(s.Blend)
		if s.Blend == "" {
			blend, ok = skeleton.BlendNormal, true
		}
		if !ok {
			return nil, errors.Errorf("export: slot %q: unknown blend %q", s.Name, s.Blend)
		}
		sd := &skeleton.SlotData{
			Index: i, Name: s.Name, Bone: s.Bone, Color: mgl32.Vec4(s.Color),
			AttachmentName: s.Attachment, Blend: blend,
		}
		if s.Dark != nil {
			sd.DarkColor, sd.HasDarkColor = mgl32.Vec4(*s.Dark), true
		}
		d.Slots = append(d.Slots, sd)
	}

	for i, s := range doc.Skins {
		skin := skeleton.NewSkin(s.Name)
		skin.Bones = s.Bones
		for _, a := range s.Attachments {
			att, err := toAttachment(a)
			if err != nil {
				return nil, errors.Wrapf(err, "skin %q", s.Name)
			}
			skin.SetAttachment(a.Slot, a.Key, att)
		}
		if i == 0 && s.Name == skeleton.DefaultSkinName {
			d.DefaultSkin = skin
		} else {
			d.Skins = append(d.Skins, skin)
		}
	}
	if d.DefaultSkin == nil {
		d.DefaultSkin = skeleton.NewSkin(skeleton.DefaultSkinName)
	}

	for _, e := range doc.Events {
		d.Events = append(d.Events, &skeleton.EventData{
			Name: e.Name, Int: e.Int, Float: e.Float, String: e.String,
			AudioPath: e.Audio, Volume: e.Volume, Balance: e.Balance,
		})
	}
	for _, a := range doc.Animations {
		anim := &skeleton.Animation{Name: a.Name}
		for _, t := range a.Timelines {
			tl, err := toTimeline(t, d.Events)
			if err != nil {
				return nil, errors.Wrapf(err, "animation %q", a.Name)
			}
			anim.Timelines = append(anim.Timelines, tl)
		}
		anim.ComputeDuration()
		d.Animations = append(d.Animations, anim)
	}

	d.Index()
	if err := d.Validate(); err != nil {
		return nil, errors.Wrap(err, "export")
	}
	return d, nil
}

func toVertices(a Attachment) (skeleton.Vertices, error) {
	if a.Weights == nil {
		pos, err := unflatten(a.Vertices)
		return skeleton.Vertices{Positions: pos}, err
	}
	v := skeleton.Vertices{Weights: make([][]skeleton.VertexWeight, len(a.Weights))}
	for i, ws := range a.Weights {
		v.Weights[i] = make([]skeleton.VertexWeight, len(ws))
		for j, w := range ws {
			v.Weights[i][j] = skeleton.VertexWeight{Bone: int(w[0]), Offset: mgl32.Vec2{w[1], w[2]}, Weight: w[3]}
		}
	}
	return v, nil
}

func toAttachment(a Attachment) (skeleton.Attachment, error) {
	if !allowedAttachments[a.Type] {
		return nil, errors.Wrapf(ErrVariantNotAllowed, "attachment %q type %q", a.Key, a.Type)
	}
	name := a.Name
	if name == "" {
		name = a.Key
	}
	switch a.Type {
	case "region":
		r := skeleton.NewRegionAttachment(name)
		r.Path = a.Path
		r.X, r.Y, r.Rotation = a.X, a.Y, a.Rotation
		r.ScaleX, r.ScaleY = a.ScaleX, a.ScaleY
		r.Width, r.Height = a.Width, a.Height
		r.Color = mgl32.Vec4(a.Color)
		r.UpdateOffset()
		return r, nil
	case "mesh":
		m := skeleton.NewMeshAttachment(name)
		m.Path = a.Path
		m.Color = mgl32.Vec4(a.Color)
		uvs, err := unflatten(a.UVs)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %q uvs", a.Key)
		}
		m.UVs = uvs
		m.Triangles = a.Triangles
		if m.Vertices, err = toVertices(a); err != nil {
			return nil, errors.Wrapf(err, "mesh %q vertices", a.Key)
		}
		m.HullLength = a.Hull
		m.Edges = a.Edges
		m.Width, m.Height = a.Width, a.Height
		return m, nil
	default:
		c := skeleton.NewClippingAttachment(name)
		c.EndSlot = a.EndSlot
		c.Color = mgl32.Vec4(a.Color)
		v, err := toVertices(a)
		if err != nil {
			return nil, errors.Wrapf(err, "clipping %q vertices", a.Key)
		}
		c.Vertices = v
		return c, nil
	}
}

func toCurve(keys []Key) (*curve.Curve, error) {
	c := &curve.Curve{}
	for _, k := range keys {
		interp, ok := curve.ParseInterpolation(k.Interp)
		if !ok {
			return nil, errors.Errorf("unknown interpolation %q", k.Interp)
		}
		kf := curve.Keyframe{Time: k.Time, Value: k.Value, Interp: interp}
		if k.Left != nil {
			kf.HandleLeft, kf.HasLeft = mgl32.Vec2(*k.Left), true
		}
		if k.Right != nil {
			kf.HandleRight, kf.HasRight = mgl32.Vec2(*k.Right), true
		}
		c.Insert(kf)
	}
	return c, nil
}

func target(p *int, what string, kind string) (int, error) {
	if p == nil {
		return 0, errors.Errorf("%s timeline without %s", kind, what)
	}
	return *p, nil
}

func toTimeline(t Timeline, events []*skeleton.EventData) (skeleton.Timeline, error) {
	if !allowedTimelines[t.Type] {
		return nil, errors.Wrapf(ErrVariantNotAllowed, "timeline %q", t.Type)
	}
	kind, _ := skeleton.ParseTimelineKind(t.Type)

	var curves []*curve.Curve
	if n := kind.Components(); n > 0 {
		if len(t.Curves) != n {
			return nil, errors.Errorf("%s timeline has %d curves, want %d", t.Type, len(t.Curves), n)
		}
		for _, keys := range t.Curves {
			c, err := toCurve(keys)
			if err != nil {
				return nil, errors.Wrapf(err, "%s timeline", t.Type)
			}
			curves = append(curves, c)
		}
	}

	switch {
	case kind.IsBone():
		bone, err := target(t.Bone, "bone", t.Type)
		if err != nil {
			return nil, err
		}
		tl := skeleton.NewBoneTimeline(kind, bone)
		tl.Curves = curves
		return tl, nil
	case kind == skeleton.TimelineRGBA || kind == skeleton.TimelineRGB || kind == skeleton.TimelineAlpha:
		slot, err := target(t.Slot, "slot", t.Type)
		if err != nil {
			return nil, err
		}
		tl := skeleton.NewColorTimeline(kind, slot)
		tl.Curves = curves
		return tl, nil
	case kind == skeleton.TimelineAttachment:
		slot, err := target(t.Slot, "slot", t.Type)
		if err != nil {
			return nil, err
		}
		if len(t.Names) != len(t.Times) {
			return nil, errors.Errorf("attachment timeline has %d names for %d times", len(t.Names), len(t.Times))
		}
		return &skeleton.AttachmentTimeline{Slot: slot, Times: t.Times, Names: t.Names}, nil
	case kind == skeleton.TimelineDrawOrder:
		if len(t.Orders) != len(t.Times) {
			return nil, errors.Errorf("draw order timeline has %d orders for %d times", len(t.Orders), len(t.Times))
		}
		tl := &skeleton.DrawOrderTimeline{Times: t.Times, Orders: make([][]int, len(t.Orders))}
		for i, o := range t.Orders {
			if len(o) > 0 {
				tl.Orders[i] = o
			}
		}
		return tl, nil
	default:
		tl := &skeleton.EventTimeline{}
		for _, k := range t.Events {
			if k.Event < 0 || k.Event >= len(events) {
				return nil, errors.Wrapf(skeleton.ErrUnresolvedReference, "event key %d", k.Event)
			}
			tl.Events = append(tl.Events, skeleton.Event{
				Data: events[k.Event], Time: k.Time, Int: k.Int, Float: k.Float,
				String: k.String, Volume: k.Volume, Balance: k.Balance,
			})
		}
		return tl, nil
	}
}
