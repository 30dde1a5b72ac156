package skel

import (
	"github.com/go-gl/mathgl/mgl32"

	"skel-runtime/internal/curve"
	"skel-runtime/internal/skeleton"
)

// Curve type bytes written after every keyframe but the last.
const (
	curveLinear  = 0
	curveStepped = 1
	curveBezier  = 2
)

// Slot timeline type bytes.
const (
	slotAttachment = iota
	slotRGBA
	slotRGB
	slotRGBA2
	slotRGB2
	slotAlpha
)

// Path constraint timeline type bytes.
const (
	pathPosition = iota
	pathSpacing
	pathMix
)

func (d *decoder) animations() error {
	n := d.count()
	d.data.Animations = make([]*skeleton.Animation, 0, n)
	for i := 0; i < n; i++ {
		a, err := d.animation()
		if err != nil {
			return err
		}
		d.data.Animations = append(d.data.Animations, a)
	}
	return nil
}

func (d *decoder) animation() (*skeleton.Animation, error) {
	name, _ := d.r.String()
	if err := d.check(); err != nil {
		return nil, err
	}
	a := &skeleton.Animation{Name: name}
	for _, read := range []func(*skeleton.Animation) error{
		d.slotTimelines,
		d.boneTimelines,
		d.ikTimelines,
		d.transformTimelines,
		d.pathTimelines,
		d.deformTimelines,
		d.drawOrderTimeline,
		d.eventTimeline,
	} {
		if err := read(a); err != nil {
			return nil, err
		}
		if err := d.check(); err != nil {
			return nil, err
		}
	}
	a.ComputeDuration()
	return a, nil
}

// curveFrames reads fc keyframes into curves, one curve per component. Each
// value is read() * scale. Bezier handles are absolute (time, value) points:
// the first pair becomes this key's right handle and the second pair is
// carried into the next key's left handle.
func (d *decoder) curveFrames(curves []*curve.Curve, fc int, read func() float32, scale float32) error {
	if fc == 0 {
		return d.fail(ErrMalformedBuffer, "curve timeline without frames")
	}
	r := d.r
	n := len(curves)
	keys := make([]curve.Keyframe, n)
	carried := make([]mgl32.Vec2, n)
	carry := false
	for f := 0; f < fc; f++ {
		t := r.Float()
		for c := range keys {
			keys[c] = curve.Keyframe{Time: t, Value: read() * scale, Interp: curve.Linear}
			if carry {
				keys[c].HandleLeft = carried[c]
				keys[c].HasLeft = true
			}
		}
		carry = false
		if f < fc-1 {
			switch kind := r.Byte(); kind {
			case curveLinear:
			case curveStepped:
				for c := range keys {
					keys[c].Interp = curve.Constant
				}
			case curveBezier:
				for c := range keys {
					keys[c].Interp = curve.Bezier
					keys[c].HandleRight = mgl32.Vec2{r.Float(), r.Float() * scale}
					keys[c].HasRight = true
					carried[c] = mgl32.Vec2{r.Float(), r.Float() * scale}
				}
				carry = true
			default:
				if err := d.check(); err != nil {
					return err
				}
				return d.fail(ErrMalformedBuffer, "unknown curve type %d", kind)
			}
		}
		if err := d.check(); err != nil {
			return err
		}
		for c, k := range keys {
			curves[c].Insert(k)
		}
	}
	return nil
}

// skipCurveFrames steps over fc keyframes whose payload is consumed by frame.
// comps is the number of bezier components per curve.
func (d *decoder) skipCurveFrames(fc int, frame func(), comps int) error {
	r := d.r
	for f := 0; f < fc; f++ {
		r.Skip(4) // time
		frame()
		if f == fc-1 {
			break
		}
		switch kind := r.Byte(); kind {
		case curveLinear, curveStepped:
		case curveBezier:
			r.Skip(comps * 16)
		default:
			if err := d.check(); err != nil {
				return err
			}
			return d.fail(ErrMalformedBuffer, "unknown curve type %d", kind)
		}
		if err := d.check(); err != nil {
			return err
		}
	}
	return d.check()
}

func (d *decoder) byteColor() float32 { return float32(d.r.Byte()) / 255 }

func (d *decoder) slotTimelines(a *skeleton.Animation) error {
	r := d.r
	n := d.count()
	for i := 0; i < n; i++ {
		slot, err := d.index(len(d.data.Slots), "timeline slot")
		if err != nil {
			return err
		}
		tc := d.count()
		for j := 0; j < tc; j++ {
			kind := r.Byte()
			fc := d.count()
			if err := d.check(); err != nil {
				return err
			}

			switch kind {
			case slotAttachment:
				tl := &skeleton.AttachmentTimeline{
					Slot:  slot,
					Times: make([]float32, 0, fc),
					Names: make([]string, 0, fc),
				}
				for f := 0; f < fc; f++ {
					tl.Times = append(tl.Times, r.Float())
					name, _ := r.StringRef()
					tl.Names = append(tl.Names, name)
				}
				if err := d.check(); err != nil {
					return err
				}
				if fc > 0 {
					a.Timelines = append(a.Timelines, tl)
				}

			case slotRGBA, slotRGB, slotAlpha:
				r.Varint(true) // bezier count
				tk := map[byte]skeleton.TimelineKind{
					slotRGBA:  skeleton.TimelineRGBA,
					slotRGB:   skeleton.TimelineRGB,
					slotAlpha: skeleton.TimelineAlpha,
				}[kind]
				tl := skeleton.NewColorTimeline(tk, slot)
				if err := d.curveFrames(tl.Curves, fc, d.byteColor, 1); err != nil {
					return err
				}
				a.Timelines = append(a.Timelines, tl)

			case slotRGBA2, slotRGB2:
				r.Varint(true)
				comps := 7
				if kind == slotRGB2 {
					comps = 6
				}
				if err := d.skipCurveFrames(fc, func() { r.Skip(comps) }, comps); err != nil {
					return err
				}
				what := "rgba2 timeline"
				if kind == slotRGB2 {
					what = "rgb2 timeline"
				}
				d.skip(what, "animation", a.Name, "slot", d.data.Slots[slot].Name)

			default:
				return d.fail(ErrMalformedBuffer, "slot %d: unknown timeline type %d", slot, kind)
			}
		}
	}
	return nil
}

func (d *decoder) boneTimelines(a *skeleton.Animation) error {
	r := d.r
	n := d.count()
	for i := 0; i < n; i++ {
		bone, err := d.index(len(d.data.Bones), "timeline bone")
		if err != nil {
			return err
		}
		tc := d.count()
		for j := 0; j < tc; j++ {
			kind := r.Byte()
			fc := d.count()
			r.Varint(true) // bezier count
			if err := d.check(); err != nil {
				return err
			}
			if kind > byte(skeleton.TimelineShearY) {
				return d.fail(ErrMalformedBuffer, "bone %d: unknown timeline type %d", bone, kind)
			}
			tk := skeleton.TimelineKind(kind)
			var scale float32 = 1
			switch tk {
			case skeleton.TimelineTranslate, skeleton.TimelineTranslateX, skeleton.TimelineTranslateY:
				scale = d.opts.scale
			}
			tl := skeleton.NewBoneTimeline(tk, bone)
			if err := d.curveFrames(tl.Curves, fc, r.Float, scale); err != nil {
				return err
			}
			a.Timelines = append(a.Timelines, tl)
		}
	}
	return nil
}

func (d *decoder) ikTimelines(a *skeleton.Animation) error {
	r := d.r
	n := d.count()
	for i := 0; i < n; i++ {
		if _, err := d.index(d.ikCount, "ik timeline constraint"); err != nil {
			return err
		}
		fc := d.count()
		r.Varint(true)
		// mix, softness, bend direction, compress, stretch
		if err := d.skipCurveFrames(fc, func() { r.Skip(8 + 3) }, 2); err != nil {
			return err
		}
	}
	if n > 0 {
		d.skip("ik timelines", "animation", a.Name, "count", n)
	}
	return nil
}

func (d *decoder) transformTimelines(a *skeleton.Animation) error {
	r := d.r
	n := d.count()
	for i := 0; i < n; i++ {
		if _, err := d.index(d.transformCount, "transform timeline constraint"); err != nil {
			return err
		}
		fc := d.count()
		r.Varint(true)
		if err := d.skipCurveFrames(fc, func() { r.Skip(6 * 4) }, 6); err != nil {
			return err
		}
	}
	if n > 0 {
		d.skip("transform timelines", "animation", a.Name, "count", n)
	}
	return nil
}

func (d *decoder) pathTimelines(a *skeleton.Animation) error {
	r := d.r
	n := d.count()
	for i := 0; i < n; i++ {
		if _, err := d.index(d.pathCount, "path timeline constraint"); err != nil {
			return err
		}
		tc := d.count()
		for j := 0; j < tc; j++ {
			kind := r.Byte()
			fc := d.count()
			r.Varint(true)
			if err := d.check(); err != nil {
				return err
			}
			var err error
			switch kind {
			case pathPosition, pathSpacing:
				err = d.skipCurveFrames(fc, func() { r.Skip(4) }, 1)
			case pathMix:
				err = d.skipCurveFrames(fc, func() { r.Skip(3 * 4) }, 3)
			default:
				err = d.fail(ErrMalformedBuffer, "unknown path timeline type %d", kind)
			}
			if err != nil {
				return err
			}
		}
	}
	if n > 0 {
		d.skip("path timelines", "animation", a.Name, "count", n)
	}
	return nil
}

func (d *decoder) deformTimelines(a *skeleton.Animation) error {
	r := d.r
	n := d.count()
	var skipped int
	for i := 0; i < n; i++ {
		if _, err := d.index(d.skinCount, "deform skin"); err != nil {
			return err
		}
		sc := d.count()
		for j := 0; j < sc; j++ {
			if _, err := d.index(len(d.data.Slots), "deform slot"); err != nil {
				return err
			}
			ac := d.count()
			for k := 0; k < ac; k++ {
				if _, ok := r.StringRef(); !ok {
					if err := d.check(); err != nil {
						return err
					}
					return d.fail(ErrMalformedBuffer, "deform timeline without attachment")
				}
				fc := d.count()
				r.Varint(true)
				frame := func() {
					end := int(r.Varint(true))
					if end == 0 {
						return
					}
					r.Varint(true) // start
					r.Skip(end * 4)
				}
				if err := d.skipCurveFrames(fc, frame, 1); err != nil {
					return err
				}
				skipped++
			}
		}
	}
	if skipped > 0 {
		d.skip("deform timelines", "animation", a.Name, "count", skipped)
	}
	return nil
}

// drawOrderTimeline reads keys that list only the slots that moved, as
// (slot, offset) pairs in slot order. The remaining slots keep their relative
// order in the gaps.
func (d *decoder) drawOrderTimeline(a *skeleton.Animation) error {
	r := d.r
	n := d.count()
	if n == 0 {
		return nil
	}
	slots := len(d.data.Slots)
	tl := &skeleton.DrawOrderTimeline{
		Times:  make([]float32, 0, n),
		Orders: make([][]int, 0, n),
	}
	for i := 0; i < n; i++ {
		t := r.Float()
		oc := d.count()
		if err := d.check(); err != nil {
			return err
		}
		if oc > slots {
			return d.fail(ErrUnresolvedReference, "draw order moves %d of %d slots", oc, slots)
		}
		var order []int
		if oc > 0 {
			order = make([]int, slots)
			for s := range order {
				order[s] = -1
			}
			unchanged := make([]int, 0, slots-oc)
			orig := 0
			for j := 0; j < oc; j++ {
				slot, err := d.index(slots, "draw order slot")
				if err != nil {
					return err
				}
				if slot < orig {
					return d.fail(ErrMalformedBuffer, "draw order slot %d out of sequence", slot)
				}
				for orig != slot {
					unchanged = append(unchanged, orig)
					orig++
				}
				to := orig + int(r.Varint(true))
				if err := d.check(); err != nil {
					return err
				}
				if to < 0 || to >= slots || order[to] != -1 {
					return d.fail(ErrUnresolvedReference, "draw order slot %d moved to %d", slot, to)
				}
				order[to] = orig
				orig++
			}
			for orig < slots {
				unchanged = append(unchanged, orig)
				orig++
			}
			u := len(unchanged)
			for s := slots - 1; s >= 0; s-- {
				if order[s] == -1 {
					u--
					order[s] = unchanged[u]
				}
			}
		}
		tl.Times = append(tl.Times, t)
		tl.Orders = append(tl.Orders, order)
	}
	a.Timelines = append(a.Timelines, tl)
	return nil
}

func (d *decoder) eventTimeline(a *skeleton.Animation) error {
	r := d.r
	n := d.count()
	if n == 0 {
		return nil
	}
	tl := &skeleton.EventTimeline{Events: make([]skeleton.Event, 0, n)}
	for i := 0; i < n; i++ {
		t := r.Float()
		idx, err := d.index(len(d.data.Events), "event")
		if err != nil {
			return err
		}
		data := d.data.Events[idx]
		e := skeleton.Event{
			Data:    data,
			Time:    t,
			String:  data.String,
			Volume:  data.Volume,
			Balance: data.Balance,
		}
		e.Int = r.Varint(false)
		e.Float = r.Float()
		if r.Bool() {
			e.String, _ = r.String()
		}
		if d.eventAudio[idx] {
			e.Volume = r.Float()
			e.Balance = r.Float()
		}
		tl.Events = append(tl.Events, e)
	}
	a.Timelines = append(a.Timelines, tl)
	return d.check()
}
