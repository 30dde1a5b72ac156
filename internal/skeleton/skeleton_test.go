package skeleton

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"skel-runtime/internal/atlas"
	"skel-runtime/internal/curve"
)

func bone(index, parent int, name string) *BoneData {
	return &BoneData{Index: index, Name: name, Parent: parent, ScaleX: 1, ScaleY: 1}
}

// newTestData builds root → child with one slot on child showing "body".
func newTestData() *Data {
	root := bone(0, -1, "root")
	child := bone(1, 0, "child")
	child.X = 10

	body := NewRegionAttachment("body")
	body.Path = "body"
	body.Width, body.Height = 64, 32
	body.UpdateOffset()

	alt := NewRegionAttachment("alt")
	alt.Width, alt.Height = 8, 8
	alt.UpdateOffset()

	d := &Data{
		Name:  "test",
		Bones: []*BoneData{root, child},
		Slots: []*SlotData{{
			Index: 0, Name: "slot", Bone: 1,
			Color: mgl32.Vec4{1, 1, 1, 1}, AttachmentName: "body",
		}},
		DefaultSkin: NewSkin(DefaultSkinName),
	}
	d.DefaultSkin.SetAttachment(0, "body", body)
	d.DefaultSkin.SetAttachment(0, "alt", alt)
	d.Index()
	return d
}

func near(a, b float32) bool { return mgl32.FloatEqualThreshold(a, b, 1e-4) }

func TestInstantiateSetupPose(t *testing.T) {
	d := newTestData()
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}
	inst := d.Instantiate()
	c := inst.FindBone("child")
	if c == nil {
		t.Fatal("child not found")
	}
	if p := c.WorldPosition(); !near(p[0], 10) || !near(p[1], 0) {
		t.Errorf("child world = %v, want (10, 0)", p)
	}
	s := inst.FindSlot("slot")
	if s.Attachment == nil || s.Attachment.Name() != "body" {
		t.Errorf("slot attachment = %v", s.Attachment)
	}
	if len(inst.Bones[0].Children) != 1 || inst.Bones[0].Children[0] != 1 {
		t.Errorf("root children = %v", inst.Bones[0].Children)
	}
	if inst.ID.String() == inst.Data.Instantiate().ID.String() {
		t.Error("instances share an ID")
	}
}

func TestTransformModes(t *testing.T) {
	tests := []struct {
		name      string
		mode      TransformMode
		parentRot float32
		parentSX  float32
		wantRot   float32
		wantSX    float32
	}{
		{"normal inherits rotation", ModeNormal, 45, 1, 45, 1},
		{"normal inherits scale", ModeNormal, 0, 2, 0, 2},
		{"only translation", ModeOnlyTranslation, 45, 2, 0, 1},
		{"no rotation keeps scale", ModeNoRotationOrReflection, 45, 2, 0, 2},
		{"no scale keeps rotation", ModeNoScale, 30, 3, 30, 1},
		{"no scale or reflection", ModeNoScaleOrReflection, 30, 3, 30, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestData()
			d.Bones[0].Rotation = tt.parentRot
			d.Bones[0].ScaleX = tt.parentSX
			d.Bones[0].ScaleY = tt.parentSX
			d.Bones[1].Mode = tt.mode
			inst := d.Instantiate()
			c := &inst.Bones[1]
			if r := c.WorldRotationX(); !near(r, tt.wantRot) {
				t.Errorf("world rotation = %v, want %v", r, tt.wantRot)
			}
			if s := c.WorldScaleX(); !near(s, tt.wantSX) {
				t.Errorf("world scale = %v, want %v", s, tt.wantSX)
			}
		})
	}
}

func TestOnlyTranslationPosition(t *testing.T) {
	d := newTestData()
	d.Bones[0].Rotation = 45
	d.Bones[1].Mode = ModeOnlyTranslation
	inst := d.Instantiate()
	p := inst.Bones[1].WorldPosition()
	want := inst.Bones[0].World.Apply(mgl32.Vec2{10, 0})
	if !p.ApproxEqualThreshold(want, 1e-4) {
		t.Errorf("position = %v, want %v", p, want)
	}
	if !near(p[0], 7.0710678) || !near(p[1], 7.0710678) {
		t.Errorf("position = %v, want parent-rotated offset", p)
	}
}

func TestInstanceFlip(t *testing.T) {
	inst := newTestData().Instantiate()
	inst.ScaleX = -1
	inst.X, inst.Y = 100, 50
	inst.UpdateWorldTransform()
	p := inst.Bones[1].WorldPosition()
	if !near(p[0], 90) || !near(p[1], 50) {
		t.Errorf("flipped child = %v, want (90, 50)", p)
	}
}

func TestLocalWorldRoundTrip(t *testing.T) {
	d := newTestData()
	d.Bones[1].Rotation = 33
	d.Bones[1].ScaleX = 1.5
	inst := d.Instantiate()
	b := &inst.Bones[1]
	p := mgl32.Vec2{3, -4}
	if got := b.WorldToLocal(b.LocalToWorld(p)); !got.ApproxEqualThreshold(p, 1e-4) {
		t.Errorf("round trip = %v", got)
	}
}

func TestWeightedVertices(t *testing.T) {
	d := newTestData()
	inst := d.Instantiate()
	v := &Vertices{Weights: [][]VertexWeight{{
		{Bone: 0, Offset: mgl32.Vec2{0, 2}, Weight: 0.5},
		{Bone: 1, Offset: mgl32.Vec2{0, 2}, Weight: 0.5},
	}}}
	got := inst.ComputeWorldVertices(0, v, nil)
	if len(got) != 1 || !got[0].ApproxEqualThreshold(mgl32.Vec2{5, 2}, 1e-4) {
		t.Errorf("weighted = %v, want [(5, 2)]", got)
	}
	plain := &Vertices{Positions: []mgl32.Vec2{{1, 1}}}
	got = inst.ComputeWorldVertices(0, plain, nil)
	if !got[0].ApproxEqualThreshold(mgl32.Vec2{11, 1}, 1e-4) {
		t.Errorf("unweighted = %v, want (11, 1)", got[0])
	}
}

func TestAttachmentResolution(t *testing.T) {
	d := newTestData()
	red := NewSkin("red")
	redBody := NewRegionAttachment("red-body")
	red.SetAttachment(0, "body", redBody)
	d.Skins = append(d.Skins, red)
	d.Index()

	inst := d.Instantiate()
	if err := inst.SetSkin("red"); err != nil {
		t.Fatal(err)
	}
	if a := inst.Slots[0].Attachment; a != redBody {
		t.Errorf("active skin not preferred: %v", a)
	}
	if a := inst.ResolveAttachment(0, "alt"); a == nil || a.Name() != "alt" {
		t.Errorf("default skin fallback = %v", a)
	}
	if a := inst.ResolveAttachment(0, "nothing"); a != nil {
		t.Errorf("missing attachment = %v", a)
	}
	if err := inst.SetSkin("blue"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetSkin(blue) = %v", err)
	}
	if err := inst.SetAttachment("slot", "nothing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetAttachment missing = %v", err)
	}
	if err := inst.SetAttachment("slot", ""); err != nil || inst.Slots[0].Attachment != nil {
		t.Errorf("clearing attachment: %v", err)
	}
}

func linearCurve(keys ...float32) *curve.Curve {
	c := &curve.Curve{}
	for i := 0; i+1 < len(keys); i += 2 {
		c.Insert(curve.Keyframe{Time: keys[i], Value: keys[i+1]})
	}
	return c
}

func TestRotateUnwrap(t *testing.T) {
	d := newTestData()
	tl := NewBoneTimeline(TimelineRotate, 1)
	tl.Curves[0] = linearCurve(0, 0, 1, 16380)
	anim := &Animation{Name: "spin", Timelines: []Timeline{tl}}
	anim.ComputeDuration()
	if anim.Duration != 1 {
		t.Errorf("duration = %v", anim.Duration)
	}
	inst := d.Instantiate()
	anim.Apply(inst, -1, 1, nil)
	if r := inst.Bones[1].Rotation; !near(r, -180) {
		t.Errorf("rotation = %v, want -180", r)
	}
}

func TestBoneTimelinesFromSetup(t *testing.T) {
	d := newTestData()
	d.Bones[1].ScaleX = 2
	tr := NewBoneTimeline(TimelineTranslate, 1)
	tr.Curves[0] = linearCurve(0, 0, 1, 4)
	tr.Curves[1] = linearCurve(0, 0, 1, -4)
	sc := NewBoneTimeline(TimelineScaleX, 1)
	sc.Curves[0] = linearCurve(0, 1, 1, 3)
	anim := &Animation{Timelines: []Timeline{tr, sc}}

	inst := d.Instantiate()
	for i := 0; i < 3; i++ {
		anim.Apply(inst, -1, 0.5, nil)
	}
	b := &inst.Bones[1]
	if !near(b.X, 12) || !near(b.Y, -2) {
		t.Errorf("translate = (%v, %v), want (12, -2)", b.X, b.Y)
	}
	if !near(b.ScaleX, 4) {
		t.Errorf("scaleX = %v, want 4", b.ScaleX)
	}
}

func TestAttachmentAndColorTimelines(t *testing.T) {
	d := newTestData()
	at := &AttachmentTimeline{Slot: 0, Times: []float32{0.5, 1}, Names: []string{"alt", ""}}
	ct := NewColorTimeline(TimelineAlpha, 0)
	ct.Curves[0] = linearCurve(0, 1, 1, 0)
	anim := &Animation{Timelines: []Timeline{at, ct}}

	inst := d.Instantiate()
	tests := []struct {
		time  float32
		want  string
		alpha float32
	}{
		{0.25, "body", 0.75},
		{0.5, "alt", 0.5},
		{0.9, "alt", 0.1},
		{1, "", 0},
	}
	for _, tt := range tests {
		anim.Apply(inst, -1, tt.time, nil)
		s := &inst.Slots[0]
		got := ""
		if s.Attachment != nil {
			got = s.Attachment.Name()
		}
		if got != tt.want {
			t.Errorf("t=%v attachment = %q, want %q", tt.time, got, tt.want)
		}
		if !near(s.Color[3], tt.alpha) {
			t.Errorf("t=%v alpha = %v, want %v", tt.time, s.Color[3], tt.alpha)
		}
	}
}

func TestDrawOrderTimeline(t *testing.T) {
	d := newTestData()
	d.Slots = append(d.Slots, &SlotData{Index: 1, Name: "front", Bone: 0, Color: mgl32.Vec4{1, 1, 1, 1}})
	d.Index()
	tl := &DrawOrderTimeline{Times: []float32{0.5, 1}, Orders: [][]int{{1, 0}, nil}}
	inst := d.Instantiate()
	tl.Apply(inst, -1, 0.7, nil)
	if inst.DrawOrder[0] != 1 || inst.DrawOrder[1] != 0 {
		t.Errorf("order = %v", inst.DrawOrder)
	}
	tl.Apply(inst, -1, 1, nil)
	if inst.DrawOrder[0] != 0 {
		t.Errorf("setup order not restored: %v", inst.DrawOrder)
	}
}

func TestEventTimelineWrap(t *testing.T) {
	ev := &EventData{Name: "step"}
	tl := &EventTimeline{Events: []Event{{Data: ev, Time: 0}, {Data: ev, Time: 0.5, Int: 1}, {Data: ev, Time: 0.9, Int: 2}}}
	var got []int32
	collect := func(e Event) { got = append(got, e.Int) }

	tl.Fire(-1, 0.6, collect)
	if len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Errorf("first pass = %v", got)
	}
	got = nil
	tl.Fire(0.6, 0.2, collect)
	if len(got) != 2 || got[0] != 2 || got[1] != 0 {
		t.Errorf("wrapped pass = %v, want [2 0]", got)
	}

	var events []Event
	tl.Apply(nil, 0.4, 0.5, &events)
	if len(events) != 1 || events[0].Int != 1 {
		t.Errorf("Apply events = %v", events)
	}
}

type regions map[string]atlas.Region

func (r regions) FindRegion(name string) (atlas.Region, bool) {
	reg, ok := r[name]
	return reg, ok
}

func TestBindAtlas(t *testing.T) {
	d := newTestData()
	src := regions{
		"body": {Name: "body", X: 0, Y: 0, W: 32, H: 16, OrigW: 32, OrigH: 16, PageW: 64, PageH: 64},
		"alt":  {Name: "alt", X: 32, Y: 0, W: 8, H: 8, OrigW: 8, OrigH: 8, PageW: 64, PageH: 64},
	}
	if err := d.BindAtlas(src); err != nil {
		t.Fatal(err)
	}
	body := d.DefaultSkin.Attachment(0, "body").(*RegionAttachment)
	if sx, sy := body.RegionScale(); sx != 2 || sy != 2 {
		t.Errorf("region scale = %v, %v, want 2, 2", sx, sy)
	}
	off := body.Offsets()
	if !off[0].ApproxEqualThreshold(mgl32.Vec2{-32, -16}, 1e-4) || !off[2].ApproxEqualThreshold(mgl32.Vec2{32, 16}, 1e-4) {
		t.Errorf("offsets = %v", off)
	}
	uvs := body.UVs()
	if !uvs[1].ApproxEqualThreshold(mgl32.Vec2{0, 0}, 1e-6) || !uvs[3].ApproxEqualThreshold(mgl32.Vec2{0.5, 0.25}, 1e-6) {
		t.Errorf("uvs = %v", uvs)
	}
	if err := d.BindAtlas(src); !errors.Is(err, ErrAlreadyBound) {
		t.Errorf("second bind = %v", err)
	}
}

func TestBindAtlasMissingRegion(t *testing.T) {
	d := newTestData()
	err := d.BindAtlas(regions{"body": {Name: "body", W: 1, H: 1, OrigW: 1, OrigH: 1}})
	if !errors.Is(err, ErrAtlasRegionMissing) {
		t.Fatalf("err = %v, want ErrAtlasRegionMissing", err)
	}
	if d.Bound() {
		t.Error("data marked bound after failure")
	}
	body := d.DefaultSkin.Attachment(0, "body").(*RegionAttachment)
	if body.Region() != nil {
		t.Error("partial binding applied")
	}
}

func TestDrawListClipping(t *testing.T) {
	d := newTestData()
	d.Slots = []*SlotData{
		{Index: 0, Name: "clip", Bone: 0, Color: mgl32.Vec4{1, 1, 1, 1}, AttachmentName: "mask"},
		{Index: 1, Name: "slot", Bone: 1, Color: mgl32.Vec4{1, 0.5, 1, 1}, AttachmentName: "body", Blend: BlendAdditive},
		{Index: 2, Name: "after", Bone: 1, Color: mgl32.Vec4{1, 1, 1, 1}, AttachmentName: "body"},
	}
	skin := NewSkin(DefaultSkinName)
	mask := NewClippingAttachment("mask")
	mask.EndSlot = 1
	mask.Positions = []mgl32.Vec2{{0, 0}, {10, 0}, {10, 10}}
	body := d.DefaultSkin.Attachment(0, "body")
	skin.SetAttachment(0, "mask", mask)
	skin.SetAttachment(1, "body", body)
	skin.SetAttachment(2, "body", body)
	d.DefaultSkin = skin
	d.Index()
	if err := d.Validate(); err != nil {
		t.Fatal(err)
	}

	items := d.Instantiate().DrawList()
	ops := make([]DrawOp, len(items))
	for i, it := range items {
		ops[i] = it.Op
	}
	want := []DrawOp{OpClipStart, OpTriangles, OpClipEnd, OpTriangles}
	if len(ops) != len(want) {
		t.Fatalf("ops = %v, want %v", ops, want)
	}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", ops, want)
		}
	}
	if items[1].Blend != BlendAdditive || items[1].Color[1] != 0.5 || items[1].Page != -1 {
		t.Errorf("item = %+v", items[1])
	}
}

func TestValidateRejectsForwardParent(t *testing.T) {
	d := newTestData()
	d.Bones[1].Parent = 1
	if err := d.Validate(); !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("Validate = %v", err)
	}
	d = newTestData()
	d.Slots[0].Bone = 7
	if err := d.Validate(); !errors.Is(err, ErrUnresolvedReference) {
		t.Errorf("Validate slot = %v", err)
	}
}
