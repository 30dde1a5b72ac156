package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"

	"skel-runtime/internal/atlas"
)

var quadTriangles = []uint16{0, 1, 2, 2, 3, 0}

// ComputeWorldVertices appends the world positions of v, attached to slot,
// to out. Weighted vertices blend the contribution of every influencing bone.
func (inst *Instance) ComputeWorldVertices(slot int, v *Vertices, out []mgl32.Vec2) []mgl32.Vec2 {
	if !v.Weighted() {
		bone := &inst.Bones[inst.Slots[slot].Bone]
		for _, p := range v.Positions {
			out = append(out, bone.World.Apply(p))
		}
		return out
	}
	for _, ws := range v.Weights {
		var sum mgl32.Vec2
		for _, w := range ws {
			p := inst.Bones[w.Bone].World.Apply(w.Offset)
			sum = sum.Add(p.Mul(w.Weight))
		}
		out = append(out, sum)
	}
	return out
}

// WorldVertices returns the region quad corners in world space for the given
// bone, in Offsets order.
func (a *RegionAttachment) WorldVertices(b *Bone) [4]mgl32.Vec2 {
	var out [4]mgl32.Vec2
	for i, o := range a.offsets {
		out[i] = b.World.Apply(o)
	}
	return out
}

// DrawOp distinguishes draw list commands.
type DrawOp uint8

const (
	OpTriangles DrawOp = iota
	OpClipStart
	OpClipEnd
)

// DrawItem is one renderer command. Triangles carry world vertices and page
// UVs; ClipStart carries the clip polygon in Vertices.
type DrawItem struct {
	Op         DrawOp
	Slot       int
	Attachment Attachment
	Blend      BlendMode
	Color      mgl32.Vec4
	Page       int
	Vertices   []mgl32.Vec2
	UVs        []mgl32.Vec2
	Triangles  []uint16
}

// DrawList resolves the current pose into renderer commands in draw order.
// World transforms must be up to date.
func (inst *Instance) DrawList() []DrawItem {
	var items []DrawItem
	clipEnd := -1
	for _, si := range inst.DrawOrder {
		s := &inst.Slots[si]
		switch a := s.Attachment.(type) {
		case *RegionAttachment:
			verts := a.WorldVertices(&inst.Bones[s.Bone])
			uvs := a.uvs
			items = append(items, DrawItem{
				Op:         OpTriangles,
				Slot:       si,
				Attachment: a,
				Blend:      s.Data.Blend,
				Color:      tint(s.Color, a.Color),
				Page:       pageOf(a.region),
				Vertices:   verts[:],
				UVs:        uvs[:],
				Triangles:  quadTriangles,
			})
		case *MeshAttachment:
			items = append(items, DrawItem{
				Op:         OpTriangles,
				Slot:       si,
				Attachment: a,
				Blend:      s.Data.Blend,
				Color:      tint(s.Color, a.Color),
				Page:       pageOf(a.region),
				Vertices:   inst.ComputeWorldVertices(si, &a.Vertices, nil),
				UVs:        a.pageUVs,
				Triangles:  a.Triangles,
			})
		case *ClippingAttachment:
			if clipEnd < 0 {
				clipEnd = a.EndSlot
				items = append(items, DrawItem{
					Op:         OpClipStart,
					Slot:       si,
					Attachment: a,
					Vertices:   inst.ComputeWorldVertices(si, &a.Vertices, nil),
				})
			}
		}
		if clipEnd >= 0 && si == clipEnd {
			items = append(items, DrawItem{Op: OpClipEnd, Slot: si})
			clipEnd = -1
		}
	}
	if clipEnd >= 0 {
		items = append(items, DrawItem{Op: OpClipEnd, Slot: -1})
	}
	return items
}

// Bounds returns the axis-aligned bounds of everything the draw list shows.
func (inst *Instance) Bounds() (min, max mgl32.Vec2, ok bool) {
	for _, it := range inst.DrawList() {
		if it.Op != OpTriangles {
			continue
		}
		for _, v := range it.Vertices {
			if !ok {
				min, max, ok = v, v, true
				continue
			}
			min = mgl32.Vec2{minf(min[0], v[0]), minf(min[1], v[1])}
			max = mgl32.Vec2{maxf(max[0], v[0]), maxf(max[1], v[1])}
		}
	}
	return min, max, ok
}

func tint(a, b mgl32.Vec4) mgl32.Vec4 {
	return mgl32.Vec4{a[0] * b[0], a[1] * b[1], a[2] * b[2], a[3] * b[3]}
}

func pageOf(r *atlas.Region) int {
	if r == nil {
		return -1
	}
	return r.Page
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
