package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"skel-runtime/internal/atlas"
	"skel-runtime/internal/mathutil"
)

// AttachmentKind identifies an attachment variant. The values match the
// type byte of the binary format.
type AttachmentKind uint8

const (
	KindRegion AttachmentKind = iota
	KindBoundingBox
	KindMesh
	KindLinkedMesh
	KindPath
	KindPoint
	KindClipping
)

var attachmentKindNames = [...]string{"region", "boundingbox", "mesh", "linkedmesh", "path", "point", "clipping"}

func (k AttachmentKind) String() string {
	if int(k) < len(attachmentKindNames) {
		return attachmentKindNames[k]
	}
	return fmt.Sprintf("AttachmentKind(%d)", k)
}

// ParseAttachmentKind is the inverse of AttachmentKind.String.
func ParseAttachmentKind(s string) (AttachmentKind, bool) {
	for i, n := range attachmentKindNames {
		if n == s {
			return AttachmentKind(i), true
		}
	}
	return 0, false
}

// Attachment is something a slot can display or use.
type Attachment interface {
	Name() string
	Kind() AttachmentKind
}

// VertexWeight is one bone's influence on a weighted vertex.
type VertexWeight struct {
	Bone   int
	Offset mgl32.Vec2
	Weight float32
}

// Vertices holds either plain local positions or per-vertex bone weights.
type Vertices struct {
	Positions []mgl32.Vec2
	Weights   [][]VertexWeight
}

// Weighted reports whether the vertices are bound to several bones.
func (v *Vertices) Weighted() bool { return v.Weights != nil }

// Count returns the number of vertices.
func (v *Vertices) Count() int {
	if v.Weights != nil {
		return len(v.Weights)
	}
	return len(v.Positions)
}

func (v *Vertices) validate(d *Data, owner string) error {
	for i, ws := range v.Weights {
		for _, w := range ws {
			if w.Bone < 0 || w.Bone >= len(d.Bones) {
				return fmt.Errorf("%w: %s vertex %d bone %d", ErrUnresolvedReference, owner, i, w.Bone)
			}
		}
	}
	return nil
}

// RegionAttachment is a textured quad positioned relative to its slot's bone.
type RegionAttachment struct {
	name     string
	Path     string
	X, Y     float32
	Rotation float32
	ScaleX   float32
	ScaleY   float32
	Width    float32
	Height   float32
	Color    mgl32.Vec4

	region  *atlas.Region
	offsets [4]mgl32.Vec2
	uvs     [4]mgl32.Vec2
}

// NewRegionAttachment returns a region with unit scale and white tint.
func NewRegionAttachment(name string) *RegionAttachment {
	return &RegionAttachment{name: name, ScaleX: 1, ScaleY: 1, Color: mgl32.Vec4{1, 1, 1, 1}}
}

func (a *RegionAttachment) Name() string         { return a.name }
func (a *RegionAttachment) Kind() AttachmentKind { return KindRegion }

// Region returns the bound atlas region, or nil before BindAtlas.
func (a *RegionAttachment) Region() *atlas.Region { return a.region }

// Offsets returns the quad corners in bone space: bottom-left, top-left,
// top-right, bottom-right.
func (a *RegionAttachment) Offsets() [4]mgl32.Vec2 { return a.offsets }

// UVs returns the page coordinates matching Offsets.
func (a *RegionAttachment) UVs() [4]mgl32.Vec2 { return a.uvs }

// UpdateOffset recomputes the quad corners. Without a bound region the
// quad spans Width×Height centered on (X, Y).
func (a *RegionAttachment) UpdateOffset() {
	w, h := a.Width, a.Height
	regionScaleX, regionScaleY := a.ScaleX, a.ScaleY
	var offX, offY, packedW, packedH float32 = 0, 0, w, h
	if r := a.region; r != nil && r.OrigW > 0 && r.OrigH > 0 {
		regionScaleX = w / float32(r.OrigW) * a.ScaleX
		regionScaleY = h / float32(r.OrigH) * a.ScaleY
		offX, offY = float32(r.OffsetX), float32(r.OffsetY)
		packedW, packedH = float32(r.W), float32(r.H)
	}

	localX := -w/2*a.ScaleX + offX*regionScaleX
	localY := -h/2*a.ScaleY + offY*regionScaleY
	localX2 := localX + packedW*regionScaleX
	localY2 := localY + packedH*regionScaleY

	local := mathutil.Affine{
		A: mathutil.CosDeg(a.Rotation), B: -mathutil.SinDeg(a.Rotation),
		C: mathutil.SinDeg(a.Rotation), D: mathutil.CosDeg(a.Rotation),
		X: a.X, Y: a.Y,
	}
	a.offsets = [4]mgl32.Vec2{
		local.Apply(mgl32.Vec2{localX, localY}),
		local.Apply(mgl32.Vec2{localX, localY2}),
		local.Apply(mgl32.Vec2{localX2, localY2}),
		local.Apply(mgl32.Vec2{localX2, localY}),
	}
}

// RegionScale returns the correction from region pixels to attachment size.
func (a *RegionAttachment) RegionScale() (float32, float32) {
	if a.region == nil || a.region.OrigW <= 0 || a.region.OrigH <= 0 {
		return 1, 1
	}
	return a.Width / float32(a.region.OrigW), a.Height / float32(a.region.OrigH)
}

func (a *RegionAttachment) bind(r *atlas.Region) {
	a.region = r
	a.UpdateOffset()
	a.uvs = [4]mgl32.Vec2{r.MapUV(0, 0), r.MapUV(0, 1), r.MapUV(1, 1), r.MapUV(1, 0)}
}

// MeshAttachment is an arbitrary textured triangle mesh.
type MeshAttachment struct {
	name string
	Path string
	Vertices
	Color mgl32.Vec4
	// UVs are region-relative with v growing upward.
	UVs        []mgl32.Vec2
	Triangles  []uint16
	HullLength int
	Edges      []uint16
	Width      float32
	Height     float32

	region  *atlas.Region
	pageUVs []mgl32.Vec2
}

// NewMeshAttachment returns an empty mesh with white tint.
func NewMeshAttachment(name string) *MeshAttachment {
	return &MeshAttachment{name: name, Color: mgl32.Vec4{1, 1, 1, 1}}
}

func (a *MeshAttachment) Name() string         { return a.name }
func (a *MeshAttachment) Kind() AttachmentKind { return KindMesh }

// Region returns the bound atlas region, or nil before BindAtlas.
func (a *MeshAttachment) Region() *atlas.Region { return a.region }

// PageUVs returns the UVs mapped onto the bound page, or nil.
func (a *MeshAttachment) PageUVs() []mgl32.Vec2 { return a.pageUVs }

func (a *MeshAttachment) bind(r *atlas.Region) {
	a.region = r
	a.pageUVs = make([]mgl32.Vec2, len(a.UVs))
	for i, uv := range a.UVs {
		a.pageUVs[i] = r.MapUV(uv[0], uv[1])
	}
}

func (a *MeshAttachment) validate(d *Data) error {
	n := a.Count()
	if len(a.UVs) != n {
		return fmt.Errorf("%w: mesh %q has %d uvs for %d vertices", ErrUnresolvedReference, a.name, len(a.UVs), n)
	}
	for _, t := range a.Triangles {
		if int(t) >= n {
			return fmt.Errorf("%w: mesh %q triangle index %d of %d vertices", ErrUnresolvedReference, a.name, t, n)
		}
	}
	return a.Vertices.validate(d, "mesh "+a.name)
}

// ClippingAttachment masks the slots drawn after it until EndSlot.
type ClippingAttachment struct {
	name    string
	EndSlot int
	Vertices
	Color mgl32.Vec4
}

func NewClippingAttachment(name string) *ClippingAttachment {
	return &ClippingAttachment{name: name, EndSlot: -1}
}

func (a *ClippingAttachment) Name() string         { return a.name }
func (a *ClippingAttachment) Kind() AttachmentKind { return KindClipping }
