// Package export persists decoded skeletons as YAML next to their packed
// atlas and reads them back without the binary decoder.
package export

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"skel-runtime/internal/curve"
	"skel-runtime/internal/skeleton"
)

// ErrVariantNotAllowed reports an attachment or timeline type outside the
// persisted set.
var ErrVariantNotAllowed = errors.New("export: variant not allowed")

// FormatVersion tags documents written by this package.
const FormatVersion = "skel-runtime/1"

var (
	allowedAttachments = map[string]bool{"region": true, "mesh": true, "clipping": true}
	allowedTimelines   = map[string]bool{
		"rotate": true, "translate": true, "translatex": true, "translatey": true,
		"scale": true, "scalex": true, "scaley": true,
		"shear": true, "shearx": true, "sheary": true,
		"rgba": true, "rgb": true, "alpha": true,
		"attachment": true, "draworder": true, "event": true,
	}
)

// Document is the YAML form of a skeleton. Bones, slots, events and skins
// refer to each other by index.
type Document struct {
	Format     string      `yaml:"format"`
	Name       string      `yaml:"name"`
	Hash       string      `yaml:"hash,omitempty"`
	Version    string      `yaml:"version,omitempty"`
	Bounds     [4]float32  `yaml:"bounds,flow"`
	FPS        float32     `yaml:"fps,omitempty"`
	ImagesPath string      `yaml:"images,omitempty"`
	AudioPath  string      `yaml:"audio,omitempty"`
	Bones      []Bone      `yaml:"bones"`
	Slots      []Slot      `yaml:"slots"`
	Skins      []Skin      `yaml:"skins"`
	Events     []Event     `yaml:"events,omitempty"`
	Animations []Animation `yaml:"animations,omitempty"`
}

type Bone struct {
	Name         string     `yaml:"name"`
	Parent       int        `yaml:"parent"`
	Length       float32    `yaml:"length,omitempty"`
	X            float32    `yaml:"x,omitempty"`
	Y            float32    `yaml:"y,omitempty"`
	Rotation     float32    `yaml:"rotation,omitempty"`
	ScaleX       float32    `yaml:"scalex"`
	ScaleY       float32    `yaml:"scaley"`
	ShearX       float32    `yaml:"shearx,omitempty"`
	ShearY       float32    `yaml:"sheary,omitempty"`
	Mode         string     `yaml:"mode,omitempty"`
	SkinRequired bool       `yaml:"skin_required,omitempty"`
	Color        [4]float32 `yaml:"color,flow"`
}

type Slot struct {
	Name       string      `yaml:"name"`
	Bone       int         `yaml:"bone"`
	Color      [4]float32  `yaml:"color,flow"`
	Dark       *[4]float32 `yaml:"dark,omitempty,flow"`
	Attachment string      `yaml:"attachment,omitempty"`
	Blend      string      `yaml:"blend,omitempty"`
}

type Skin struct {
	Name        string       `yaml:"name"`
	Bones       []int        `yaml:"bones,omitempty,flow"`
	Attachments []Attachment `yaml:"attachments,omitempty"`
}

// Attachment is tagged by Type; the fields used depend on it.
type Attachment struct {
	Slot int    `yaml:"slot"`
	Key  string `yaml:"key"`
	Name string `yaml:"name,omitempty"`
	Type string `yaml:"type"`

	Path     string     `yaml:"path,omitempty"`
	X        float32    `yaml:"x,omitempty"`
	Y        float32    `yaml:"y,omitempty"`
	Rotation float32    `yaml:"rotation,omitempty"`
	ScaleX   float32    `yaml:"scalex,omitempty"`
	ScaleY   float32    `yaml:"scaley,omitempty"`
	Width    float32    `yaml:"width,omitempty"`
	Height   float32    `yaml:"height,omitempty"`
	Color    [4]float32 `yaml:"color,flow"`

	UVs       []float32  `yaml:"uvs,omitempty,flow"`
	Triangles []uint16   `yaml:"triangles,omitempty,flow"`
	Vertices  []float32  `yaml:"vertices,omitempty,flow"`
	Weights   [][]Weight `yaml:"weights,omitempty"`
	Hull      int        `yaml:"hull,omitempty"`
	Edges     []uint16   `yaml:"edges,omitempty,flow"`

	EndSlot int `yaml:"end,omitempty"`
}

// Weight is [bone, x, y, weight].
type Weight [4]float32

type Event struct {
	Name    string  `yaml:"name"`
	Int     int32   `yaml:"int,omitempty"`
	Float   float32 `yaml:"float,omitempty"`
	String  string  `yaml:"string,omitempty"`
	Audio   string  `yaml:"audio,omitempty"`
	Volume  float32 `yaml:"volume,omitempty"`
	Balance float32 `yaml:"balance,omitempty"`
}

type Animation struct {
	Name      string     `yaml:"name"`
	Timelines []Timeline `yaml:"timelines"`
}

// Timeline is tagged by Type. Bone and color timelines keep one key list
// per component in Curves.
type Timeline struct {
	Type   string     `yaml:"type"`
	Bone   *int       `yaml:"bone,omitempty"`
	Slot   *int       `yaml:"slot,omitempty"`
	Curves [][]Key    `yaml:"curves,omitempty"`
	Times  []float32  `yaml:"times,omitempty,flow"`
	Names  []string   `yaml:"names,omitempty,flow"`
	Orders [][]int    `yaml:"orders,omitempty,flow"`
	Events []EventKey `yaml:"events,omitempty"`
}

type Key struct {
	Time   float32     `yaml:"t"`
	Value  float32     `yaml:"v"`
	Interp string      `yaml:"interp,omitempty"`
	Left   *[2]float32 `yaml:"left,omitempty,flow"`
	Right  *[2]float32 `yaml:"right,omitempty,flow"`
}

type EventKey struct {
	Event   int     `yaml:"event"`
	Time    float32 `yaml:"t"`
	Int     int32   `yaml:"int,omitempty"`
	Float   float32 `yaml:"float,omitempty"`
	String  string  `yaml:"string,omitempty"`
	Volume  float32 `yaml:"volume,omitempty"`
	Balance float32 `yaml:"balance,omitempty"`
}

func vec4(v mgl32.Vec4) [4]float32 { return [4]float32(v) }

func flatten(vs []mgl32.Vec2) []float32 {
	if vs == nil {
		return nil
	}
	out := make([]float32, 0, 2*len(vs))
	for _, v := range vs {
		out = append(out, v[0], v[1])
	}
	return out
}

// FromData converts a validated graph into its document.
func FromData(d *skeleton.Data) (*Document, error) {
	doc := &Document{
		Format:     FormatVersion,
		Name:       d.Name,
		Hash:       d.Hash,
		Version:    d.Version,
		Bounds:     [4]float32{d.X, d.Y, d.Width, d.Height},
		FPS:        d.FPS,
		ImagesPath: d.ImagesPath,
		AudioPath:  d.AudioPath,
	}
	for _, b := range d.Bones {
		doc.Bones = append(doc.Bones, Bone{
			Name: b.Name, Parent: b.Parent, Length: b.Length,
			X: b.X, Y: b.Y, Rotation: b.Rotation,
			ScaleX: b.ScaleX, ScaleY: b.ScaleY, ShearX: b.ShearX, ShearY: b.ShearY,
			Mode: b.Mode.String(), SkinRequired: b.SkinRequired, Color: vec4(b.Color),
		})
	}
	for _, s := range d.Slots {
		slot := Slot{Name: s.Name, Bone: s.Bone, Color: vec4(s.Color), Attachment: s.AttachmentName, Blend: s.Blend.String()}
		if s.HasDarkColor {
			dark := vec4(s.DarkColor)
			slot.Dark = &dark
		}
		doc.Slots = append(doc.Slots, slot)
	}
	for _, skin := range d.AllSkins() {
		out := Skin{Name: skin.Name, Bones: skin.Bones}
		for _, e := range skin.Entries() {
			a, err := fromAttachment(e)
			if err != nil {
				return nil, errors.Wrapf(err, "skin %q", skin.Name)
			}
			out.Attachments = append(out.Attachments, a)
		}
		doc.Skins = append(doc.Skins, out)
	}

	events := make(map[*skeleton.EventData]int, len(d.Events))
	for i, e := range d.Events {
		events[e] = i
		doc.Events = append(doc.Events, Event{
			Name: e.Name, Int: e.Int, Float: e.Float, String: e.String,
			Audio: e.AudioPath, Volume: e.Volume, Balance: e.Balance,
		})
	}
	for _, a := range d.Animations {
		out := Animation{Name: a.Name}
		for _, tl := range a.Timelines {
			t, err := fromTimeline(tl, events)
			if err != nil {
				return nil, errors.Wrapf(err, "animation %q", a.Name)
			}
			out.Timelines = append(out.Timelines, t)
		}
		doc.Animations = append(doc.Animations, out)
	}
	return doc, nil
}

func fromAttachment(e skeleton.SkinEntry) (Attachment, error) {
	out := Attachment{Slot: e.Slot, Key: e.Name}
	if n := e.Attachment.Name(); n != e.Name {
		out.Name = n
	}
	switch a := e.Attachment.(type) {
	case *skeleton.RegionAttachment:
		out.Type = "region"
		out.Path = a.Path
		out.X, out.Y, out.Rotation = a.X, a.Y, a.Rotation
		out.ScaleX, out.ScaleY = a.ScaleX, a.ScaleY
		out.Width, out.Height = a.Width, a.Height
		out.Color = vec4(a.Color)
	case *skeleton.MeshAttachment:
		out.Type = "mesh"
		out.Path = a.Path
		out.Color = vec4(a.Color)
		out.UVs = flatten(a.UVs)
		out.Triangles = a.Triangles
		out.Vertices, out.Weights = fromVertices(&a.Vertices)
		out.Hull = a.HullLength
		out.Edges = a.Edges
		out.Width, out.Height = a.Width, a.Height
	case *skeleton.ClippingAttachment:
		out.Type = "clipping"
		out.EndSlot = a.EndSlot
		out.Color = vec4(a.Color)
		out.Vertices, out.Weights = fromVertices(&a.Vertices)
	default:
		return out, errors.Wrapf(ErrVariantNotAllowed, "attachment %q of kind %v", e.Name, e.Attachment.Kind())
	}
	return out, nil
}

func fromVertices(v *skeleton.Vertices) ([]float32, [][]Weight) {
	if !v.Weighted() {
		return flatten(v.Positions), nil
	}
	out := make([][]Weight, len(v.Weights))
	for i, ws := range v.Weights {
		out[i] = make([]Weight, len(ws))
		for j, w := range ws {
			out[i][j] = Weight{float32(w.Bone), w.Offset[0], w.Offset[1], w.Weight}
		}
	}
	return nil, out
}

func fromCurve(c *curve.Curve) []Key {
	keys := c.Keys()
	out := make([]Key, len(keys))
	for i, k := range keys {
		out[i] = Key{Time: k.Time, Value: k.Value}
		if k.Interp != curve.Linear {
			out[i].Interp = k.Interp.String()
		}
		if k.HasLeft {
			h := [2]float32(k.HandleLeft)
			out[i].Left = &h
		}
		if k.HasRight {
			h := [2]float32(k.HandleRight)
			out[i].Right = &h
		}
	}
	return out
}

func fromTimeline(tl skeleton.Timeline, events map[*skeleton.EventData]int) (Timeline, error) {
	out := Timeline{Type: tl.Kind().String()}
	switch t := tl.(type) {
	case *skeleton.BoneTimeline:
		bone := t.Bone
		out.Bone = &bone
		for _, c := range t.Curves {
			out.Curves = append(out.Curves, fromCurve(c))
		}
	case *skeleton.ColorTimeline:
		slot := t.Slot
		out.Slot = &slot
		for _, c := range t.Curves {
			out.Curves = append(out.Curves, fromCurve(c))
		}
	case *skeleton.AttachmentTimeline:
		slot := t.Slot
		out.Slot = &slot
		out.Times = t.Times
		out.Names = t.Names
	case *skeleton.DrawOrderTimeline:
		out.Times = t.Times
		out.Orders = make([][]int, len(t.Orders))
		for i, o := range t.Orders {
			out.Orders[i] = o
			if o == nil {
				out.Orders[i] = []int{}
			}
		}
	case *skeleton.EventTimeline:
		for _, e := range t.Events {
			idx, ok := events[e.Data]
			if !ok {
				return out, errors.Wrapf(skeleton.ErrUnresolvedReference, "event key at %v", e.Time)
			}
			out.Events = append(out.Events, EventKey{
				Event: idx, Time: e.Time, Int: e.Int, Float: e.Float,
				String: e.String, Volume: e.Volume, Balance: e.Balance,
			})
		}
	default:
		return out, errors.Wrapf(ErrVariantNotAllowed, "timeline %v", tl.Kind())
	}
	if !allowedTimelines[out.Type] {
		return out, errors.Wrapf(ErrVariantNotAllowed, "timeline %q", out.Type)
	}
	return out, nil
}
