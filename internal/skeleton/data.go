package skeleton

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrUnresolvedReference = errors.New("unresolved reference")
	ErrAtlasRegionMissing  = errors.New("atlas region missing")
	ErrAlreadyBound        = errors.New("skeleton: atlas already bound")
	ErrNotFound            = errors.New("skeleton: not found")
)

// TransformMode selects which parts of the parent transform a bone inherits.
type TransformMode uint8

const (
	ModeNormal TransformMode = iota
	ModeOnlyTranslation
	ModeNoRotationOrReflection
	ModeNoScale
	ModeNoScaleOrReflection
)

var transformModeNames = [...]string{"normal", "onlyTranslation", "noRotationOrReflection", "noScale", "noScaleOrReflection"}

func (m TransformMode) String() string {
	if int(m) < len(transformModeNames) {
		return transformModeNames[m]
	}
	return fmt.Sprintf("TransformMode(%d)", m)
}

// ParseTransformMode is the inverse of TransformMode.String.
func ParseTransformMode(s string) (TransformMode, bool) {
	for i, n := range transformModeNames {
		if n == s {
			return TransformMode(i), true
		}
	}
	return 0, false
}

// BlendMode is the compositing mode of a slot.
type BlendMode uint8

const (
	BlendNormal BlendMode = iota
	BlendAdditive
	BlendMultiply
	BlendScreen
)

var blendModeNames = [...]string{"normal", "additive", "multiply", "screen"}

func (b BlendMode) String() string {
	if int(b) < len(blendModeNames) {
		return blendModeNames[b]
	}
	return fmt.Sprintf("BlendMode(%d)", b)
}

// ParseBlendMode is the inverse of BlendMode.String.
func ParseBlendMode(s string) (BlendMode, bool) {
	for i, n := range blendModeNames {
		if n == s {
			return BlendMode(i), true
		}
	}
	return 0, false
}

// BoneData is the setup pose of one bone.
type BoneData struct {
	Index        int
	Name         string
	Parent       int // -1 for the root
	Length       float32
	X, Y         float32
	Rotation     float32
	ScaleX       float32
	ScaleY       float32
	ShearX       float32
	ShearY       float32
	Mode         TransformMode
	SkinRequired bool
	Color        mgl32.Vec4
}

// SlotData is the setup state of one draw slot.
type SlotData struct {
	Index          int
	Name           string
	Bone           int
	Color          mgl32.Vec4
	DarkColor      mgl32.Vec4
	HasDarkColor   bool
	AttachmentName string
	Blend          BlendMode
}

// EventData is a named event definition with default payload.
type EventData struct {
	Name      string
	Int       int32
	Float     float32
	String    string
	AudioPath string
	Volume    float32
	Balance   float32
}

// HasAudio reports whether keys of this event carry volume and balance.
func (e *EventData) HasAudio() bool { return e.AudioPath != "" }

// Data is the immutable, shareable skeleton definition. After decoding the
// only permitted mutation is a single BindAtlas call.
type Data struct {
	Name       string
	Hash       string
	Version    string
	X, Y       float32
	Width      float32
	Height     float32
	FPS        float32
	ImagesPath string
	AudioPath  string

	Bones       []*BoneData
	Slots       []*SlotData
	DefaultSkin *Skin
	Skins       []*Skin
	Events      []*EventData
	Animations  []*Animation

	bones      map[string]int
	slots      map[string]int
	skins      map[string]int
	events     map[string]int
	animations map[string]int

	bound atomic.Bool
}

// Index builds the name lookup tables. It is called once after the graph
// has been populated.
func (d *Data) Index() {
	d.bones = make(map[string]int, len(d.Bones))
	for i, b := range d.Bones {
		d.bones[b.Name] = i
	}
	d.slots = make(map[string]int, len(d.Slots))
	for i, s := range d.Slots {
		d.slots[s.Name] = i
	}
	d.skins = make(map[string]int, len(d.Skins))
	for i, s := range d.Skins {
		d.skins[s.Name] = i
	}
	d.events = make(map[string]int, len(d.Events))
	for i, e := range d.Events {
		d.events[e.Name] = i
	}
	d.animations = make(map[string]int, len(d.Animations))
	for i, a := range d.Animations {
		d.animations[a.Name] = i
	}
}

func lookup(m map[string]int, name string, n int, nameAt func(int) string) int {
	if m != nil {
		if i, ok := m[name]; ok {
			return i
		}
		return -1
	}
	for i := 0; i < n; i++ {
		if nameAt(i) == name {
			return i
		}
	}
	return -1
}

// FindBone returns the bone named name, or nil.
func (d *Data) FindBone(name string) *BoneData {
	i := lookup(d.bones, name, len(d.Bones), func(i int) string { return d.Bones[i].Name })
	if i < 0 {
		return nil
	}
	return d.Bones[i]
}

// FindSlot returns the slot named name, or nil.
func (d *Data) FindSlot(name string) *SlotData {
	i := lookup(d.slots, name, len(d.Slots), func(i int) string { return d.Slots[i].Name })
	if i < 0 {
		return nil
	}
	return d.Slots[i]
}

// FindSkin returns the named skin. "" and "default" return the default skin.
func (d *Data) FindSkin(name string) *Skin {
	if name == "" || name == DefaultSkinName {
		return d.DefaultSkin
	}
	i := lookup(d.skins, name, len(d.Skins), func(i int) string { return d.Skins[i].Name })
	if i < 0 {
		return nil
	}
	return d.Skins[i]
}

// FindEvent returns the event definition named name, or nil.
func (d *Data) FindEvent(name string) *EventData {
	i := lookup(d.events, name, len(d.Events), func(i int) string { return d.Events[i].Name })
	if i < 0 {
		return nil
	}
	return d.Events[i]
}

// FindAnimation returns the animation named name, or nil.
func (d *Data) FindAnimation(name string) *Animation {
	i := lookup(d.animations, name, len(d.Animations), func(i int) string { return d.Animations[i].Name })
	if i < 0 {
		return nil
	}
	return d.Animations[i]
}

// AllSkins returns the default skin followed by the named skins.
func (d *Data) AllSkins() []*Skin {
	out := make([]*Skin, 0, len(d.Skins)+1)
	if d.DefaultSkin != nil {
		out = append(out, d.DefaultSkin)
	}
	return append(out, d.Skins...)
}

// Validate checks referential integrity of the whole graph.
func (d *Data) Validate() error {
	if len(d.Bones) == 0 {
		return fmt.Errorf("%w: skeleton has no bones", ErrUnresolvedReference)
	}
	for i, b := range d.Bones {
		if b.Index != i {
			return fmt.Errorf("%w: bone %q stored at %d has index %d", ErrUnresolvedReference, b.Name, i, b.Index)
		}
		if i == 0 {
			if b.Parent != -1 {
				return fmt.Errorf("%w: root bone %q has parent %d", ErrUnresolvedReference, b.Name, b.Parent)
			}
			continue
		}
		if b.Parent < 0 || b.Parent >= i {
			return fmt.Errorf("%w: bone %q parent %d", ErrUnresolvedReference, b.Name, b.Parent)
		}
	}
	for i, s := range d.Slots {
		if s.Index != i {
			return fmt.Errorf("%w: slot %q stored at %d has index %d", ErrUnresolvedReference, s.Name, i, s.Index)
		}
		if s.Bone < 0 || s.Bone >= len(d.Bones) {
			return fmt.Errorf("%w: slot %q bone %d", ErrUnresolvedReference, s.Name, s.Bone)
		}
	}
	if d.DefaultSkin == nil {
		return fmt.Errorf("%w: missing default skin", ErrUnresolvedReference)
	}
	for _, skin := range d.AllSkins() {
		if err := skin.validate(d); err != nil {
			return err
		}
	}
	for _, a := range d.Animations {
		for _, tl := range a.Timelines {
			if err := validateTimeline(d, tl); err != nil {
				return fmt.Errorf("animation %q: %w", a.Name, err)
			}
		}
	}
	return nil
}

func validateTimeline(d *Data, tl Timeline) error {
	switch t := tl.(type) {
	case *BoneTimeline:
		if t.Bone < 0 || t.Bone >= len(d.Bones) {
			return fmt.Errorf("%w: %s timeline bone %d", ErrUnresolvedReference, t.Kind(), t.Bone)
		}
		if len(t.Curves) != t.Kind().Components() {
			return fmt.Errorf("%w: %s timeline has %d curves", ErrUnresolvedReference, t.Kind(), len(t.Curves))
		}
	case *ColorTimeline:
		if t.Slot < 0 || t.Slot >= len(d.Slots) {
			return fmt.Errorf("%w: %s timeline slot %d", ErrUnresolvedReference, t.Kind(), t.Slot)
		}
		if len(t.Curves) != t.Kind().Components() {
			return fmt.Errorf("%w: %s timeline has %d curves", ErrUnresolvedReference, t.Kind(), len(t.Curves))
		}
	case *AttachmentTimeline:
		if t.Slot < 0 || t.Slot >= len(d.Slots) {
			return fmt.Errorf("%w: attachment timeline slot %d", ErrUnresolvedReference, t.Slot)
		}
		if len(t.Times) != len(t.Names) {
			return fmt.Errorf("%w: attachment timeline has %d times and %d names", ErrUnresolvedReference, len(t.Times), len(t.Names))
		}
	case *DrawOrderTimeline:
		for _, order := range t.Orders {
			if order != nil && len(order) != len(d.Slots) {
				return fmt.Errorf("%w: draw order of %d slots, want %d", ErrUnresolvedReference, len(order), len(d.Slots))
			}
			for _, s := range order {
				if s < 0 || s >= len(d.Slots) {
					return fmt.Errorf("%w: draw order slot %d", ErrUnresolvedReference, s)
				}
			}
		}
	case *EventTimeline:
		for _, e := range t.Events {
			if e.Data == nil {
				return fmt.Errorf("%w: event key without definition", ErrUnresolvedReference)
			}
		}
	}
	return nil
}
