package skeleton

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"

	"skel-runtime/internal/mathutil"
)

// Bone is the mutable pose of one bone inside an Instance.
type Bone struct {
	Data     *BoneData
	Parent   int
	Children []int

	X, Y     float32
	Rotation float32
	ScaleX   float32
	ScaleY   float32
	ShearX   float32
	ShearY   float32

	World mathutil.Affine
}

// SetToSetupPose copies the local pose from the bone data.
func (b *Bone) SetToSetupPose() {
	d := b.Data
	b.X, b.Y = d.X, d.Y
	b.Rotation = d.Rotation
	b.ScaleX, b.ScaleY = d.ScaleX, d.ScaleY
	b.ShearX, b.ShearY = d.ShearX, d.ShearY
}

// WorldPosition returns the bone origin in world space.
func (b *Bone) WorldPosition() mgl32.Vec2 { return mgl32.Vec2{b.World.X, b.World.Y} }

func (b *Bone) WorldRotationX() float32 { return b.World.RotationX() }
func (b *Bone) WorldRotationY() float32 { return b.World.RotationY() }
func (b *Bone) WorldScaleX() float32    { return b.World.ScaleX() }
func (b *Bone) WorldScaleY() float32    { return b.World.ScaleY() }

// LocalToWorld maps a point in bone space to world space.
func (b *Bone) LocalToWorld(p mgl32.Vec2) mgl32.Vec2 { return b.World.Apply(p) }

// WorldToLocal maps a world point into bone space.
func (b *Bone) WorldToLocal(p mgl32.Vec2) mgl32.Vec2 { return b.World.Inverse().Apply(p) }

// Slot is the mutable state of one draw slot.
type Slot struct {
	Data           *SlotData
	Bone           int
	Color          mgl32.Vec4
	DarkColor      mgl32.Vec4
	AttachmentName string
	Attachment     Attachment
}

// Instance is one posed, animatable copy of a skeleton. Many instances may
// share the same Data. An Instance is not safe for concurrent use.
type Instance struct {
	ID        uuid.UUID
	Data      *Data
	Bones     []Bone
	Slots     []Slot
	DrawOrder []int
	Skin      *Skin

	X, Y           float32
	ScaleX, ScaleY float32
}

// Instantiate creates an instance in the setup pose with world transforms
// computed.
func (d *Data) Instantiate() *Instance {
	inst := &Instance{
		ID:        uuid.New(),
		Data:      d,
		Bones:     make([]Bone, len(d.Bones)),
		Slots:     make([]Slot, len(d.Slots)),
		DrawOrder: make([]int, len(d.Slots)),
		ScaleX:    1,
		ScaleY:    1,
	}
	for i, bd := range d.Bones {
		inst.Bones[i] = Bone{Data: bd, Parent: bd.Parent}
		if bd.Parent >= 0 {
			p := &inst.Bones[bd.Parent]
			p.Children = append(p.Children, i)
		}
	}
	for i, sd := range d.Slots {
		inst.Slots[i] = Slot{Data: sd, Bone: sd.Bone}
	}
	inst.SetToSetupPose()
	inst.UpdateWorldTransform()
	return inst
}

// SetToSetupPose resets bones, slots and draw order.
func (inst *Instance) SetToSetupPose() {
	inst.SetBonesToSetupPose()
	inst.SetSlotsToSetupPose()
}

func (inst *Instance) SetBonesToSetupPose() {
	for i := range inst.Bones {
		inst.Bones[i].SetToSetupPose()
	}
}

func (inst *Instance) SetSlotsToSetupPose() {
	inst.setupDrawOrder()
	for i := range inst.Slots {
		s := &inst.Slots[i]
		s.Color = s.Data.Color
		s.DarkColor = s.Data.DarkColor
		inst.setSlotAttachment(i, s.Data.AttachmentName)
	}
}

func (inst *Instance) setupDrawOrder() {
	for i := range inst.DrawOrder {
		inst.DrawOrder[i] = i
	}
}

// FindBone returns the pose of the named bone, or nil.
func (inst *Instance) FindBone(name string) *Bone {
	bd := inst.Data.FindBone(name)
	if bd == nil {
		return nil
	}
	return &inst.Bones[bd.Index]
}

// FindSlot returns the state of the named slot, or nil.
func (inst *Instance) FindSlot(name string) *Slot {
	sd := inst.Data.FindSlot(name)
	if sd == nil {
		return nil
	}
	return &inst.Slots[sd.Index]
}

// ResolveAttachment looks name up in the active skin, then the default skin.
func (inst *Instance) ResolveAttachment(slot int, name string) Attachment {
	if name == "" {
		return nil
	}
	if inst.Skin != nil {
		if a := inst.Skin.Attachment(slot, name); a != nil {
			return a
		}
	}
	return inst.Data.DefaultSkin.Attachment(slot, name)
}

func (inst *Instance) setSlotAttachment(slot int, name string) {
	s := &inst.Slots[slot]
	s.AttachmentName = name
	s.Attachment = inst.ResolveAttachment(slot, name)
}

// SetSkin activates the named skin and re-resolves every slot's attachment.
// An empty name leaves only the default skin active.
func (inst *Instance) SetSkin(name string) error {
	var skin *Skin
	if name != "" {
		skin = inst.Data.FindSkin(name)
		if skin == nil {
			return fmt.Errorf("%w: skin %q", ErrNotFound, name)
		}
	}
	inst.Skin = skin
	for i := range inst.Slots {
		inst.setSlotAttachment(i, inst.Slots[i].AttachmentName)
	}
	return nil
}

// SetAttachment shows attachmentName on the named slot. An empty attachment
// name clears the slot.
func (inst *Instance) SetAttachment(slotName, attachmentName string) error {
	sd := inst.Data.FindSlot(slotName)
	if sd == nil {
		return fmt.Errorf("%w: slot %q", ErrNotFound, slotName)
	}
	if attachmentName != "" && inst.ResolveAttachment(sd.Index, attachmentName) == nil {
		return fmt.Errorf("%w: attachment %q on slot %q", ErrNotFound, attachmentName, slotName)
	}
	inst.setSlotAttachment(sd.Index, attachmentName)
	return nil
}
