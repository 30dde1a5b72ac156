package skeleton

import (
	"fmt"
	"sort"
)

// DefaultSkinName is the name given to the unnamed default skin.
const DefaultSkinName = "default"

// SkinKey addresses an attachment by slot and placeholder name.
type SkinKey struct {
	Slot int
	Name string
}

// SkinEntry is one attachment of a skin.
type SkinEntry struct {
	SkinKey
	Attachment Attachment
}

// Skin maps (slot, placeholder name) to attachments.
type Skin struct {
	Name        string
	Bones       []int
	attachments map[SkinKey]Attachment
}

func NewSkin(name string) *Skin {
	return &Skin{Name: name, attachments: make(map[SkinKey]Attachment)}
}

// SetAttachment stores a under (slot, name), replacing any previous entry.
func (s *Skin) SetAttachment(slot int, name string, a Attachment) {
	s.attachments[SkinKey{slot, name}] = a
}

// Attachment returns the attachment for (slot, name), or nil.
func (s *Skin) Attachment(slot int, name string) Attachment {
	if s == nil {
		return nil
	}
	return s.attachments[SkinKey{slot, name}]
}

func (s *Skin) Len() int { return len(s.attachments) }

// Entries returns every attachment ordered by slot then name.
func (s *Skin) Entries() []SkinEntry {
	out := make([]SkinEntry, 0, len(s.attachments))
	for k, a := range s.attachments {
		out = append(out, SkinEntry{SkinKey: k, Attachment: a})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot != out[j].Slot {
			return out[i].Slot < out[j].Slot
		}
		return out[i].Name < out[j].Name
	})
	return out
}

func (s *Skin) validate(d *Data) error {
	for _, b := range s.Bones {
		if b < 0 || b >= len(d.Bones) {
			return fmt.Errorf("%w: skin %q bone %d", ErrUnresolvedReference, s.Name, b)
		}
	}
	for _, e := range s.Entries() {
		if e.Slot < 0 || e.Slot >= len(d.Slots) {
			return fmt.Errorf("%w: skin %q slot %d", ErrUnresolvedReference, s.Name, e.Slot)
		}
		switch a := e.Attachment.(type) {
		case *MeshAttachment:
			if err := a.validate(d); err != nil {
				return err
			}
		case *ClippingAttachment:
			if a.EndSlot < 0 || a.EndSlot >= len(d.Slots) {
				return fmt.Errorf("%w: clipping %q end slot %d", ErrUnresolvedReference, a.name, a.EndSlot)
			}
			if err := a.Vertices.validate(d, "clipping "+a.name); err != nil {
				return err
			}
		}
	}
	return nil
}
