package viewer

import (
	"skel-runtime/internal/skeleton"
)

type AnimationSummary struct {
	Name     string  `json:"name"`
	Duration float32 `json:"duration"`
}

// Summary describes a model without its pose.
type Summary struct {
	Name       string             `json:"name"`
	Hash       string             `json:"hash,omitempty"`
	Version    string             `json:"version,omitempty"`
	Bounds     [4]float32         `json:"bounds"`
	Bound      bool               `json:"bound"`
	Bones      []string           `json:"bones"`
	Slots      []string           `json:"slots"`
	Skins      []string           `json:"skins"`
	Events     []string           `json:"events"`
	Animations []AnimationSummary `json:"animations"`
}

func Summarize(d *skeleton.Data) Summary {
	s := Summary{
		Name:       d.Name,
		Hash:       d.Hash,
		Version:    d.Version,
		Bounds:     [4]float32{d.X, d.Y, d.Width, d.Height},
		Bound:      d.Bound(),
		Bones:      make([]string, 0, len(d.Bones)),
		Slots:      make([]string, 0, len(d.Slots)),
		Skins:      []string{},
		Events:     make([]string, 0, len(d.Events)),
		Animations: make([]AnimationSummary, 0, len(d.Animations)),
	}
	for _, b := range d.Bones {
		s.Bones = append(s.Bones, b.Name)
	}
	for _, sl := range d.Slots {
		s.Slots = append(s.Slots, sl.Name)
	}
	for _, sk := range d.AllSkins() {
		s.Skins = append(s.Skins, sk.Name)
	}
	for _, e := range d.Events {
		s.Events = append(s.Events, e.Name)
	}
	for _, a := range d.Animations {
		s.Animations = append(s.Animations, AnimationSummary{Name: a.Name, Duration: a.Duration})
	}
	return s
}

type BonePose struct {
	Name     string     `json:"name"`
	X        float32    `json:"x"`
	Y        float32    `json:"y"`
	Rotation float32    `json:"rotation"`
	ScaleX   float32    `json:"scalex"`
	ScaleY   float32    `json:"scaley"`
	World    [6]float32 `json:"world"` // a, b, c, d, x, y
}

type SlotPose struct {
	Name       string     `json:"name"`
	Attachment string     `json:"attachment,omitempty"`
	Color      [4]float32 `json:"color"`
}

type EventPose struct {
	Name   string  `json:"name"`
	Time   float32 `json:"time"`
	Int    int32   `json:"int"`
	Float  float32 `json:"float"`
	String string  `json:"string,omitempty"`
}

// Pose is the local and world state of an instance at one time.
type Pose struct {
	Session   string      `json:"session,omitempty"`
	Model     string      `json:"model"`
	Animation string      `json:"animation,omitempty"`
	Time      float32     `json:"time"`
	Bones     []BonePose  `json:"bones"`
	Slots     []SlotPose  `json:"slots"`
	DrawOrder []int       `json:"draw_order"`
	Events    []EventPose `json:"events,omitempty"`
}

// Snapshot captures inst, whose world transforms must be current.
func Snapshot(inst *skeleton.Instance, animation string, t float32) Pose {
	p := Pose{
		Model:     inst.Data.Name,
		Animation: animation,
		Time:      t,
		Bones:     make([]BonePose, len(inst.Bones)),
		Slots:     make([]SlotPose, len(inst.Slots)),
		DrawOrder: append([]int(nil), inst.DrawOrder...),
	}
	for i := range inst.Bones {
		b := &inst.Bones[i]
		w := b.World
		p.Bones[i] = BonePose{
			Name: b.Data.Name, X: b.X, Y: b.Y, Rotation: b.Rotation,
			ScaleX: b.ScaleX, ScaleY: b.ScaleY,
			World: [6]float32{w.A, w.B, w.C, w.D, w.X, w.Y},
		}
	}
	for i := range inst.Slots {
		sl := &inst.Slots[i]
		p.Slots[i] = SlotPose{Name: sl.Data.Name, Color: sl.Color}
		if sl.Attachment != nil {
			p.Slots[i].Attachment = sl.Attachment.Name()
		}
	}
	return p
}

func eventPose(ev skeleton.Event) EventPose {
	return EventPose{Name: ev.Data.Name, Time: ev.Time, Int: ev.Int, Float: ev.Float, String: ev.String}
}
