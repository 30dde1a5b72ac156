package skeleton

import (
	"fmt"
	"math"
	"sort"

	"skel-runtime/internal/curve"
	"skel-runtime/internal/mathutil"
)

// TimelineKind identifies what a timeline animates.
type TimelineKind uint8

const (
	TimelineRotate TimelineKind = iota
	TimelineTranslate
	TimelineTranslateX
	TimelineTranslateY
	TimelineScale
	TimelineScaleX
	TimelineScaleY
	TimelineShear
	TimelineShearX
	TimelineShearY
	TimelineRGBA
	TimelineRGB
	TimelineAlpha
	TimelineAttachment
	TimelineDrawOrder
	TimelineEvent
)

var timelineKindNames = [...]string{
	"rotate", "translate", "translatex", "translatey",
	"scale", "scalex", "scaley", "shear", "shearx", "sheary",
	"rgba", "rgb", "alpha", "attachment", "draworder", "event",
}

func (k TimelineKind) String() string {
	if int(k) < len(timelineKindNames) {
		return timelineKindNames[k]
	}
	return fmt.Sprintf("TimelineKind(%d)", k)
}

// ParseTimelineKind is the inverse of TimelineKind.String.
func ParseTimelineKind(s string) (TimelineKind, bool) {
	for i, n := range timelineKindNames {
		if n == s {
			return TimelineKind(i), true
		}
	}
	return 0, false
}

// Components is the number of curves a curve timeline of this kind holds.
func (k TimelineKind) Components() int {
	switch k {
	case TimelineTranslate, TimelineScale, TimelineShear:
		return 2
	case TimelineRGBA:
		return 4
	case TimelineRGB:
		return 3
	case TimelineAttachment, TimelineDrawOrder, TimelineEvent:
		return 0
	}
	return 1
}

// IsBone reports whether the kind targets a bone.
func (k TimelineKind) IsBone() bool { return k <= TimelineShearY }

// Timeline animates one property of an instance. Apply always poses from the
// setup pose: the result does not depend on what was applied before.
type Timeline interface {
	Kind() TimelineKind
	Duration() float32
	Apply(inst *Instance, lastTime, time float32, events *[]Event)
}

// Event is a fired or keyed event.
type Event struct {
	Data    *EventData
	Time    float32
	Int     int32
	Float   float32
	String  string
	Volume  float32
	Balance float32
}

func curvesDuration(curves []*curve.Curve) float32 {
	var d float32
	for _, c := range curves {
		if c != nil && c.Duration() > d {
			d = c.Duration()
		}
	}
	return d
}

// BoneTimeline animates a bone's rotation, translation, scale or shear.
type BoneTimeline struct {
	kind   TimelineKind
	Bone   int
	Curves []*curve.Curve
}

// NewBoneTimeline allocates the curves for kind.
func NewBoneTimeline(kind TimelineKind, bone int) *BoneTimeline {
	t := &BoneTimeline{kind: kind, Bone: bone, Curves: make([]*curve.Curve, kind.Components())}
	for i := range t.Curves {
		t.Curves[i] = &curve.Curve{}
	}
	return t
}

func (t *BoneTimeline) Kind() TimelineKind { return t.kind }
func (t *BoneTimeline) Duration() float32  { return curvesDuration(t.Curves) }

func (t *BoneTimeline) Apply(inst *Instance, _, time float32, _ *[]Event) {
	if t.Bone < 0 || t.Bone >= len(inst.Bones) {
		return
	}
	b := &inst.Bones[t.Bone]
	d := b.Data
	v := t.Curves[0].ValueAt(time)
	switch t.kind {
	case TimelineRotate:
		b.Rotation = d.Rotation + mathutil.WrapDegrees(v)
	case TimelineTranslate:
		b.X = d.X + v
		b.Y = d.Y + t.Curves[1].ValueAt(time)
	case TimelineTranslateX:
		b.X = d.X + v
	case TimelineTranslateY:
		b.Y = d.Y + v
	case TimelineScale:
		b.ScaleX = d.ScaleX * v
		b.ScaleY = d.ScaleY * t.Curves[1].ValueAt(time)
	case TimelineScaleX:
		b.ScaleX = d.ScaleX * v
	case TimelineScaleY:
		b.ScaleY = d.ScaleY * v
	case TimelineShear:
		b.ShearX = d.ShearX + v
		b.ShearY = d.ShearY + t.Curves[1].ValueAt(time)
	case TimelineShearX:
		b.ShearX = d.ShearX + v
	case TimelineShearY:
		b.ShearY = d.ShearY + v
	}
}

// ColorTimeline animates a slot's tint.
type ColorTimeline struct {
	kind   TimelineKind
	Slot   int
	Curves []*curve.Curve
}

// NewColorTimeline allocates the channel curves for kind (RGBA, RGB or Alpha).
func NewColorTimeline(kind TimelineKind, slot int) *ColorTimeline {
	t := &ColorTimeline{kind: kind, Slot: slot, Curves: make([]*curve.Curve, kind.Components())}
	for i := range t.Curves {
		t.Curves[i] = &curve.Curve{}
	}
	return t
}

func (t *ColorTimeline) Kind() TimelineKind { return t.kind }
func (t *ColorTimeline) Duration() float32  { return curvesDuration(t.Curves) }

func (t *ColorTimeline) Apply(inst *Instance, _, time float32, _ *[]Event) {
	if t.Slot < 0 || t.Slot >= len(inst.Slots) {
		return
	}
	s := &inst.Slots[t.Slot]
	switch t.kind {
	case TimelineRGBA:
		for i := 0; i < 4; i++ {
			s.Color[i] = mathutil.Clamp(t.Curves[i].ValueAt(time), 0, 1)
		}
	case TimelineRGB:
		for i := 0; i < 3; i++ {
			s.Color[i] = mathutil.Clamp(t.Curves[i].ValueAt(time), 0, 1)
		}
	case TimelineAlpha:
		s.Color[3] = mathutil.Clamp(t.Curves[0].ValueAt(time), 0, 1)
	}
}

// AttachmentTimeline switches a slot's attachment at key times.
// An empty name clears the slot.
type AttachmentTimeline struct {
	Slot  int
	Times []float32
	Names []string
}

func (t *AttachmentTimeline) Kind() TimelineKind { return TimelineAttachment }
func (t *AttachmentTimeline) Duration() float32  { return lastTime(t.Times) }

func (t *AttachmentTimeline) Apply(inst *Instance, _, time float32, _ *[]Event) {
	if t.Slot < 0 || t.Slot >= len(inst.Slots) || len(t.Times) == 0 {
		return
	}
	s := &inst.Slots[t.Slot]
	if time < t.Times[0] {
		inst.setSlotAttachment(t.Slot, s.Data.AttachmentName)
		return
	}
	inst.setSlotAttachment(t.Slot, t.Names[search(t.Times, time)])
}

// DrawOrderTimeline reorders slots at key times. A nil order restores the
// setup order.
type DrawOrderTimeline struct {
	Times  []float32
	Orders [][]int
}

func (t *DrawOrderTimeline) Kind() TimelineKind { return TimelineDrawOrder }
func (t *DrawOrderTimeline) Duration() float32  { return lastTime(t.Times) }

func (t *DrawOrderTimeline) Apply(inst *Instance, _, time float32, _ *[]Event) {
	if len(t.Times) == 0 {
		return
	}
	var order []int
	if time >= t.Times[0] {
		order = t.Orders[search(t.Times, time)]
	}
	if order == nil {
		inst.setupDrawOrder()
		return
	}
	copy(inst.DrawOrder, order)
}

// EventTimeline fires keyed events as time passes them.
type EventTimeline struct {
	Events []Event
}

func (t *EventTimeline) Kind() TimelineKind { return TimelineEvent }

func (t *EventTimeline) Duration() float32 {
	if len(t.Events) == 0 {
		return 0
	}
	return t.Events[len(t.Events)-1].Time
}

func (t *EventTimeline) Apply(_ *Instance, lastTime, time float32, events *[]Event) {
	if events == nil {
		return
	}
	t.Fire(lastTime, time, func(e Event) { *events = append(*events, e) })
}

// Fire calls fn for every key in (lastTime, time]. When lastTime > time the
// clock has wrapped and keys after lastTime fire before keys up to time.
func (t *EventTimeline) Fire(lastTime, time float32, fn func(Event)) {
	if lastTime > time {
		t.Fire(lastTime, float32(math.MaxFloat32), fn)
		lastTime = -1
	}
	for _, e := range t.Events {
		if e.Time > lastTime && e.Time <= time {
			fn(e)
		}
	}
}

func lastTime(times []float32) float32 {
	if len(times) == 0 {
		return 0
	}
	return times[len(times)-1]
}

// search returns the index of the last time <= t. times[0] <= t is assumed.
func search(times []float32, t float32) int {
	return sort.Search(len(times), func(i int) bool { return times[i] > t }) - 1
}

// Animation is a named set of timelines.
type Animation struct {
	Name      string
	Duration  float32
	Timelines []Timeline
}

// ComputeDuration sets Duration to the latest key time of any timeline.
func (a *Animation) ComputeDuration() {
	a.Duration = 0
	for _, tl := range a.Timelines {
		if d := tl.Duration(); d > a.Duration {
			a.Duration = d
		}
	}
}

// Apply poses inst at time. Events keyed in (lastTime, time] are appended
// to events when it is non-nil.
func (a *Animation) Apply(inst *Instance, lastTime, time float32, events *[]Event) {
	for _, tl := range a.Timelines {
		tl.Apply(inst, lastTime, time, events)
	}
}

// FireEvents reports the events keyed in (lastTime, time] without posing.
func (a *Animation) FireEvents(lastTime, time float32, fn func(Event)) {
	for _, tl := range a.Timelines {
		if et, ok := tl.(*EventTimeline); ok {
			et.Fire(lastTime, time, fn)
		}
	}
}
