package anim

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"skel-runtime/internal/curve"
	"skel-runtime/internal/skeleton"
)

// testData has one bone and three animations: "spin" rotates the bone from 0
// to 90 degrees over one second and fires "step" at 0.5, "hold" keys x=5
// for two seconds and "empty" has no timelines.
func testData() *skeleton.Data {
	step := &skeleton.EventData{Name: "step"}
	rot := skeleton.NewBoneTimeline(skeleton.TimelineRotate, 0)
	rot.Curves[0] = curve.New(
		curve.Keyframe{Time: 0, Value: 0},
		curve.Keyframe{Time: 1, Value: 90},
	)
	spin := &skeleton.Animation{Name: "spin", Timelines: []skeleton.Timeline{
		rot,
		&skeleton.EventTimeline{Events: []skeleton.Event{{Data: step, Time: 0.5}}},
	}}
	tx := skeleton.NewBoneTimeline(skeleton.TimelineTranslateX, 0)
	tx.Curves[0] = curve.New(
		curve.Keyframe{Time: 0, Value: 5},
		curve.Keyframe{Time: 2, Value: 5},
	)
	hold := &skeleton.Animation{Name: "hold", Timelines: []skeleton.Timeline{tx}}
	empty := &skeleton.Animation{Name: "empty"}
	for _, a := range []*skeleton.Animation{spin, hold, empty} {
		a.ComputeDuration()
	}

	d := &skeleton.Data{
		Name: "test",
		Bones: []*skeleton.BoneData{{
			Index: 0, Name: "root", Parent: -1, ScaleX: 1, ScaleY: 1,
		}},
		DefaultSkin: skeleton.NewSkin(skeleton.DefaultSkinName),
		Events:      []*skeleton.EventData{step},
		Animations:  []*skeleton.Animation{spin, hold, empty},
	}
	d.Index()
	return d
}

type recorder struct {
	log []string
}

func (r *recorder) listener() Listener {
	add := func(kind string) func(int, *Entry) {
		return func(ch int, e *Entry) {
			r.log = append(r.log, fmt.Sprintf("%s %d %s", kind, ch, e.Animation.Name))
		}
	}
	return Funcs{
		OnStart:    add("start"),
		OnComplete: add("complete"),
		OnEnd:      add("end"),
		OnEvent: func(ch int, e *Entry, ev skeleton.Event) {
			r.log = append(r.log, fmt.Sprintf("event %d %s", ch, ev.Data.Name))
		},
	}
}

func near(a, b float32) bool { return mgl32.FloatEqualThreshold(a, b, 1e-4) }

func TestSetAnimationUnknown(t *testing.T) {
	s := New(testData())
	if _, err := s.SetAnimation(0, "fly", true); !errors.Is(err, skeleton.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
	if s.ChannelState(0) != Idle {
		t.Error("channel started on error")
	}
}

func TestLoopWraps(t *testing.T) {
	s := New(testData())
	if _, err := s.SetAnimation(0, "spin", true); err != nil {
		t.Fatal(err)
	}
	s.Update(0.75)
	s.Update(0.5)
	e := s.Current(0)
	if e == nil || !near(e.Time, 0.25) {
		t.Fatalf("entry = %+v, want time 0.25", e)
	}
	if s.ChannelState(0) != Playing {
		t.Error("looping channel went idle")
	}
}

func TestZeroLengthLoop(t *testing.T) {
	s := New(testData())
	if _, err := s.SetAnimation(0, "empty", true); err != nil {
		t.Fatal(err)
	}
	s.Update(1)
	if e := s.Current(0); e == nil || e.Time != 0 {
		t.Fatalf("entry = %+v", e)
	}
}

func TestQueueAdvances(t *testing.T) {
	d := testData()
	s := New(d)
	var r recorder
	s.Listener = r.listener()

	if _, err := s.SetAnimation(0, "spin", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddAnimation(0, "hold", false); err != nil {
		t.Fatal(err)
	}
	if q := s.Queue(0); len(q) != 1 || q[0].Animation.Name != "hold" {
		t.Fatalf("queue = %v", q)
	}

	s.Update(1.5)
	if e := s.Current(0); e == nil || e.Animation.Name != "spin" || !e.Complete() {
		t.Fatalf("current = %+v, want spin held at its end", e)
	}
	s.Update(0.25)
	e := s.Current(0)
	if e == nil || e.Animation.Name != "hold" || !near(e.Time, 0.25) {
		t.Fatalf("current = %+v, want hold at 0.25", e)
	}
	s.Update(3)
	s.Update(0)
	if s.ChannelState(0) != Idle {
		t.Error("channel still playing after the queue drained")
	}

	want := []string{
		"start 0 spin",
		"event 0 step",
		"complete 0 spin",
		"end 0 spin",
		"start 0 hold",
		"complete 0 hold",
		"end 0 hold",
	}
	if !reflect.DeepEqual(r.log, want) {
		t.Errorf("log = %q\nwant  %q", r.log, want)
	}
}

func TestSetAnimationClearsQueue(t *testing.T) {
	s := New(testData())
	s.SetAnimationEntry(0, s.Data.FindAnimation("spin"), false)
	if _, err := s.AddAnimation(0, "hold", false); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetAnimation(0, "hold", true); err != nil {
		t.Fatal(err)
	}
	if q := s.Queue(0); len(q) != 0 {
		t.Errorf("queue = %v, want empty", q)
	}
	if e := s.Current(0); e.Animation.Name != "hold" || !e.Loop {
		t.Errorf("current = %+v", e)
	}
}

func TestAddAnimationStartsIdleChannel(t *testing.T) {
	s := New(testData())
	e, err := s.AddAnimation(2, "hold", false)
	if err != nil {
		t.Fatal(err)
	}
	if s.Current(2) != e || s.Channels() != 3 {
		t.Errorf("current = %v, channels = %d", s.Current(2), s.Channels())
	}
	if s.ChannelState(0) != Idle {
		t.Error("channel 0 should be idle")
	}
}

func TestApplyPosesAndFiresEvents(t *testing.T) {
	d := testData()
	s := New(d)
	var r recorder
	s.Listener = r.listener()
	inst := d.Instantiate()

	if _, err := s.SetAnimation(0, "spin", true); err != nil {
		t.Fatal(err)
	}
	s.Update(0.5)
	s.Apply(inst)
	if got := inst.Bones[0].Rotation; !near(got, 45) {
		t.Errorf("rotation = %v, want 45", got)
	}

	// Wrap past the end: the event at 0.5 fires again on the next lap.
	s.Update(0.75)
	s.Apply(inst)
	s.Update(0.5)
	s.Apply(inst)

	var events int
	for _, l := range r.log {
		if l == "event 0 step" {
			events++
		}
	}
	if events != 2 {
		t.Errorf("step fired %d times, want 2: %q", events, r.log)
	}
}

func TestChannelsApplyInOrder(t *testing.T) {
	d := testData()
	s := New(d)
	inst := d.Instantiate()
	if _, err := s.SetAnimation(1, "hold", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SetAnimation(0, "spin", true); err != nil {
		t.Fatal(err)
	}
	s.Update(0.5)
	s.Apply(inst)
	b := inst.Bones[0]
	if !near(b.Rotation, 45) || !near(b.X, 5) {
		t.Errorf("bone = rot %v x %v, want 45 and 5", b.Rotation, b.X)
	}
}

func TestTimeScale(t *testing.T) {
	s := New(testData())
	s.TimeScale = 2
	e, err := s.SetAnimation(0, "hold", false)
	if err != nil {
		t.Fatal(err)
	}
	e.TimeScale = 0.5
	s.Update(0.5)
	if !near(e.Time, 0.5) {
		t.Errorf("time = %v, want 0.5", e.Time)
	}
}

func TestClearChannels(t *testing.T) {
	s := New(testData())
	var r recorder
	s.Listener = r.listener()
	if _, err := s.SetAnimation(0, "spin", true); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddAnimation(0, "hold", false); err != nil {
		t.Fatal(err)
	}
	s.ClearChannels()
	if s.ChannelState(0) != Idle || len(s.Queue(0)) != 0 {
		t.Error("channel not cleared")
	}
	if r.log[len(r.log)-1] != "end 0 spin" {
		t.Errorf("log = %q", r.log)
	}
	s.ClearChannel(7)
}

func TestOneShotHoldsFinalFrame(t *testing.T) {
	d := testData()
	s := New(d)
	inst := d.Instantiate()
	if _, err := s.SetAnimation(0, "spin", false); err != nil {
		t.Fatal(err)
	}

	s.Update(0.6)
	inst.SetToSetupPose()
	s.Apply(inst)
	if got := inst.Bones[0].Rotation; !near(got, 54) {
		t.Fatalf("rotation = %v, want 54", got)
	}

	s.Update(0.6)
	inst.SetToSetupPose()
	s.Apply(inst)
	if got := inst.Bones[0].Rotation; !near(got, 90) {
		t.Errorf("rotation after the end = %v, want the last key 90", got)
	}
	if s.ChannelState(0) != Playing {
		t.Error("finished entry retired before its last frame was applied")
	}

	s.Update(0.1)
	inst.SetToSetupPose()
	s.Apply(inst)
	if s.ChannelState(0) != Idle {
		t.Error("channel still playing one update after the end")
	}
	if got := inst.Bones[0].Rotation; got != 0 {
		t.Errorf("rotation on idle channel = %v, want setup 0", got)
	}
}

func TestOneShotEventsFireOnce(t *testing.T) {
	d := testData()
	s := New(d)
	var r recorder
	s.Listener = r.listener()
	inst := d.Instantiate()
	if _, err := s.SetAnimation(0, "spin", false); err != nil {
		t.Fatal(err)
	}
	s.Update(0.25)
	s.Apply(inst)
	s.Update(2)
	s.Apply(inst)
	s.Update(0)

	var events int
	for _, l := range r.log {
		if l == "event 0 step" {
			events++
		}
	}
	if events != 1 {
		t.Errorf("step fired %d times, want 1: %q", events, r.log)
	}
}

func TestNegativeChannel(t *testing.T) {
	s := New(testData())
	if _, err := s.SetAnimation(-1, "spin", true); !errors.Is(err, ErrBadChannel) {
		t.Errorf("SetAnimation(-1) err = %v", err)
	}
	if _, err := s.AddAnimation(-2, "hold", false); !errors.Is(err, ErrBadChannel) {
		t.Errorf("AddAnimation(-2) err = %v", err)
	}
	if _, err := s.SetAnimationEntry(-1, s.Data.FindAnimation("spin"), false); !errors.Is(err, ErrBadChannel) {
		t.Errorf("SetAnimationEntry(-1) err = %v", err)
	}
	if s.Channels() != 0 {
		t.Errorf("channels = %d, want 0", s.Channels())
	}
}

func TestOneShotEndingExactly(t *testing.T) {
	s := New(testData())
	var r recorder
	s.Listener = r.listener()
	if _, err := s.SetAnimation(0, "spin", false); err != nil {
		t.Fatal(err)
	}
	s.Update(1)
	s.Update(0)
	if s.ChannelState(0) != Idle {
		t.Error("one-shot that reached its duration exactly never retired")
	}
	want := []string{"start 0 spin", "event 0 step", "complete 0 spin", "end 0 spin"}
	if !reflect.DeepEqual(r.log, want) {
		t.Errorf("log = %q\nwant  %q", r.log, want)
	}
}
