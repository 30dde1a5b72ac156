package anim

import (
	"errors"
	"fmt"
	"math"

	"skel-runtime/internal/skeleton"
)

var ErrBadChannel = errors.New("invalid channel")

// ChannelState is the play state of one channel.
type ChannelState int

const (
	Idle ChannelState = iota
	Playing
)

func (s ChannelState) String() string {
	if s == Playing {
		return "playing"
	}
	return "idle"
}

// Entry is one scheduled animation on a channel.
type Entry struct {
	Animation *skeleton.Animation
	Loop      bool
	// Time is the channel clock in seconds.
	Time float32
	// LastTime is the clock at the previous Apply, -1 before the first.
	LastTime  float32
	TimeScale float32
	Channel   int

	finished bool
}

func newEntry(ch int, a *skeleton.Animation, loop bool) *Entry {
	return &Entry{Animation: a, Loop: loop, LastTime: -1, TimeScale: 1, Channel: ch}
}

// Complete reports whether a non-looping entry has reached its end.
func (e *Entry) Complete() bool { return !e.Loop && e.Time >= e.Animation.Duration }

type channel struct {
	current *Entry
	queue   []*Entry
}

// State plays animations of one skeleton on numbered channels. Channels are
// applied in ascending order, so later channels override earlier ones where
// they key the same property. A State belongs to a single goroutine.
type State struct {
	Data      *skeleton.Data
	TimeScale float32
	Listener  Listener

	channels []*channel
	events   []skeleton.Event
}

func New(data *skeleton.Data) *State {
	return &State{Data: data, TimeScale: 1}
}

func (s *State) channel(ch int) (*channel, error) {
	if ch < 0 {
		return nil, fmt.Errorf("anim: %w: channel %d", ErrBadChannel, ch)
	}
	for len(s.channels) <= ch {
		s.channels = append(s.channels, &channel{})
	}
	return s.channels[ch], nil
}

func (s *State) find(name string) (*skeleton.Animation, error) {
	a := s.Data.FindAnimation(name)
	if a == nil {
		return nil, fmt.Errorf("anim: %w: animation %q in %q", skeleton.ErrNotFound, name, s.Data.Name)
	}
	return a, nil
}

// SetAnimation interrupts channel ch with the named animation and drops
// anything queued behind it.
func (s *State) SetAnimation(ch int, name string, loop bool) (*Entry, error) {
	a, err := s.find(name)
	if err != nil {
		return nil, err
	}
	return s.SetAnimationEntry(ch, a, loop)
}

// SetAnimationEntry is SetAnimation for an animation already looked up.
func (s *State) SetAnimationEntry(ch int, a *skeleton.Animation, loop bool) (*Entry, error) {
	c, err := s.channel(ch)
	if err != nil {
		return nil, err
	}
	c.queue = nil
	e := newEntry(ch, a, loop)
	s.start(c, e)
	return e, nil
}

// AddAnimation queues the named animation after the channel's current and
// queued entries. On an idle channel it starts at once.
func (s *State) AddAnimation(ch int, name string, loop bool) (*Entry, error) {
	a, err := s.find(name)
	if err != nil {
		return nil, err
	}
	c, err := s.channel(ch)
	if err != nil {
		return nil, err
	}
	e := newEntry(ch, a, loop)
	if c.current == nil {
		s.start(c, e)
		return e, nil
	}
	c.queue = append(c.queue, e)
	return e, nil
}

func (s *State) start(c *channel, e *Entry) {
	if c.current != nil {
		s.end(c.current)
	}
	c.current = e
	if s.Listener != nil {
		s.Listener.Start(e.Channel, e)
	}
}

func (s *State) end(e *Entry) {
	if s.Listener != nil {
		s.Listener.End(e.Channel, e)
	}
}

// Update advances every channel clock by dt seconds. A looping entry wraps.
// A non-looping entry that reaches its end stays current, held at its last
// frame, until the next Update, which hands the channel to the next queued
// entry or leaves it idle. Events keyed between the last Apply and the end
// are delivered when the end is reached.
func (s *State) Update(dt float32) {
	for _, c := range s.channels {
		if c.current != nil && c.current.finished {
			s.retire(c)
		}
		e := c.current
		if e == nil {
			continue
		}
		e.Time += dt * s.TimeScale * e.TimeScale
		dur := e.Animation.Duration
		if e.Time < dur || (e.Loop && e.Time == dur) {
			continue
		}
		if e.Loop {
			if dur > 0 {
				e.Time = float32(math.Mod(float64(e.Time), float64(dur)))
			} else {
				e.Time = 0
			}
			s.complete(e)
			continue
		}

		e.Time = dur
		if s.Listener != nil {
			last := e.LastTime
			e.Animation.FireEvents(last, dur, func(ev skeleton.Event) { s.Listener.Event(e.Channel, e, ev) })
		}
		e.LastTime = dur
		e.finished = true
		s.complete(e)
	}
}

func (s *State) retire(c *channel) {
	if len(c.queue) > 0 {
		next := c.queue[0]
		c.queue = c.queue[1:]
		s.start(c, next)
		return
	}
	s.end(c.current)
	c.current = nil
}

func (s *State) complete(e *Entry) {
	if s.Listener != nil {
		s.Listener.Complete(e.Channel, e)
	}
}

// Apply poses inst from every playing channel in channel order and delivers
// the events crossed since the previous Apply, including those passed when a
// loop wrapped.
func (s *State) Apply(inst *skeleton.Instance) {
	for _, c := range s.channels {
		e := c.current
		if e == nil {
			continue
		}
		s.events = s.events[:0]
		e.Animation.Apply(inst, e.LastTime, e.Time, &s.events)
		e.LastTime = e.Time
		if s.Listener == nil {
			continue
		}
		for _, ev := range s.events {
			s.Listener.Event(e.Channel, e, ev)
		}
	}
}

// ClearChannel stops channel ch and drops its queue.
func (s *State) ClearChannel(ch int) {
	if ch < 0 || ch >= len(s.channels) {
		return
	}
	c := s.channels[ch]
	c.queue = nil
	if c.current != nil {
		s.end(c.current)
		c.current = nil
	}
}

// ClearChannels stops every channel.
func (s *State) ClearChannels() {
	for ch := range s.channels {
		s.ClearChannel(ch)
	}
}

// Channels returns the number of channels allocated so far.
func (s *State) Channels() int { return len(s.channels) }

// Current returns the entry playing on ch, or nil.
func (s *State) Current(ch int) *Entry {
	if ch < 0 || ch >= len(s.channels) {
		return nil
	}
	return s.channels[ch].current
}

func (s *State) ChannelState(ch int) ChannelState {
	if s.Current(ch) != nil {
		return Playing
	}
	return Idle
}

// Queue returns a copy of the entries waiting on ch.
func (s *State) Queue(ch int) []*Entry {
	if ch < 0 || ch >= len(s.channels) {
		return nil
	}
	return append([]*Entry(nil), s.channels[ch].queue...)
}
