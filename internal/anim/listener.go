package anim

import "skel-runtime/internal/skeleton"

// Listener receives channel notifications. Start is called when an entry
// becomes current, Complete each time an entry reaches its end (every loop
// for looping entries), End when it stops being current, and Event for every
// keyed event crossed.
type Listener interface {
	Start(ch int, e *Entry)
	Complete(ch int, e *Entry)
	End(ch int, e *Entry)
	Event(ch int, e *Entry, ev skeleton.Event)
}

// Funcs adapts optional callbacks to a Listener.
type Funcs struct {
	OnStart    func(ch int, e *Entry)
	OnComplete func(ch int, e *Entry)
	OnEnd      func(ch int, e *Entry)
	OnEvent    func(ch int, e *Entry, ev skeleton.Event)
}

func (f Funcs) Start(ch int, e *Entry) {
	if f.OnStart != nil {
		f.OnStart(ch, e)
	}
}

func (f Funcs) Complete(ch int, e *Entry) {
	if f.OnComplete != nil {
		f.OnComplete(ch, e)
	}
}

func (f Funcs) End(ch int, e *Entry) {
	if f.OnEnd != nil {
		f.OnEnd(ch, e)
	}
}

func (f Funcs) Event(ch int, e *Entry, ev skeleton.Event) {
	if f.OnEvent != nil {
		f.OnEvent(ch, e, ev)
	}
}
