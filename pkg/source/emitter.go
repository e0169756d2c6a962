package source

import (
	"slices"
	"sync"
)

// Listener receives the arguments of one event. Emitters identify listeners
// by pointer, so the same *Listener must be passed to add and remove.
type Listener struct {
	fn func(args ...any)
}

// NewListener wraps fn as a Listener.
func NewListener(fn func(args ...any)) *Listener {
	return &Listener{fn: fn}
}

// Call invokes the listener.
func (l *Listener) Call(args ...any) {
	if l != nil && l.fn != nil {
		l.fn(args...)
	}
}

// DOMEmitter is an event target delivering one event value per dispatch.
type DOMEmitter interface {
	AddEventListener(event string, l *Listener)
	RemoveEventListener(event string, l *Listener)
}

// NodeEmitter is an emitter delivering an argument list per emit.
type NodeEmitter interface {
	AddListener(event string, l *Listener)
	RemoveListener(event string, l *Listener)
}

// listenerSet is an ordered set of listeners per event name.
type listenerSet struct {
	mu        sync.Mutex
	listeners map[string][]*Listener
}

func (s *listenerSet) add(event string, l *Listener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[string][]*Listener)
	}
	if slices.Contains(s.listeners[event], l) {
		return
	}
	s.listeners[event] = append(s.listeners[event], l)
}

func (s *listenerSet) remove(event string, l *Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = slices.DeleteFunc(s.listeners[event], func(x *Listener) bool {
		return x == l
	})
	if len(s.listeners[event]) == 0 {
		delete(s.listeners, event)
	}
}

// snapshot copies the listeners so they run without the lock held.
func (s *listenerSet) snapshot(event string) []*Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.listeners[event])
}

func (s *listenerSet) count(event string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners[event])
}

// Emitter is an in-process NodeEmitter.
type Emitter struct {
	set listenerSet
}

var _ NodeEmitter = (*Emitter)(nil)

// NewEmitter returns an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{}
}

// AddListener registers l for event. Adding the same listener twice is a no-op.
func (e *Emitter) AddListener(event string, l *Listener) {
	e.set.add(event, l)
}

// RemoveListener unregisters l for event.
func (e *Emitter) RemoveListener(event string, l *Listener) {
	e.set.remove(event, l)
}

// Emit calls every listener of event with args, in registration order.
// It reports whether any listener was called.
func (e *Emitter) Emit(event string, args ...any) bool {
	listeners := e.set.snapshot(event)
	for _, l := range listeners {
		l.Call(args...)
	}
	return len(listeners) > 0
}

// ListenerCount returns the number of listeners registered for event.
func (e *Emitter) ListenerCount(event string) int {
	return e.set.count(event)
}

// Target is an in-process DOMEmitter.
type Target struct {
	set listenerSet
}

var _ DOMEmitter = (*Target)(nil)

// NewTarget returns an empty event target.
func NewTarget() *Target {
	return &Target{}
}

// AddEventListener registers l for event.
func (t *Target) AddEventListener(event string, l *Listener) {
	t.set.add(event, l)
}

// RemoveEventListener unregisters l for event.
func (t *Target) RemoveEventListener(event string, l *Listener) {
	t.set.remove(event, l)
}

// DispatchEvent calls every listener of event with ev.
func (t *Target) DispatchEvent(event string, ev any) {
	for _, l := range t.set.snapshot(event) {
		l.Call(ev)
	}
}

// ListenerCount returns the number of listeners registered for event.
func (t *Target) ListenerCount(event string) int {
	return t.set.count(event)
}
