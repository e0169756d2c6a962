package prop

import (
	"errors"
	"log/slog"
	"slices"
	"sync"
)

// subscriber is one registered callback. active is guarded by the owning
// prop's mutex and flips to false on unsubscribe, so a dispatch already in
// flight skips callbacks removed after its snapshot was taken.
type subscriber[T any] struct {
	id     SubscriberID
	fn     func(Cell[T])
	active bool
}

// endable is the part of a prop the field cache needs to manage children of
// any value type.
type endable interface {
	End()
	Ended() bool
}

// Prop is a reactive value container. It holds the current Cell, the
// registered subscribers and the hooks to run when it ends.
type Prop[T any] struct {
	id     uint64
	name   string
	logger *slog.Logger

	// mu guards every field below. It is never held while a subscriber or
	// hook runs.
	mu sync.Mutex

	last        Cell[T]
	initialized bool
	ended       bool

	// subs are kept in registration order.
	subs    []*subscriber[T]
	lastSub SubscriberID

	endHooks []*endHook

	// fields caches the children created by Of and Into, keyed by field
	// name or by the dot-joined path. Owned by this prop and ended with it.
	fields map[string]endable

	// equal is the equality function used by uniqueness gates that compare
	// against this prop's last value. If nil, uses defaultEquals.
	equal func(T, T) bool
}

// New creates an initialized prop holding v.
func New[T any](v T, opts ...Option) *Prop[T] {
	return newProp(NewCell(v, nil), true, opts)
}

// NewWithError creates an initialized prop holding v and err.
func NewWithError[T any](v T, err error, opts ...Option) *Prop[T] {
	return newProp(NewCell(v, err), true, opts)
}

// Pending creates an uninitialized prop. Its cell carries ErrPending and no
// value until the first write.
func Pending[T any](opts ...Option) *Prop[T] {
	return newProp(pendingCell[T](), false, opts)
}

func newProp[T any](c Cell[T], initialized bool, opts []Option) *Prop[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Prop[T]{
		id:          nextID(),
		name:        o.name,
		logger:      o.logger,
		last:        c,
		initialized: initialized,
	}
}

// WithEquals returns the prop configured with a custom equality function,
// used when a uniqueness gate compares a new value against this prop's last
// value.
func (p *Prop[T]) WithEquals(fn func(a, b T) bool) *Prop[T] {
	p.mu.Lock()
	p.equal = fn
	p.mu.Unlock()
	return p
}

// ID returns the unique identifier for this prop.
func (p *Prop[T]) ID() uint64 {
	return p.id
}

// Name returns the label given with WithName.
func (p *Prop[T]) Name() string {
	return p.name
}

// Last returns the current cell.
func (p *Prop[T]) Last() Cell[T] {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Value returns the current value.
func (p *Prop[T]) Value() T {
	return p.Last().Value()
}

// Err returns the current error.
func (p *Prop[T]) Err() error {
	return p.Last().Err()
}

// Initialized reports whether the prop has been written at least once.
func (p *Prop[T]) Initialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}

// Pending reports whether the prop has never been written.
func (p *Prop[T]) Pending() bool {
	return !p.Initialized()
}

// Ended reports whether End has been called.
func (p *Prop[T]) Ended() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ended
}

// SubscriberCount returns the number of active subscribers.
func (p *Prop[T]) SubscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

// Next replaces the cell with v and no error, then notifies every subscriber
// before returning.
func (p *Prop[T]) Next(v T) {
	p.Put(NewCell(v, nil))
}

// Emit replaces the cell with v and err, then notifies every subscriber.
func (p *Prop[T]) Emit(v T, err error) {
	p.Put(NewCell(v, err))
}

// Put replaces the cell with c, then notifies every subscriber.
func (p *Prop[T]) Put(c Cell[T]) {
	p.mu.Lock()
	p.last = c
	p.initialized = true
	subs := p.snapshot()
	p.mu.Unlock()

	p.dispatch(subs)
}

// SetError keeps the current value and replaces the error.
func (p *Prop[T]) SetError(err error) {
	p.mu.Lock()
	p.last = p.last.withError(err)
	p.initialized = true
	subs := p.snapshot()
	p.mu.Unlock()

	p.dispatch(subs)
}

// Tap notifies every subscriber with the current cell again.
func (p *Prop[T]) Tap() {
	p.mu.Lock()
	subs := p.snapshot()
	p.mu.Unlock()

	p.dispatch(subs)
}

// Update computes the next value from the current one. An error returned by
// fn, or a panic inside it, is routed to SetError instead. Returning ErrSkip
// leaves the prop untouched.
func (p *Prop[T]) Update(fn func(T) (T, error)) {
	next, err := p.apply(fn)
	switch {
	case errors.Is(err, ErrSkip):
		return
	case err != nil:
		p.SetError(err)
	default:
		p.Next(next)
	}
}

func (p *Prop[T]) apply(fn func(T) (T, error)) (next T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
			p.logger.Warn("prop update panicked", "prop_id", p.id, "prop", p.name, "panic", r)
		}
	}()
	return fn(p.Value())
}

// Subscribe registers fn and returns the subscription. Unless configured
// otherwise with NotifyImmediately, an initialized prop calls fn with the
// current cell before Subscribe returns. Subscribing to an ended prop is a
// no-op returning an inert subscription.
func (p *Prop[T]) Subscribe(fn func(Cell[T]), opts ...SubscribeOption) *Subscription {
	cfg := subscribeConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}

	p.mu.Lock()
	if p.ended || fn == nil {
		p.mu.Unlock()
		return &Subscription{}
	}
	p.lastSub++
	s := &subscriber[T]{id: p.lastSub, fn: fn, active: true}
	p.subs = append(p.subs, s)
	immediate := p.initialized
	if cfg.immediateSet {
		immediate = cfg.immediate && p.initialized
	}
	current := p.last
	p.mu.Unlock()

	id := s.id
	sub := &Subscription{id: id, cancel: func() { p.Unsubscribe(id) }}
	if immediate {
		fn(current)
	}
	return sub
}

// Unsubscribe removes a single subscriber. Safe to call more than once.
func (p *Prop[T]) Unsubscribe(id SubscriberID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = slices.DeleteFunc(p.subs, func(s *subscriber[T]) bool {
		if s.id == id {
			s.active = false
			return true
		}
		return false
	})
}

// End removes all subscribers, then runs the end hooks once in registration
// order, then ends the field bindings cached by Of and Into. Subsequent
// calls do nothing.
func (p *Prop[T]) End() {
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		return
	}
	p.ended = true
	for _, s := range p.subs {
		s.active = false
	}
	p.subs = nil
	hooks := p.endHooks
	p.endHooks = nil
	fields := p.fields
	p.fields = nil
	p.mu.Unlock()

	p.logger.Debug("prop ended", "prop_id", p.id, "prop", p.name, "hooks", len(hooks), "fields", len(fields))

	for _, hook := range hooks {
		hook.fn()
	}
	for _, child := range fields {
		child.End()
	}
}

// OnEnd registers a hook that runs exactly once when the prop ends. On a prop
// that has already ended the hook runs immediately.
//
// The returned func unregisters the hook. Owners that outlive their interest
// in p call it so p does not accumulate hooks.
func (p *Prop[T]) OnEnd(hook func()) (remove func()) {
	if hook == nil {
		return func() {}
	}
	p.mu.Lock()
	if p.ended {
		p.mu.Unlock()
		hook()
		return func() {}
	}
	h := &endHook{fn: hook}
	p.endHooks = append(p.endHooks, h)
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		p.endHooks = slices.DeleteFunc(p.endHooks, func(e *endHook) bool { return e == h })
		p.mu.Unlock()
	}
}

// EndHookCount returns the number of registered end hooks.
func (p *Prop[T]) EndHookCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.endHooks)
}

// endHook is boxed so that it can be removed by identity.
type endHook struct {
	fn func()
}

// Merge forwards every cell of the given props into p until p ends.
func (p *Prop[T]) Merge(others ...*Prop[T]) {
	for _, other := range others {
		p.OnEnd(other.Subscribe(p.Put).Cancel)
	}
}

// snapshot copies the subscriber list. Must hold p.mu.
func (p *Prop[T]) snapshot() []*subscriber[T] {
	if len(p.subs) == 0 {
		return nil
	}
	return slices.Clone(p.subs)
}

// dispatch calls each subscriber that is still active with the cell current
// at the time of its call, so a reentrant write made by an earlier subscriber
// is what later subscribers observe.
func (p *Prop[T]) dispatch(subs []*subscriber[T]) {
	for _, s := range subs {
		p.mu.Lock()
		active := s.active
		current := p.last
		p.mu.Unlock()
		if active {
			s.fn(current)
		}
	}
}

// equals compares two values with the configured equality function.
func (p *Prop[T]) equals(a, b T) bool {
	p.mu.Lock()
	eq := p.equal
	p.mu.Unlock()
	if eq != nil {
		return eq(a, b)
	}
	return defaultEquals(a, b)
}

// holds reports whether the prop currently has an error-free value equal to
// v. A prop carrying an error never holds, so a repeated value still clears it.
func (p *Prop[T]) holds(v T) bool {
	last := p.Last()
	return last.HasValue() && last.Err() == nil && p.equals(last.Value(), v)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	id     SubscriberID
	once   sync.Once
	cancel func()
}

// ID returns the subscriber id, or zero for an inert subscription.
func (s *Subscription) ID() SubscriberID {
	if s == nil {
		return 0
	}
	return s.id
}

// Cancel removes the subscriber. Idempotent.
func (s *Subscription) Cancel() {
	if s == nil || s.cancel == nil {
		return
	}
	s.once.Do(s.cancel)
}
