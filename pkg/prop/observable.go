package prop

// Observable is the type-erased view of a Prop. Composition operators,
// metrics and tracing accept it so they can work with props of any value type.
type Observable interface {
	ID() uint64
	Name() string
	Initialized() bool
	Ended() bool
	OnEnd(hook func()) (remove func())

	// LastAny returns the current value (nil when absent) and error.
	LastAny() (any, error)

	// SubscribeAny is Subscribe with the cell split into value and error.
	// The value is nil when the cell has none.
	SubscribeAny(fn func(value any, err error), opts ...SubscribeOption) *Subscription
}

var _ Observable = (*Prop[int])(nil)

// LastAny implements Observable.
func (p *Prop[T]) LastAny() (any, error) {
	return cellAny(p.Last())
}

// SubscribeAny implements Observable.
func (p *Prop[T]) SubscribeAny(fn func(value any, err error), opts ...SubscribeOption) *Subscription {
	if fn == nil {
		return &Subscription{}
	}
	return p.Subscribe(func(c Cell[T]) {
		fn(cellAny(c))
	}, opts...)
}

func cellAny[T any](c Cell[T]) (any, error) {
	if !c.HasValue() {
		return nil, c.Err()
	}
	return c.Value(), c.Err()
}
