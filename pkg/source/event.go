package source

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	properrors "github.com/vango-dev/prop/internal/errors"
	"github.com/vango-dev/prop/pkg/prop"
)

// ErrNotEmitter is matched by the error FromEvent and MergeEvent return for
// targets implementing neither emitter interface.
var ErrNotEmitter = errors.New("source: target is not an event emitter")

// EventOption configures FromEvent and MergeEvent.
type EventOption func(*eventConfig)

type eventConfig struct {
	mapFn    func(any) (any, error)
	wraps    []func(func(args ...any)) func(args ...any)
	debounce time.Duration
	throttle time.Duration
	logger   *slog.Logger
	propOpts []prop.Option
}

// WithMap transforms the delivered event value before it is stored. Returning
// prop.ErrSkip drops the event; any other error is stored in the prop.
func WithMap(fn func(v any) (any, error)) EventOption {
	return func(c *eventConfig) {
		c.mapFn = fn
	}
}

// WithWrap wraps the listener. Wrappers apply in order, the last one
// outermost, after debounce and throttle.
func WithWrap(wrap func(func(args ...any)) func(args ...any)) EventOption {
	return func(c *eventConfig) {
		c.wraps = append(c.wraps, wrap)
	}
}

// WithDebounce stores an event only after d passed without another one.
func WithDebounce(d time.Duration) EventOption {
	return func(c *eventConfig) {
		c.debounce = d
	}
}

// WithThrottle stores at most one event per d.
func WithThrottle(d time.Duration) EventOption {
	return func(c *eventConfig) {
		c.throttle = d
	}
}

// WithLogger sets the logger used for listener lifecycle messages.
func WithLogger(logger *slog.Logger) EventOption {
	return func(c *eventConfig) {
		c.logger = logger
	}
}

// WithPropOptions passes options to the prop created by FromEvent.
func WithPropOptions(opts ...prop.Option) EventOption {
	return func(c *eventConfig) {
		c.propOpts = append(c.propOpts, opts...)
	}
}

func newEventConfig(opts []EventOption) *eventConfig {
	c := &eventConfig{}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// FromEvent returns a pending prop fed by event on target. See MergeEvent.
func FromEvent[T any](target any, event string, opts ...EventOption) (*prop.Prop[T], error) {
	cfg := newEventConfig(opts)
	p := prop.Pending[T](cfg.propOpts...)
	if err := MergeEvent(p, target, event, opts...); err != nil {
		p.End()
		return nil, err
	}
	return p, nil
}

// MergeEvent feeds p from event on target. A DOMEmitter delivers its first
// argument, a NodeEmitter its whole argument list as a []any. Values whose
// dynamic type is not T are stored as errors. Ending p removes the listener.
func MergeEvent[T any](p *prop.Prop[T], target any, event string, opts ...EventOption) error {
	cfg := newEventConfig(opts)

	var (
		add, remove func(string, *Listener)
		forward     func(args []any) any
		kind        string
	)
	switch t := target.(type) {
	case DOMEmitter:
		kind = "dom"
		add, remove = t.AddEventListener, t.RemoveEventListener
		forward = func(args []any) any {
			if len(args) == 0 {
				return nil
			}
			return args[0]
		}
	case NodeEmitter:
		kind = "node"
		add, remove = t.AddListener, t.RemoveListener
		forward = func(args []any) any {
			return append([]any{}, args...)
		}
	default:
		return properrors.New("E020").
			WithDetail(fmt.Sprintf("%T implements neither AddEventListener/RemoveEventListener nor AddListener/RemoveListener.", target)).
			Wrap(ErrNotEmitter)
	}

	fn := func(args ...any) {
		store(p, event, forward(args), cfg.mapFn)
	}
	if cfg.throttle > 0 {
		fn = Throttle(cfg.throttle, fn)
	}
	if cfg.debounce > 0 {
		var stop func()
		fn, stop = Debounce(cfg.debounce, fn)
		p.OnEnd(stop)
	}
	for _, wrap := range cfg.wraps {
		fn = wrap(fn)
	}

	l := NewListener(fn)
	add(event, l)
	cfg.logger.Debug("event listener attached", "prop", p.ID(), "event", event, "kind", kind)
	p.OnEnd(func() {
		remove(event, l)
		cfg.logger.Debug("event listener removed", "prop", p.ID(), "event", event, "kind", kind)
	})
	return nil
}

func store[T any](p *prop.Prop[T], event string, v any, mapFn func(any) (any, error)) {
	if mapFn != nil {
		mapped, err := mapFn(v)
		if errors.Is(err, prop.ErrSkip) {
			return
		}
		if err != nil {
			p.SetError(err)
			return
		}
		v = mapped
	}
	if v == nil {
		var zero T
		p.Next(zero)
		return
	}
	typed, ok := v.(T)
	if !ok {
		p.SetError(properrors.New("E002").
			WithDetail(fmt.Sprintf("event %q delivered %T, which is not a %T.", event, v, *new(T))).
			WithSuggestion("Use WithMap to convert the event value."))
		return
	}
	p.Next(typed)
}
