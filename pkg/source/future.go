package source

import (
	"context"
	"errors"
	"sync"

	"github.com/vango-dev/prop/pkg/prop"
)

// FromFunc returns a pending prop that receives fn's result. See MergeFunc.
func FromFunc[T any](ctx context.Context, fn func(context.Context) (T, error), opts ...prop.Option) *prop.Prop[T] {
	p := prop.Pending[T](opts...)
	MergeFunc(ctx, p, fn)
	return p
}

// MergeFunc runs fn on a new goroutine and stores its result in p: the value
// with Next, or the error with SetError. A panic in fn is stored as a
// *prop.PanicError. Ending p cancels the context passed to fn and discards
// any result that arrives afterwards.
func MergeFunc[T any](ctx context.Context, p *prop.Prop[T], fn func(context.Context) (T, error)) {
	ctx, cancel := context.WithCancel(ctx)
	release := p.OnEnd(cancel)
	go func() {
		defer release()
		defer cancel()
		v, err := call(ctx, fn)
		if p.Ended() {
			return
		}
		if err != nil {
			p.SetError(err)
			return
		}
		p.Next(v)
	}()
}

func call[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &prop.PanicError{Value: r}
		}
	}()
	return fn(ctx)
}

// Future is the single next outcome of a prop: the first value or error it
// emits after the future was created.
type Future[T any] struct {
	done chan struct{}
	once sync.Once

	value T
	err   error

	mu      sync.Mutex
	sub     *prop.Subscription
	release func()
}

// ToFuture subscribes to p without replaying its current cell. The future
// resolves with the first value p emits and rejects with the first error.
// The pending marker is ignored. If p ends first the future rejects with
// prop.ErrEnded. The subscription and the end hook are released as soon as
// the future settles.
func ToFuture[T any](p *prop.Prop[T]) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}

	sub := p.Subscribe(func(c prop.Cell[T]) {
		if !c.HasValue() && errors.Is(c.Err(), prop.ErrPending) {
			return
		}
		f.settle(c.Value(), c.Err())
	}, prop.NotifyImmediately(false))

	release := p.OnEnd(func() {
		var zero T
		f.settle(zero, prop.ErrEnded)
	})

	f.mu.Lock()
	f.sub = sub
	f.release = release
	f.mu.Unlock()

	select {
	case <-f.done:
		f.cleanup()
	default:
	}
	return f
}

func (f *Future[T]) settle(v T, err error) {
	f.once.Do(func() {
		if err != nil {
			var zero T
			v = zero
		}
		f.value, f.err = v, err
		close(f.done)
	})
	f.cleanup()
}

// cleanup releases whatever of the subscription and end hook is registered.
// Settling can happen before ToFuture has stored them, so ToFuture calls it
// again once they are in place.
func (f *Future[T]) cleanup() {
	f.mu.Lock()
	sub, release := f.sub, f.release
	f.mu.Unlock()
	sub.Cancel()
	if release != nil {
		release()
	}
}

// Done is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future settles and returns its outcome.
func (f *Future[T]) Result() (T, error) {
	<-f.done
	return f.value, f.err
}

// Wait is Result bounded by ctx. A cancelled ctx leaves the future unsettled.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel settles the future with context.Canceled if it is still open and
// releases its subscription.
func (f *Future[T]) Cancel() {
	var zero T
	f.settle(zero, context.Canceled)
}

// Await waits for the next value or error p emits. See ToFuture.
func Await[T any](ctx context.Context, p *prop.Prop[T]) (T, error) {
	f := ToFuture(p)
	v, err := f.Wait(ctx)
	if ctx.Err() != nil {
		f.Cancel()
	}
	return v, err
}
