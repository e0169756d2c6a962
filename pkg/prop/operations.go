package prop

import "errors"

// derive creates a pending prop fed by p through step. step receives the
// derived prop itself so gates can compare against its own last value.
// Ending the derived prop cancels its subscription to p; p ending does not
// end the derived prop.
func derive[T, K any](p *Prop[T], step func(d *Prop[K], c Cell[T]) (K, error)) *Prop[K] {
	d := Pending[K](WithLogger(p.logger))
	d.OnEnd(p.Subscribe(func(c Cell[T]) {
		v, err := runStep(d, c, step)
		switch {
		case errors.Is(err, ErrSkip):
		case err != nil:
			d.SetError(err)
		default:
			d.Next(v)
		}
	}).Cancel)
	return d
}

func runStep[T, K any](d *Prop[K], c Cell[T], step func(*Prop[K], Cell[T]) (K, error)) (v K, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
			d.logger.Warn("prop mapper panicked", "prop_id", d.id, "panic", r)
		}
	}()
	return step(d, c)
}

// Map returns a pending prop whose cells are fn applied to every cell of p.
// fn returns ErrSkip to veto propagation; any other error becomes the derived
// prop's error.
func Map[T, K any](p *Prop[T], fn func(Cell[T]) (K, error)) *Prop[K] {
	return derive(p, func(_ *Prop[K], c Cell[T]) (K, error) {
		return fn(c)
	})
}

// MapValue maps values of p with fn. Errors of p are forwarded unchanged.
func MapValue[T, K any](p *Prop[T], fn func(T) K) *Prop[K] {
	return Map(p, func(c Cell[T]) (K, error) {
		v, err := c.Unwrap()
		if err != nil {
			var zero K
			return zero, err
		}
		return fn(v), nil
	})
}

// Filter forwards the cells of p for which pred returns true.
func Filter[T any](p *Prop[T], pred func(Cell[T]) bool) *Prop[T] {
	return Map(p, func(c Cell[T]) (T, error) {
		if !pred(c) {
			var zero T
			return zero, ErrSkip
		}
		return c.Unwrap()
	})
}

// Uniq forwards values of p that differ from the derived prop's own last
// value. Comparing against its own state rather than p's means repeated equal
// values never re-notify, however often p re-emits them. Errors are forwarded.
func Uniq[T any](p *Prop[T]) *Prop[T] {
	p.mu.Lock()
	eq := p.equal
	p.mu.Unlock()

	d := derive(p, func(d *Prop[T], c Cell[T]) (T, error) {
		v, err := c.Unwrap()
		if err != nil {
			return v, err
		}
		if d.holds(v) {
			return v, ErrSkip
		}
		return v, nil
	})
	if eq != nil {
		d.WithEquals(eq)
	}
	return d
}

// MapUniq maps p with fn and forwards a mapped value only when it differs
// from the derived prop's own last value.
func MapUniq[T, K any](p *Prop[T], fn func(Cell[T]) (K, error)) *Prop[K] {
	return derive(p, func(d *Prop[K], c Cell[T]) (K, error) {
		v, err := fn(c)
		if err != nil {
			return v, err
		}
		if d.holds(v) {
			return v, ErrSkip
		}
		return v, nil
	})
}

// Fold builds a mapper from a value function. Without onError an erroring
// cell is rejected with its error; with onError the error is handed over and
// onValue still runs with the cell's value.
func Fold[T, K any](onValue func(T) (K, error), onError func(error)) func(Cell[T]) (K, error) {
	return func(c Cell[T]) (K, error) {
		if err := c.Err(); err != nil {
			if onError == nil {
				var zero K
				return zero, err
			}
			onError(err)
		}
		return onValue(c.Value())
	}
}

// Merge returns a pending prop that forwards every cell of ps.
func Merge[T any](ps ...*Prop[T]) *Prop[T] {
	d := Pending[T]()
	d.Merge(ps...)
	return d
}

// Once returns a pending prop that forwards the next cell of p and then ends.
func Once[T any](p *Prop[T]) *Prop[T] {
	d := Pending[T](WithLogger(p.logger))
	d.OnEnd(p.Subscribe(func(c Cell[T]) {
		if d.Ended() {
			return
		}
		d.Put(c)
		d.End()
	}, NotifyImmediately(false)).Cancel)
	return d
}
