package prop

import "errors"

// Cell is an immutable snapshot of a prop: a value paired with an optional
// error. It is the unit every subscriber receives.
type Cell[T any] struct {
	value    T
	hasValue bool
	err      error
}

// NewCell returns a cell holding v and err.
func NewCell[T any](v T, err error) Cell[T] {
	return Cell[T]{value: v, hasValue: true, err: err}
}

// ErrCell returns a cell with no value and the given error.
func ErrCell[T any](err error) Cell[T] {
	return Cell[T]{err: err}
}

// pendingCell is the cell every pending prop starts with.
func pendingCell[T any]() Cell[T] {
	return Cell[T]{err: ErrPending}
}

// Value returns the value, or the zero value when the cell has none.
func (c Cell[T]) Value() T {
	return c.value
}

// HasValue reports whether a value was ever stored in this cell.
func (c Cell[T]) HasValue() bool {
	return c.hasValue
}

// Err returns the error slot.
func (c Cell[T]) Err() error {
	return c.err
}

// Pending reports whether the cell carries the pending marker.
func (c Cell[T]) Pending() bool {
	return errors.Is(c.err, ErrPending)
}

// Unwrap returns the value, or the error when one is present.
func (c Cell[T]) Unwrap() (T, error) {
	if c.err != nil {
		var zero T
		return zero, c.err
	}
	return c.value, nil
}

// UnwrapOr hands the error, if any, to handler and returns the value.
func (c Cell[T]) UnwrapOr(handler func(error)) T {
	if c.err != nil && handler != nil {
		handler(c.err)
	}
	return c.value
}

// Must returns the value and panics when the cell carries an error.
func (c Cell[T]) Must() T {
	if c.err != nil {
		panic(c.err)
	}
	return c.value
}

// withError returns a copy of c with the error slot replaced.
func (c Cell[T]) withError(err error) Cell[T] {
	c.err = err
	return c
}
