package prop

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrPending is the error carried by a prop that has never been written.
// Pending slots of a Tuple or Dict report it as their component error.
var ErrPending = errors.New("prop: pending")

// ErrSkip is returned by a mapper to veto propagation of the current cell.
// It is never stored in a cell.
var ErrSkip = errors.New("prop: skip")

// ErrEnded is returned by futures and adapters when the prop they were
// waiting on ended before producing a result.
var ErrEnded = errors.New("prop: ended")

// PanicError wraps a value recovered from a panicking mapper or updater.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("prop: recovered panic: %v", e.Value)
}

// Unwrap returns the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// AggregateError is the error slot of a Tuple. Errors has one entry per tuple
// slot; entries are nil where the component has no error.
type AggregateError struct {
	Errors []error
}

// Error implements the error interface.
func (e *AggregateError) Error() string {
	var parts []string
	for i, err := range e.Errors {
		if err != nil {
			parts = append(parts, fmt.Sprintf("[%d]: %v", i, err))
		}
	}
	return "prop: aggregate error: " + strings.Join(parts, "; ")
}

// Unwrap returns the non-nil component errors for errors.Is/As support.
func (e *AggregateError) Unwrap() []error {
	out := make([]error, 0, len(e.Errors))
	for _, err := range e.Errors {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}

// At returns the error of slot i, or nil.
func (e *AggregateError) At(i int) error {
	if i < 0 || i >= len(e.Errors) {
		return nil
	}
	return e.Errors[i]
}

// DictError is the error slot of a Dict. Errors mirrors the shape of the
// template and only contains the leaves that currently carry an error; inner
// levels are map[string]any, leaves are error values.
type DictError struct {
	Errors map[string]any
}

// Error implements the error interface.
func (e *DictError) Error() string {
	leaves := e.Leaves()
	keys := make([]string, 0, len(leaves))
	for k := range leaves {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, leaves[k]))
	}
	return "prop: dict error: " + strings.Join(parts, "; ")
}

// Leaves flattens the nested errors into a map keyed by dot-joined path.
func (e *DictError) Leaves() map[string]error {
	out := make(map[string]error)
	Walk(e.Errors, func(path []string, v any) {
		if err, ok := v.(error); ok {
			out[strings.Join(path, ".")] = err
		}
	})
	return out
}

// Get returns the error stored at path, or nil.
func (e *DictError) Get(path ...string) error {
	v, err := DeepGet(e.Errors, path)
	if err != nil {
		return nil
	}
	leaf, _ := v.(error)
	return leaf
}

// Unwrap returns every leaf error for errors.Is/As support.
func (e *DictError) Unwrap() []error {
	leaves := e.Leaves()
	out := make([]error, 0, len(leaves))
	for _, err := range leaves {
		out = append(out, err)
	}
	return out
}

// PathError reports a failed walk through nested mappings.
type PathError struct {
	Op   string
	Path []string
	Key  string
	Err  error
}

// ErrNotMapping is wrapped by PathError when an intermediate level is not a
// map[string]any.
var ErrNotMapping = errors.New("not a mapping")

// ErrMissing is wrapped by PathError when an intermediate level is absent.
var ErrMissing = errors.New("missing level")

// Error implements the error interface.
func (e *PathError) Error() string {
	return fmt.Sprintf("prop: %s %q at %q: %v", e.Op, strings.Join(e.Path, "."), e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *PathError) Unwrap() error {
	return e.Err
}

// Error kinds reported by Kind.
const (
	KindPending    = "pending"
	KindValue      = "value"
	KindAggregate  = "aggregate"
	KindStructured = "structured"
	KindPanic      = "panic"
)

// Kind classifies a cell error for logs, metrics and traces. Composite errors
// take precedence over what they contain. A nil error has kind "".
func Kind(err error) string {
	var (
		agg  *AggregateError
		dict *DictError
		pe   *PanicError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &agg):
		return KindAggregate
	case errors.As(err, &dict):
		return KindStructured
	case errors.As(err, &pe):
		return KindPanic
	case errors.Is(err, ErrPending):
		return KindPending
	default:
		return KindValue
	}
}
