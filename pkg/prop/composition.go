package prop

import (
	"slices"
	"sync"
)

// Tuple combines items into one prop holding a []any with one slot per
// item. Observable items are reactive slots; any other item is a constant
// copied once and never reacted to.
//
// The tuple stays pending while every reactive item is pending. Otherwise it
// starts from a snapshot of all slots, with pending slots read as nil. Each
// later emission of an item replaces only its slot and re-emits a fresh copy
// of the whole slice together with an *AggregateError rebuilt from the
// current item errors, or nil when none has an error. Ending the tuple
// cancels its subscriptions to the items.
func Tuple(items ...any) *Prop[[]any] {
	values := make([]any, len(items))
	var reactive []int
	initialized := false
	for i, item := range items {
		o, ok := item.(Observable)
		if !ok {
			values[i] = item
			continue
		}
		values[i], _ = o.LastAny()
		reactive = append(reactive, i)
		initialized = initialized || o.Initialized()
	}

	var t *Prop[[]any]
	if initialized {
		t = NewWithError(slices.Clone(values), aggregateError(items))
	} else {
		t = Pending[[]any]()
	}

	// mu guards values against items written from different goroutines.
	var mu sync.Mutex
	for _, i := range reactive {
		slot := i
		o := items[slot].(Observable)
		t.OnEnd(o.SubscribeAny(func(v any, _ error) {
			mu.Lock()
			values[slot] = v
			snapshot := slices.Clone(values)
			mu.Unlock()
			t.Emit(snapshot, aggregateError(items))
		}, NotifyImmediately(false)).Cancel)
	}
	return t
}

// aggregateError reads the current error of every reactive item.
func aggregateError(items []any) error {
	var errs []error
	for i, item := range items {
		o, ok := item.(Observable)
		if !ok {
			continue
		}
		if _, err := o.LastAny(); err != nil {
			if errs == nil {
				errs = make([]error, len(items))
			}
			errs[i] = err
		}
	}
	if errs == nil {
		return nil
	}
	return &AggregateError{Errors: errs}
}

type dictSlot struct {
	path []string
	src  Observable
}

// Dict is Tuple for nested mappings. Nested map[string]any levels of
// template are walked recursively; Observable leaves become reactive slots
// and every other leaf is a constant copied once. The error slot is a
// *DictError mirroring the template and listing only the erroring leaves.
func Dict(template map[string]any) *Prop[map[string]any] {
	result := make(map[string]any)
	var slots []dictSlot
	initialized := false
	Walk(template, func(path []string, leaf any) {
		o, ok := leaf.(Observable)
		if !ok {
			result, _ = DeepSet(result, path, leaf)
			return
		}
		v, _ := o.LastAny()
		result, _ = DeepSet(result, path, v)
		slots = append(slots, dictSlot{path: path, src: o})
		initialized = initialized || o.Initialized()
	})

	var d *Prop[map[string]any]
	if initialized {
		d = NewWithError(result, dictError(slots))
	} else {
		d = Pending[map[string]any]()
	}

	var mu sync.Mutex
	for _, s := range slots {
		slot := s
		d.OnEnd(slot.src.SubscribeAny(func(v any, _ error) {
			mu.Lock()
			// DeepSet copies every level on the path, so earlier cells keep
			// their own snapshot.
			result, _ = DeepSet(result, slot.path, v)
			snapshot := result
			mu.Unlock()
			d.Emit(snapshot, dictError(slots))
		}, NotifyImmediately(false)).Cancel)
	}
	return d
}

func dictError(slots []dictSlot) error {
	var errs map[string]any
	for _, s := range slots {
		if _, err := s.src.LastAny(); err != nil {
			errs, _ = DeepSet(errs, s.path, err)
		}
	}
	if errs == nil {
		return nil
	}
	return &DictError{Errors: errs}
}

// Not negates a boolean prop. Errors are forwarded.
func Not(p *Prop[bool]) *Prop[bool] {
	return MapValue(p, func(v bool) bool { return !v })
}

// Every is true when all ps are true. An error of any input is forwarded.
func Every(ps ...*Prop[bool]) *Prop[bool] {
	return reduceBools(ps, func(vs []any) bool {
		for _, v := range vs {
			if b, _ := v.(bool); !b {
				return false
			}
		}
		return true
	})
}

// Some is true when at least one of ps is true. An error of any input is
// forwarded.
func Some(ps ...*Prop[bool]) *Prop[bool] {
	return reduceBools(ps, func(vs []any) bool {
		for _, v := range vs {
			if b, _ := v.(bool); b {
				return true
			}
		}
		return false
	})
}

func reduceBools(ps []*Prop[bool], reduce func([]any) bool) *Prop[bool] {
	items := make([]any, len(ps))
	for i, p := range ps {
		items[i] = p
	}
	t := Tuple(items...)
	d := MapValue(t, reduce)
	d.OnEnd(t.End)
	return d
}
