package prop

import (
	"maps"
	"slices"
	"strings"
)

// Bind returns a child prop holding getter's projection of parent, gated by
// MapUniq. Every later error-free cell of the child whose value differs from
// parent's current projection is written back with
// parent.Update(v => updater(v, cell)). The write-back re-emits parent, but
// the child's gate drops the projection since it already holds it, which
// ends the round trip as long as getter and updater agree.
//
// Child cells carrying an error are not written back; they either came from
// parent in the first place or belong to the child's owner.
//
// Ending the child cancels both directions. Ending parent cancels the
// write-back but leaves the child to its owner.
func Bind[T, K any](parent *Prop[T], getter func(Cell[T]) (K, error), updater func(T, Cell[K]) (T, error)) *Prop[K] {
	child := MapUniq(parent, getter)
	back := child.Subscribe(func(c Cell[K]) {
		if c.Err() != nil {
			return
		}
		if current, err := project(parent.Last(), getter); err == nil && child.equals(current, c.Value()) {
			return
		}
		parent.Update(func(v T) (T, error) {
			return updater(v, c)
		})
	}, NotifyImmediately(false))
	child.OnEnd(parent.OnEnd(back.Cancel))
	return child
}

func project[T, K any](c Cell[T], getter func(Cell[T]) (K, error)) (v K, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r}
		}
	}()
	return getter(c)
}

// Get returns a getter reading key from a map-valued prop. A missing key
// reads as the zero value.
func Get[V any](key string) func(Cell[map[string]V]) (V, error) {
	return func(c Cell[map[string]V]) (V, error) {
		m, err := c.Unwrap()
		if err != nil {
			var zero V
			return zero, err
		}
		return m[key], nil
	}
}

// Set returns an updater storing the child's value at key. The map is
// copied so earlier cells of the parent stay unchanged.
func Set[V any](key string) func(map[string]V, Cell[V]) (map[string]V, error) {
	return func(m map[string]V, c Cell[V]) (map[string]V, error) {
		v, err := c.Unwrap()
		if err != nil {
			return m, err
		}
		out := maps.Clone(m)
		if out == nil {
			out = make(map[string]V)
		}
		out[key] = v
		return out, nil
	}
}

// Fields gives access to per-field child props of a map-valued prop.
type Fields[V any] struct {
	parent *Prop[map[string]V]
}

// Of returns the field accessor for parent.
func Of[V any](parent *Prop[map[string]V]) *Fields[V] {
	return &Fields[V]{parent: parent}
}

// Field returns the child bound to name, creating it on first use. The same
// child is returned until it ends; after that a fresh one replaces it.
func (f *Fields[V]) Field(name string) *Prop[V] {
	return cachedField(f.parent, "of:"+name, func() *Prop[V] {
		return Bind(f.parent, Get[V](name), Set[V](name))
	})
}

// Path is an immutable builder addressing a nested field of a prop holding
// nested map[string]any levels.
type Path struct {
	parent *Prop[map[string]any]
	keys   []string
}

// Into starts a path at the root of parent.
func Into(parent *Prop[map[string]any]) Path {
	return Path{parent: parent}
}

// Field extends the path by one key. The receiver is not modified.
func (p Path) Field(name string) Path {
	keys := make([]string, len(p.keys), len(p.keys)+1)
	copy(keys, p.keys)
	return Path{parent: p.parent, keys: append(keys, name)}
}

// Keys returns a copy of the accumulated keys.
func (p Path) Keys() []string {
	return slices.Clone(p.keys)
}

// String returns the dot-joined form used as cache key, e.g. ".inner.badger".
func (p Path) String() string {
	return "." + strings.Join(p.keys, ".")
}

// Prop returns the child bound to the path, creating it on first use with
// DeepGet and DeepSet. The same child is returned until it ends.
func (p Path) Prop() *Prop[any] {
	keys := slices.Clone(p.keys)
	parent := p.parent
	return cachedField(parent, "into:"+p.String(), func() *Prop[any] {
		return Bind(parent,
			func(c Cell[map[string]any]) (any, error) {
				m, err := c.Unwrap()
				if err != nil {
					return nil, err
				}
				return DeepGet(m, keys)
			},
			func(m map[string]any, c Cell[any]) (map[string]any, error) {
				v, err := c.Unwrap()
				if err != nil {
					return m, err
				}
				return DeepSet(m, keys, v)
			},
		)
	})
}

// cachedField returns the live child cached on parent under key, or stores
// the one built by create. create runs without parent's lock held since
// binding subscribes to parent. An ended parent never caches.
func cachedField[T, K any](parent *Prop[T], key string, create func() *Prop[K]) *Prop[K] {
	if child, ok := lookupField[T, K](parent, key); ok {
		return child
	}

	child := create()

	parent.mu.Lock()
	if parent.ended {
		parent.mu.Unlock()
		return child
	}
	if existing, ok := parent.fields[key].(*Prop[K]); ok && !existing.Ended() {
		// Lost a race with another caller; keep theirs.
		parent.mu.Unlock()
		child.End()
		return existing
	}
	if parent.fields == nil {
		parent.fields = make(map[string]endable)
	}
	parent.fields[key] = child
	parent.mu.Unlock()
	return child
}

func lookupField[T, K any](parent *Prop[T], key string) (*Prop[K], bool) {
	parent.mu.Lock()
	defer parent.mu.Unlock()
	child, ok := parent.fields[key].(*Prop[K])
	if !ok || child.Ended() {
		return nil, false
	}
	return child, true
}
