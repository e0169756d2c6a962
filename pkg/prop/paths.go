package prop

import (
	"maps"
	"sort"
)

// DeepGet walks m along keys. A missing leaf reads as nil; a missing or
// non-mapping intermediate level is a *PathError. An empty path returns m.
func DeepGet(m map[string]any, keys []string) (any, error) {
	if len(keys) == 0 {
		return m, nil
	}
	level := m
	for _, key := range keys[:len(keys)-1] {
		next, ok := level[key]
		if !ok || next == nil {
			return nil, &PathError{Op: "get", Path: keys, Key: key, Err: ErrMissing}
		}
		inner, ok := next.(map[string]any)
		if !ok {
			return nil, &PathError{Op: "get", Path: keys, Key: key, Err: ErrNotMapping}
		}
		level = inner
	}
	return level[keys[len(keys)-1]], nil
}

// DeepSet returns a copy of m with v stored at keys. Every level along the
// path is copied, missing levels are created, and m itself is left
// untouched. A non-mapping intermediate level is a *PathError. With an empty
// path v replaces m and must itself be a map[string]any.
func DeepSet(m map[string]any, keys []string, v any) (map[string]any, error) {
	if len(keys) == 0 {
		replacement, ok := v.(map[string]any)
		if !ok && v != nil {
			return m, &PathError{Op: "set", Path: keys, Err: ErrNotMapping}
		}
		return replacement, nil
	}

	root := cloneLevel(m)
	level := root
	for _, key := range keys[:len(keys)-1] {
		var inner map[string]any
		switch next := level[key].(type) {
		case nil:
			inner = make(map[string]any)
		case map[string]any:
			inner = cloneLevel(next)
		default:
			return m, &PathError{Op: "set", Path: keys, Key: key, Err: ErrNotMapping}
		}
		level[key] = inner
		level = inner
	}
	level[keys[len(keys)-1]] = v
	return root, nil
}

func cloneLevel(m map[string]any) map[string]any {
	if m == nil {
		return make(map[string]any)
	}
	return maps.Clone(m)
}

// Walk calls fn for every leaf of m, descending into nested
// map[string]any levels. Keys are visited in sorted order.
func Walk(m map[string]any, fn func(path []string, v any)) {
	walk(m, nil, fn)
}

func walk(m map[string]any, base []string, fn func([]string, any)) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		path := append(append([]string(nil), base...), k)
		if inner, ok := m[k].(map[string]any); ok {
			walk(inner, path, fn)
			continue
		}
		fn(path, m[k])
	}
}
