package prop

import (
	"errors"
	"reflect"
	"testing"
)

func TestDeepGet(t *testing.T) {
	doc := map[string]any{
		"a":    map[string]any{"b": map[string]any{"c": 1}},
		"leaf": "x",
	}

	tests := []struct {
		name    string
		keys    []string
		want    any
		wantErr error
	}{
		{name: "nested", keys: []string{"a", "b", "c"}, want: 1},
		{name: "missing leaf", keys: []string{"a", "b", "z"}, want: nil},
		{name: "missing level", keys: []string{"a", "z", "c"}, wantErr: ErrMissing},
		{name: "not a mapping", keys: []string{"leaf", "c"}, wantErr: ErrNotMapping},
		{name: "empty path", keys: nil, want: doc},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DeepGet(doc, tt.keys)
			if tt.wantErr != nil {
				var pe *PathError
				if !errors.As(err, &pe) || !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected PathError wrapping %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDeepSetCopiesOnWrite(t *testing.T) {
	inner := map[string]any{"c": 1}
	doc := map[string]any{"a": inner, "other": map[string]any{"k": "v"}}

	out, err := DeepSet(doc, []string{"a", "c"}, 2)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	if inner["c"] != 1 {
		t.Errorf("original level mutated: %v", inner)
	}
	if out["a"].(map[string]any)["c"] != 2 {
		t.Errorf("expected 2 at a.c, got %v", out)
	}
	if reflect.ValueOf(out["other"]).Pointer() != reflect.ValueOf(doc["other"]).Pointer() {
		t.Error("untouched levels should be shared")
	}
}

func TestDeepSetCreatesLevels(t *testing.T) {
	out, err := DeepSet(nil, []string{"x", "y"}, true)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	want := map[string]any{"x": map[string]any{"y": true}}
	if !reflect.DeepEqual(out, want) {
		t.Errorf("expected %v, got %v", want, out)
	}
}

func TestDeepSetErrors(t *testing.T) {
	doc := map[string]any{"leaf": 1}

	if _, err := DeepSet(doc, []string{"leaf", "x"}, 2); !errors.Is(err, ErrNotMapping) {
		t.Errorf("expected ErrNotMapping, got %v", err)
	}
	if _, err := DeepSet(doc, nil, "scalar"); !errors.Is(err, ErrNotMapping) {
		t.Errorf("expected ErrNotMapping for root replacement, got %v", err)
	}
}

func TestWalk(t *testing.T) {
	doc := map[string]any{"b": 2, "a": map[string]any{"y": 1, "x": 0}}
	var paths []string
	Walk(doc, func(path []string, v any) {
		paths = append(paths, pathString(path))
	})

	want := []string{"a.x", "a.y", "b"}
	if !reflect.DeepEqual(paths, want) {
		t.Errorf("expected %v, got %v", want, paths)
	}
}

func pathString(path []string) string {
	out := ""
	for i, k := range path {
		if i > 0 {
			out += "."
		}
		out += k
	}
	return out
}
