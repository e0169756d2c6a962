package prop

import (
	"errors"
	"reflect"
	"testing"
)

type burrow struct {
	Badger string
	Depth  int
}

func TestBindStruct(t *testing.T) {
	p := New(burrow{Badger: "badger"})
	parentRec := &recorder[burrow]{}
	p.Subscribe(parentRec.record)

	child := Bind(p,
		func(c Cell[burrow]) (string, error) {
			v, err := c.Unwrap()
			return v.Badger, err
		},
		func(v burrow, c Cell[string]) (burrow, error) {
			x, err := c.Unwrap()
			v.Badger = x
			return v, err
		},
	)
	childRec := &recorder[string]{}
	child.Subscribe(childRec.record)

	child.Next("snake")
	if got := p.Value(); got.Badger != "snake" {
		t.Fatalf("expected parent badger snake, got %+v", got)
	}
	if parentRec.count() != 2 {
		t.Errorf("expected parent notified once by the child write, got %d", parentRec.count()-1)
	}

	child.End()
	before := childRec.count()
	p.Next(burrow{Badger: "mushroom"})
	if childRec.count() != before {
		t.Errorf("ended child was notified")
	}
	if p.SubscriberCount() != 1 {
		t.Errorf("expected only the test subscriber left on parent, got %d", p.SubscriberCount())
	}
}

func TestBindParentToChild(t *testing.T) {
	p := New(map[string]string{"badger": "badger", "other": "x"})
	child := Bind(p, Get[string]("badger"), Set[string]("badger"))
	rec := &recorder[string]{}
	child.Subscribe(rec.record, NotifyImmediately(false))

	p.Next(map[string]string{"badger": "mushroom", "other": "x"})
	if rec.count() != 1 || rec.last().Value() != "mushroom" {
		t.Fatalf("expected child notified once with mushroom, got %v", rec.values())
	}

	p.Next(map[string]string{"badger": "mushroom", "other": "y"})
	if rec.count() != 1 {
		t.Errorf("same field value must not notify the child, got %v", rec.values())
	}
}

func TestBindChildToParentOncePerDistinctValue(t *testing.T) {
	p := New(map[string]string{"badger": "badger"})
	child := Bind(p, Get[string]("badger"), Set[string]("badger"))
	rec := &recorder[map[string]string]{}
	p.Subscribe(rec.record, NotifyImmediately(false))

	child.Next("snake")
	child.Next("snake")
	child.Next("mushroom")

	if rec.count() != 2 {
		t.Fatalf("expected 2 parent updates, got %d", rec.count())
	}
	if got := p.Value()["badger"]; got != "mushroom" {
		t.Errorf("expected mushroom, got %q", got)
	}
}

func TestBindKeepsEarlierParentCells(t *testing.T) {
	original := map[string]string{"badger": "badger"}
	p := New(original)
	child := Bind(p, Get[string]("badger"), Set[string]("badger"))

	child.Next("snake")

	if original["badger"] != "badger" {
		t.Errorf("Set must not mutate the previous map, got %v", original)
	}
}

func TestBindErrorsDoNotEcho(t *testing.T) {
	p := New(map[string]int{"n": 1})
	child := Bind(p, Get[int]("n"), Set[int]("n"))
	parentRec := &recorder[map[string]int]{}
	p.Subscribe(parentRec.record, NotifyImmediately(false))

	bad := errors.New("bad")
	p.SetError(bad)

	if !errors.Is(child.Err(), bad) {
		t.Fatalf("expected child to carry the parent error, got %v", child.Err())
	}
	if parentRec.count() != 1 {
		t.Errorf("expected a single parent notification, got %d", parentRec.count())
	}

	p.Next(map[string]int{"n": 1})
	if child.Err() != nil {
		t.Errorf("expected child error cleared, got %v", child.Err())
	}
}

func TestBindUpdaterErrorGoesToParent(t *testing.T) {
	p := New(map[string]int{"n": 1})
	bad := errors.New("rejected")
	child := Bind(p, Get[int]("n"), func(m map[string]int, c Cell[int]) (map[string]int, error) {
		return m, bad
	})

	child.Next(5)
	if !errors.Is(p.Err(), bad) {
		t.Errorf("expected updater error on parent, got %v", p.Err())
	}
}

func TestOfCachesUntilEnded(t *testing.T) {
	p := New(map[string]string{"badger": "badger"})
	parentRec := &recorder[map[string]string]{}
	p.Subscribe(parentRec.record)

	badger := Of(p).Field("badger")
	childRec := &recorder[string]{}
	badger.Subscribe(childRec.record)

	p.Next(map[string]string{"badger": "mushroom"})
	if childRec.last().Value() != "mushroom" {
		t.Fatalf("bound prop was not updated, got %v", childRec.values())
	}

	badger.Next("snake")
	if parentRec.last().Value()["badger"] != "snake" {
		t.Fatalf("parent prop was not updated, got %v", parentRec.last().Value())
	}

	if Of(p).Field("badger") != badger {
		t.Error("bound prop was not cached")
	}

	badger.End()
	badger.Next("mushroom")
	if childRec.last().Value() != "snake" {
		t.Error("bound prop notified after it ended")
	}

	fresh := Of(p).Field("badger")
	if fresh == badger {
		t.Fatal("expected a new prop after the cached one ended")
	}
	if Of(p).Field("badger") != fresh {
		t.Error("expected the replacement to be cached")
	}

	var got string
	fresh.Subscribe(func(c Cell[string]) { got = c.Value() })
	fresh.Next("badger")
	if got != "badger" || p.Value()["badger"] != "badger" {
		t.Errorf("replacement binding is not live: child %q, parent %v", got, p.Value())
	}
}

func TestOfCacheIsPerParent(t *testing.T) {
	a := New(map[string]int{"n": 1})
	b := New(map[string]int{"n": 1})

	if Of(a).Field("n") == Of(b).Field("n") {
		t.Error("field caches must not be shared across parents")
	}
}

func TestParentEndEndsCachedFields(t *testing.T) {
	p := New(map[string]any{"a": 1, "inner": map[string]any{"b": 2}})
	a := Of(p).Field("a")
	b := Into(p).Field("inner").Field("b").Prop()

	p.End()

	if !a.Ended() || !b.Ended() {
		t.Error("expected cached field props to end with their parent")
	}
}

func TestIntoDeepBinding(t *testing.T) {
	p := New(map[string]any{"inner": map[string]any{"badger": "badger"}})
	parentRec := &recorder[map[string]any]{}
	p.Subscribe(parentRec.record)

	badger := Into(p).Field("inner").Field("badger").Prop()
	childRec := &recorder[any]{}
	badger.Subscribe(childRec.record)

	p.Update(func(m map[string]any) (map[string]any, error) {
		return DeepSet(m, []string{"inner", "badger"}, "mushroom")
	})
	if childRec.last().Value() != "mushroom" {
		t.Fatalf("bound prop was not updated, got %v", childRec.values())
	}

	badger.Next("snake")
	inner := parentRec.last().Value()["inner"].(map[string]any)
	if inner["badger"] != "snake" {
		t.Fatalf("parent prop was not updated, got %v", parentRec.last().Value())
	}

	if Into(p).Field("inner").Field("badger").Prop() != badger {
		t.Error("bound prop was not cached")
	}

	badger.End()
	badger.Next("mushroom")
	if childRec.last().Value() != "snake" {
		t.Error("bound prop notified after it ended")
	}

	fresh := Into(p).Field("inner").Field("badger").Prop()
	if fresh == badger {
		t.Fatal("expected a new prop after the cached one ended")
	}
	fresh.Next("badger")
	inner = p.Value()["inner"].(map[string]any)
	if inner["badger"] != "badger" {
		t.Errorf("replacement binding is not live, got %v", p.Value())
	}
}

func TestIntoCreatesMissingLevels(t *testing.T) {
	p := New(map[string]any{})
	deep := Into(p).Field("a").Field("b").Field("c").Prop()

	var pe *PathError
	if !errors.As(deep.Err(), &pe) {
		t.Fatalf("expected PathError for a missing level, got %v", deep.Err())
	}

	deep.Next(42)
	want := map[string]any{"a": map[string]any{"b": map[string]any{"c": 42}}}
	if !reflect.DeepEqual(p.Value(), want) {
		t.Errorf("expected %v, got %v", want, p.Value())
	}
	if deep.Value() != 42 || deep.Err() != nil {
		t.Errorf("expected {42, nil}, got {%v, %v}", deep.Value(), deep.Err())
	}
}

func TestPathBuilderIsImmutable(t *testing.T) {
	p := New(map[string]any{"a": map[string]any{"x": 1, "y": 2}})
	base := Into(p).Field("a")
	x := base.Field("x")
	y := base.Field("y")

	if x.String() != ".a.x" || y.String() != ".a.y" || base.String() != ".a" {
		t.Errorf("unexpected paths %s %s %s", base, x, y)
	}
	if x.Prop().Value() != 1 || y.Prop().Value() != 2 {
		t.Errorf("expected 1 and 2, got %v and %v", x.Prop().Value(), y.Prop().Value())
	}
}

func TestIntoRoot(t *testing.T) {
	p := New(map[string]any{"a": 1})
	root := Into(p).Prop()

	if !reflect.DeepEqual(root.Value(), map[string]any{"a": 1}) {
		t.Fatalf("expected whole mapping, got %v", root.Value())
	}

	root.Next(map[string]any{"b": 2})
	if !reflect.DeepEqual(p.Value(), map[string]any{"b": 2}) {
		t.Errorf("expected parent replaced, got %v", p.Value())
	}
}

func TestBindStructHoldingSlice(t *testing.T) {
	p := New(map[string]any{"k": holder{V: []int{1}}})
	child := Bind(p, Get[any]("k"), Set[any]("k"))

	child.Next(holder{V: []int{2}})

	if !reflect.DeepEqual(p.Value()["k"], holder{V: []int{2}}) {
		t.Errorf("expected parent to hold {[2]}, got %v", p.Value()["k"])
	}
	if err := p.Err(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestEndedBindingsReleaseParent(t *testing.T) {
	p := New(map[string]string{"badger": "badger"})

	for i := 0; i < 100; i++ {
		Of(p).Field("badger").End()
	}
	if n := p.EndHookCount(); n != 0 {
		t.Errorf("expected no end hooks left on parent, got %d", n)
	}
	if n := p.SubscriberCount(); n != 0 {
		t.Errorf("expected no subscribers left on parent, got %d", n)
	}

	live := Of(p).Field("badger")
	if n := p.EndHookCount(); n != 1 {
		t.Errorf("expected 1 end hook for the live binding, got %d", n)
	}
	live.Next("snake")
	if p.Value()["badger"] != "snake" {
		t.Errorf("live binding did not write back, got %v", p.Value())
	}
}
