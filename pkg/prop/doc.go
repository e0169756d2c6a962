// Package prop provides a small reactive value container and the operators
// built on top of it.
//
// A Prop holds exactly one Cell: an immutable pair of a value and an optional
// error. Writing to a Prop replaces its cell and synchronously notifies every
// subscriber, in registration order, before the write returns.
//
// # Core Types
//
// Prop[T] is the reactive container:
//
//	count := prop.New(0)
//	sub := count.Subscribe(func(c prop.Cell[int]) {
//	    fmt.Println(c.Value(), c.Err())
//	})
//	count.Next(5)                  // notifies with {5, nil}
//	count.SetError(errBadInput)    // keeps 5, attaches the error
//	count.Update(func(n int) (int, error) { return n + 1, nil })
//	sub.Cancel()
//
// A Prop created with Pending holds ErrPending until its first write and
// notifies nobody before that.
//
// # Derivation
//
// Map, Filter, Uniq and MapUniq build a new pending Prop that follows an
// upstream one. A mapper returns ErrSkip to veto propagation:
//
//	squared := prop.MapValue(count, func(n int) int { return n * n })
//	changed := prop.Uniq(count)
//
// # Composition
//
// Tuple and Dict fan several props into one. Their error slot holds an
// *AggregateError or *DictError rebuilt from the current component errors on
// every notification.
//
//	both := prop.Tuple(name, age)
//	form := prop.Dict(map[string]any{"name": name, "address": map[string]any{"city": city}})
//
// # Binding
//
// Bind creates a child prop for a projection of its parent and writes child
// updates back into the parent. Of and Into cache those children per field or
// per path on the parent:
//
//	user := prop.New(map[string]any{"profile": map[string]any{"name": "ada"}})
//	name := prop.Into(user).Field("profile").Field("name").Prop()
//	name.Next("grace") // user now holds {"profile": {"name": "grace"}}
//
// # Thread Safety
//
// Prop state is guarded by a mutex and subscribers run outside of it, so
// adapters may write from other goroutines. Dispatch itself is synchronous and
// reentrant; ordering between concurrent writers is not defined.
package prop
