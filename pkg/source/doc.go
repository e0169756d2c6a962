// Package source connects props to callback-style producers: event emitters
// and functions that complete once.
//
// # Events
//
// FromEvent attaches a listener to anything that looks like an event target
// and returns a pending prop fed by the events:
//
//	clicks, err := source.FromEvent[string](button, "click")
//
// Two emitter shapes are recognised. DOM-style targets implement
// AddEventListener/RemoveEventListener and deliver a single event argument,
// which becomes the prop value. Node-style emitters implement
// AddListener/RemoveListener and deliver an argument list, which becomes the
// prop value as a []any. Ending the prop removes the listener.
//
// WithMap transforms the delivered value before it is stored, and WithWrap,
// WithDebounce and WithThrottle wrap the listener itself.
//
// # Functions
//
// FromFunc runs a function on its own goroutine and stores its result or
// error in a pending prop. Await and ToFuture go the other way and wait for
// the next value or error a prop emits.
package source
