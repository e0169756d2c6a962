package source

import (
	"sync"
	"time"
)

// Debounce wraps fn so it runs only once d has passed since the last call,
// with the arguments of that last call. The returned stop function cancels a
// pending run and disables the wrapper.
//
//	search, stop := source.Debounce(300*time.Millisecond, func(args ...any) {
//	    lookup(args[0].(string))
//	})
//	defer stop()
func Debounce(d time.Duration, fn func(args ...any)) (wrapped func(args ...any), stop func()) {
	var (
		mu      sync.Mutex
		timer   *time.Timer
		stopped bool
	)
	wrapped = func(args ...any) {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(d, func() {
			mu.Lock()
			if stopped {
				mu.Unlock()
				return
			}
			timer = nil
			mu.Unlock()
			fn(args...)
		})
	}
	stop = func() {
		mu.Lock()
		defer mu.Unlock()
		stopped = true
		if timer != nil {
			timer.Stop()
			timer = nil
		}
	}
	return wrapped, stop
}

// Throttle wraps fn so it runs at most once per d. The first call in a window
// runs immediately; later calls in the same window are dropped.
func Throttle(d time.Duration, fn func(args ...any)) func(args ...any) {
	var (
		mu   sync.Mutex
		last time.Time
	)
	return func(args ...any) {
		mu.Lock()
		now := time.Now()
		if !last.IsZero() && now.Sub(last) < d {
			mu.Unlock()
			return
		}
		last = now
		mu.Unlock()
		fn(args...)
	}
}
