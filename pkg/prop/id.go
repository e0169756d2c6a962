package prop

import "sync/atomic"

// globalIDCounter is the source of unique IDs for all props.
var globalIDCounter uint64

// nextID returns the next unique ID for a prop.
// IDs are monotonically increasing and never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}

// SubscriberID identifies one subscription on a single prop.
// IDs are unique for the lifetime of the prop; a cancelled ID is never handed
// out again, so a late Cancel can never remove a newer subscriber.
type SubscriberID uint64
