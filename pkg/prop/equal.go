package prop

import "reflect"

// defaultEquals compares with == when the value is comparable and falls back
// to reflect.DeepEqual otherwise. Comparability is checked on the value, not
// the type: a struct or array with interface fields is only comparable while
// those fields hold comparable values.
func defaultEquals[T any](a, b T) bool {
	return equalAny(any(a), any(b))
}

func equalAny(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	if reflect.ValueOf(a).Comparable() && reflect.ValueOf(b).Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}
