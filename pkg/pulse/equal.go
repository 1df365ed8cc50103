package pulse

import "reflect"

// defaultEquals decides whether a write is redundant.
//
// Comparable types use ==, which is value-equality for primitives and value
// structs and reference-equality for pointers and channels. Slices are equal
// only when they share a backing array and length, maps only when they are
// the same map. Functions and anything else that cannot be compared are
// never equal, so writing them always notifies.
func defaultEquals[T any](a, b T) bool {
	av, bv := any(a), any(b)
	if av == nil || bv == nil {
		return av == nil && bv == nil
	}
	t := reflect.TypeOf(av)
	if t != reflect.TypeOf(bv) {
		return false
	}
	switch t.Kind() {
	case reflect.Slice:
		ra, rb := reflect.ValueOf(av), reflect.ValueOf(bv)
		return ra.IsNil() == rb.IsNil() && ra.Len() == rb.Len() && ra.Pointer() == rb.Pointer()
	case reflect.Map:
		return reflect.ValueOf(av).Pointer() == reflect.ValueOf(bv).Pointer()
	case reflect.Func:
		return false
	}
	if !t.Comparable() {
		return false
	}
	return safeCompare(av, bv)
}

// safeCompare guards against structs whose interface fields hold
// uncomparable values.
func safeCompare(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

// Equal is the == policy for comparable types.
func Equal[T comparable](a, b T) bool {
	return a == b
}

// EqualNever makes every write notify.
func EqualNever[T any](_, _ T) bool {
	return false
}

// DeepEqual compares structurally with reflect.DeepEqual. Use it for
// compound values that are rebuilt on every write but rarely change.
func DeepEqual[T any](a, b T) bool {
	return reflect.DeepEqual(a, b)
}

// isNil reports whether v is nil or a nil pointer, map, slice, func, chan or
// interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// falsy matches the values that end a Connection chain: nil and false.
func falsy(v any) bool {
	if b, ok := v.(bool); ok {
		return !b
	}
	return isNil(v)
}
