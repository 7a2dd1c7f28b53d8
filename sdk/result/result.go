package result

import "reflect"

// Result pairs a Status with an optional value.
type Result[T any] struct {
	Status Status
	Value  T
}

// OK builds a successful result.
func OK[T any](v T) Result[T] {
	return Result[T]{Status: StatusSuccess, Value: v}
}

// From builds a result with an explicit status.
func From[T any](s Status, v T) Result[T] {
	return Result[T]{Status: s, Value: v}
}

// OK reports whether the status is StatusSuccess, regardless of the value.
// Use it for operations that may legitimately succeed without a payload.
func (r Result[T]) OK() bool { return r.Status.OK() }

// Succeeded reports whether the status is StatusSuccess and a value is
// present. A nil pointer, slice, map or interface counts as absent.
func (r Result[T]) Succeeded() bool {
	return r.Status.OK() && !isNil(r.Value)
}

// Err returns nil on success, otherwise a StatusError.
func (r Result[T]) Err() error { return r.Status.Err() }

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Interface, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
