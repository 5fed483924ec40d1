package double

import "fmt"

// Deferred is an already-completed asynchronous result.
//
// Operations declared with a deferred return shape hand their result
// to the caller as a Deferred instead of a bare value. The completion
// has always already happened by the time the caller sees it: nothing
// here schedules work, and unwrapping never blocks. The type exists so
// generated doubles can mirror asynchronous signatures without the
// engine owning goroutines.
//
// The zero value is an empty completion, the same value DeferredDone
// returns.
type Deferred struct {
	value    any
	hasValue bool
}

// DeferredOf returns a completed Deferred carrying v as its payload.
func DeferredOf(v any) Deferred {
	return Deferred{value: v, hasValue: true}
}

// DeferredDone returns a completed Deferred with no payload.
func DeferredDone() Deferred {
	return Deferred{}
}

// Value returns the payload and whether one is present.
func (d Deferred) Value() (any, bool) {
	return d.value, d.hasValue
}

// String renders the completion for logs and diagnostics.
func (d Deferred) String() string {
	if !d.hasValue {
		return "deferred()"
	}
	return fmt.Sprintf("deferred(%v)", d.value)
}

// Payload unwraps a Deferred into the expected payload type. The
// second result is false when the completion is empty or the payload
// has a different dynamic type.
func Payload[T any](d Deferred) (T, bool) {
	var zero T
	v, ok := d.Value()
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	if !ok {
		return zero, false
	}
	return t, true
}
