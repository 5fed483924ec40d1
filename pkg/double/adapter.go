package double

import (
	"fmt"
	"math"
	"reflect"

	"github.com/roach88/understudy/pkg/contract"
)

// adaptResult shapes a raw behavior result to the operation's declared
// return descriptor.
//
// A raw result that is already a Deferred passes through untouched, so
// behaviors can hand back fully-formed completions. Otherwise the
// deferred shapes wrap: deferred-with-payload coerces the raw value to
// the canonical form of the declared payload type and fails with a
// type-mismatch error when it cannot, deferred-without-payload
// discards the raw value. Immediate results pass through unchanged;
// the proxy's type assertion is the check for those.
func adaptResult(op *contract.Operation, raw any) (any, error) {
	if d, ok := raw.(Deferred); ok {
		return d, nil
	}

	switch op.Returns.Shape {
	case contract.ShapeDeferredValue:
		payload, ok := coercePayload(raw, op.Returns.Type)
		if !ok {
			return nil, NewTypeMismatchError(op.Name, op.Signature(), op.Returns.Type, raw)
		}
		return DeferredOf(payload), nil
	case contract.ShapeDeferred:
		return DeferredDone(), nil
	default:
		return raw, nil
	}
}

// coercePayload converts a raw value to the canonical runtime form of
// the declared payload type: int64 for the signed integer family,
// uint64 for the unsigned family, float64 for floats, exact dynamic
// type for string and bool. Declared types outside those families pass
// through unchanged.
func coercePayload(v any, typeName string) (any, bool) {
	switch typeName {
	case "int", "int8", "int16", "int32", "int64", "rune":
		return coerceInt64(v)
	case "uint", "uint8", "uint16", "uint32", "uint64", "uintptr", "byte":
		return coerceUint64(v)
	case "float32", "float64":
		return coerceFloat64(v)
	case "string":
		s, ok := v.(string)
		return s, ok
	case "bool":
		b, ok := v.(bool)
		return b, ok
	default:
		return v, true
	}
}

func coerceInt64(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return rv.Int(), true
	case rv.CanUint():
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, false
		}
		return int64(u), true
	default:
		return nil, false
	}
}

func coerceUint64(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanUint():
		return rv.Uint(), true
	case rv.CanInt():
		n := rv.Int()
		if n < 0 {
			return nil, false
		}
		return uint64(n), true
	default:
		return nil, false
	}
}

func coerceFloat64(v any) (any, bool) {
	if v == nil {
		return nil, false
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanFloat():
		return rv.Float(), true
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	default:
		return nil, false
	}
}

// payloadAssignable reports whether a configured result value could
// satisfy the declared payload type. Used by the fluent layer for its
// setup-time return check; shares the coercion families so setup and
// dispatch agree on what fits.
func payloadAssignable(v any, typeName string) bool {
	_, ok := coercePayload(v, typeName)
	return ok
}

// As converts a dispatch result to the Go type a typed proxy method
// declares. Nil results, which suppressed calls and void operations
// produce, become the zero value. Numeric payloads convert across
// widths, since adaptation stores them in canonical 64-bit forms;
// every other value must already have the right dynamic type.
//
// Panics with a type-mismatch DispatchError when the result cannot
// satisfy T. Generated doubles rely on that: a proxy method has no
// error slot to report a result of the wrong shape.
func As[T any](v any) T {
	var zero T
	if v == nil {
		return zero
	}
	if t, ok := v.(T); ok {
		return t
	}

	rv := reflect.ValueOf(v)
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if numericKind(rv.Kind()) && numericKind(rt.Kind()) && rv.Type().ConvertibleTo(rt) {
		return rv.Convert(rt).Interface().(T)
	}

	panic(&DispatchError{
		Code:    CodeTypeMismatch,
		Message: fmt.Sprintf("cannot use %T as %s", v, rt),
	})
}

func numericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
