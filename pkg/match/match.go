// Package match provides argument matchers for configuring substitute
// behaviors.
//
// A matcher stands in for an expected argument position. During
// dispatch the engine asks the matcher whether the actual argument
// satisfies it; for key derivation every matcher position contributes
// the literal "any" sentinel, regardless of how narrow the predicate
// is. Predicates narrow matching, never keying.
package match

import "fmt"

// Matcher decides whether an actual argument satisfies an expected
// argument position.
//
// Thread-safety: implementations must be safe for concurrent use. The
// engine may evaluate the same matcher from many goroutines at once.
type Matcher interface {
	// Matches reports whether v satisfies the matcher.
	Matches(v any) bool

	// String renders the matcher for diagnostics.
	String() string

	// Zero returns the degraded stand-in value used when a concrete
	// value must be synthesized outside a matching position. Degraded
	// use is informational only and never participates in matching.
	Zero() any
}

// anyMatcher accepts every value.
type anyMatcher struct{}

// Any returns a wildcard matcher that accepts any value at its
// position, including nil.
func Any() Matcher { return anyMatcher{} }

func (anyMatcher) Matches(any) bool { return true }
func (anyMatcher) String() string   { return "any" }
func (anyMatcher) Zero() any        { return nil }

// whereMatcher accepts values of type T satisfying a predicate.
type whereMatcher[T any] struct {
	pred func(T) bool
}

// Where returns a matcher that accepts values of type T for which pred
// returns true. Values of any other dynamic type do not match.
//
// Panics if pred is nil. A nil predicate is always a configuration
// mistake and failing at the construction site keeps the mistake
// visible.
func Where[T any](pred func(T) bool) Matcher {
	if pred == nil {
		panic("match: Where called with nil predicate")
	}
	return whereMatcher[T]{pred: pred}
}

func (m whereMatcher[T]) Matches(v any) bool {
	tv, ok := v.(T)
	if !ok {
		return false
	}
	return m.pred(tv)
}

func (m whereMatcher[T]) String() string {
	var zero T
	return fmt.Sprintf("where[%T]", zero)
}

func (m whereMatcher[T]) Zero() any {
	var zero T
	return zero
}
