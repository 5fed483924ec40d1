package double

import (
	"bytes"
	"reflect"

	"github.com/roach88/understudy/pkg/match"
)

// expectationSatisfied checks the actual arguments against a
// registered expectation, position by position: matchers evaluate
// their predicate, literals compare by deep value equality. Returns
// the first mismatching position, or -1 and true when every position
// is satisfied.
func expectationSatisfied(expected, args []any) (int, bool) {
	if len(expected) != len(args) {
		return 0, false
	}
	for i, exp := range expected {
		if m, ok := exp.(match.Matcher); ok {
			if !m.Matches(args[i]) {
				return i, false
			}
			continue
		}
		if !valuesEqual(exp, args[i]) {
			return i, false
		}
	}
	return -1, true
}

// valuesEqual compares a literal expectation against an actual value.
// Byte slices get a fast path; everything else is deep equality, which
// covers both value equality and same-pointer reference equality.
func valuesEqual(expected, actual any) bool {
	if eb, ok := expected.([]byte); ok {
		ab, ok := actual.([]byte)
		if !ok {
			return false
		}
		return bytes.Equal(eb, ab)
	}
	return reflect.DeepEqual(expected, actual)
}
