package contract

import (
	"strings"

	"github.com/roach88/understudy/pkg/match"
)

// AnyToken is the fingerprint sentinel emitted for matcher positions.
// Every matcher contributes this token regardless of how narrow its
// predicate is: predicates narrow matching, not keying.
const AnyToken = "any"

// keySeparator joins a signature and a fingerprint into a composite
// key. Signatures never contain it: names and type names are
// identifiers.
const keySeparator = "|"

func computeSignature(op *Operation) string {
	var b strings.Builder
	b.WriteString(op.Name)
	if len(op.TypeArgs) > 0 {
		b.WriteString("[")
		b.WriteString(strings.Join(op.TypeArgs, ","))
		b.WriteString("]")
	}
	b.WriteString("(")
	for i, p := range op.Params {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(p.Type)
	}
	b.WriteString(")")
	return b.String()
}

// Fingerprint derives the argument fingerprint for one call.
//
// expected is the expectation registered for the operation, if any.
// Each position contributes either the AnyToken (when the expected
// argument at that position is a matcher) or the canonical rendering
// of the actual argument. With no expectation registered, every
// position renders literally.
//
// The same arguments always fingerprint identically within a process,
// so fingerprints are usable as key material.
func Fingerprint(args []any, expected []any) string {
	if len(args) == 0 {
		return ""
	}
	tokens := make([]string, len(args))
	for i, arg := range args {
		if i < len(expected) {
			if _, ok := expected[i].(match.Matcher); ok {
				tokens[i] = AnyToken
				continue
			}
		}
		tokens[i] = Render(arg)
	}
	return strings.Join(tokens, ",")
}

// CompositeKey joins an operation signature and an argument
// fingerprint into the key behaviors are stored under.
func CompositeKey(signature, fingerprint string) string {
	return signature + keySeparator + fingerprint
}
