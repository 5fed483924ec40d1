package double

import (
	"fmt"

	"github.com/roach88/understudy/pkg/contract"
	"github.com/roach88/understudy/pkg/match"
)

// Stub is the fluent configuration surface for one operation of one
// substitute. Build one with On, optionally narrow it with WithArgs,
// then finish with a terminal: Return, Fail, Do, Sequence or Complete.
//
// The fluent layer panics on configuration mistakes so a bad setup
// fails at its call site. Code that prefers errors uses the engine
// registration methods via Registry.EngineFor.
type Stub struct {
	sub      *Substitute
	op       *contract.Operation
	expected []any
	hasArgs  bool
}

// On begins configuring behavior for one operation of sub.
//
// Panics with ErrNilSubstitute on a nil handle and with a
// *ConfigError when the operation is not part of the contract.
func On(sub *Substitute, operation string) *Stub {
	if sub == nil || sub.engine == nil {
		panic(ErrNilSubstitute)
	}
	op, ok := sub.contract.Operation(operation)
	if !ok {
		panic(NewConfigError(CodeOperationNotFound, sub.contract.Name(), operation, "no such operation"))
	}
	return &Stub{sub: sub, op: op}
}

// WithArgs narrows the stub to calls whose arguments satisfy the given
// expectation. Entries are literal values or matchers. Panics with a
// *ConfigError when the arity differs from the operation's parameter
// count.
func (st *Stub) WithArgs(args ...any) *Stub {
	if len(args) != len(st.op.Params) {
		panic(NewConfigError(CodeArgCountMismatch, st.sub.contract.Name(), st.op.Name,
			fmt.Sprintf("expectation has %d arguments, operation declares %d", len(args), len(st.op.Params))))
	}
	st.expected = args
	st.hasArgs = true
	return st
}

// Return installs a fixed result. Without WithArgs it becomes the
// operation's default behavior; with WithArgs it answers only matching
// calls.
//
// The value is checked against the declared payload type here, at
// setup time, so a result the operation could never deliver fails
// immediately rather than at dispatch. Panics with a *ConfigError on
// mismatch.
func (st *Stub) Return(v any) {
	st.checkResult(v)
	st.register(resultBehavior(v))
}

// Fail installs a behavior that returns err to every matching caller.
// Panics with a *ConfigError when err is nil.
func (st *Stub) Fail(err error) {
	if err == nil {
		panic(NewConfigError(CodeMissingCallback, st.sub.contract.Name(), st.op.Name, "Fail requires a non-nil error"))
	}
	st.register(func(*Invocation) (any, error) {
		return nil, err
	})
}

// Do installs a custom behavior. The callback sees the live invocation
// and produces the raw result. Panics with a *ConfigError when fn is
// nil.
func (st *Stub) Do(fn Behavior) {
	st.register(fn)
}

// Complete installs a behavior that completes without a payload. Valid
// only for operations whose return shape carries none; payload-bearing
// operations panic with a *ConfigError.
func (st *Stub) Complete() {
	shape := st.op.Returns.Shape
	if shape != contract.ShapeNone && shape != contract.ShapeDeferred {
		panic(NewConfigError(CodeReturnTypeMismatch, st.sub.contract.Name(), st.op.Name,
			"operation returns a value; use Return"))
	}
	st.register(resultBehavior(nil))
}

// Sequence installs a one-shot result queue: each value answers
// exactly one matching call, in order, and the queue then reports
// exhaustion. Without WithArgs the queue matches any arguments.
//
// Each value is checked against the declared payload type at setup
// time. Panics with a *ConfigError on an empty sequence or a mismatch.
func (st *Stub) Sequence(results ...any) {
	for _, r := range results {
		st.checkResult(r)
	}
	eng := st.sub.engine
	if err := eng.RegisterSequence(st.op.Name, st.expectedOrAny(), results...); err != nil {
		panic(err)
	}
}

func (st *Stub) register(b Behavior) {
	eng := st.sub.engine
	var err error
	if st.hasArgs {
		err = eng.RegisterWithArgs(st.op.Name, st.expected, b)
	} else {
		err = eng.RegisterDefault(st.op.Name, b)
	}
	if err != nil {
		panic(err)
	}
}

// expectedOrAny returns the configured expectation, or one wildcard
// matcher per parameter when WithArgs was not called. Sequences are
// keyed by composite key, so they always need an expectation of the
// right arity.
func (st *Stub) expectedOrAny() []any {
	if st.hasArgs {
		return st.expected
	}
	exp := make([]any, len(st.op.Params))
	for i := range exp {
		exp[i] = match.Any()
	}
	return exp
}

// checkResult enforces the setup-time return check for value results.
// A raw Deferred passes: it flows through adaptation untouched.
func (st *Stub) checkResult(v any) {
	if _, ok := v.(Deferred); ok {
		return
	}
	ret := st.op.Returns
	switch ret.Shape {
	case contract.ShapeNone, contract.ShapeDeferred:
		panic(NewConfigError(CodeReturnTypeMismatch, st.sub.contract.Name(), st.op.Name,
			"operation returns no value; use Complete"))
	default:
		if !payloadAssignable(v, ret.Type) {
			panic(NewConfigError(CodeReturnTypeMismatch, st.sub.contract.Name(), st.op.Name,
				fmt.Sprintf("cannot use %T as %s result", v, ret.Type)))
		}
	}
}

// SetProperty installs a value for a property-shaped operation of sub.
// Panics on configuration mistakes, like the rest of the fluent layer.
func SetProperty(sub *Substitute, name string, v any) {
	if sub == nil || sub.engine == nil {
		panic(ErrNilSubstitute)
	}
	if err := sub.engine.RegisterProperty(name, v); err != nil {
		panic(err)
	}
}

// Fallback installs the unhandled-call policy for sub: fn answers any
// call that resolves no other behavior. Pass nil to restore the
// default failing policy.
func Fallback(sub *Substitute, fn Behavior) {
	if sub == nil || sub.engine == nil {
		panic(ErrNilSubstitute)
	}
	sub.engine.SetFallback(fn)
}

// CountOf returns how many calls the operation has received on sub,
// including suppressed ones.
func CountOf(sub *Substitute, operation string) int64 {
	if sub == nil || sub.engine == nil {
		panic(ErrNilSubstitute)
	}
	return sub.engine.CountOf(operation)
}

// HistoryOf returns sub's completed-call records in dispatch order.
func HistoryOf(sub *Substitute) []string {
	if sub == nil || sub.engine == nil {
		panic(ErrNilSubstitute)
	}
	return sub.engine.History()
}
