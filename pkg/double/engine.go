package double

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/understudy/pkg/contract"
)

// Invocation carries one call through dispatch: the operation being
// called, the actual arguments, and the result slot the engine fills
// on completion.
type Invocation struct {
	// Op is the operation descriptor being dispatched.
	Op *contract.Operation

	// Args are the actual arguments in declaration order.
	Args []any

	result   any
	resolved bool
}

// Result returns the adapted result and whether the call completed.
// Suppressed and failed calls leave the slot empty.
func (inv *Invocation) Result() (any, bool) {
	return inv.result, inv.resolved
}

func (inv *Invocation) setResult(v any) {
	inv.result = v
	inv.resolved = true
}

// CallEvent describes one completed dispatch, as delivered to a
// Recorder. Args and Result hold the live values; recorders that
// persist events serialize them.
type CallEvent struct {
	Substitute string
	Contract   string
	Operation  string
	Signature  string
	Args       []any
	Result     any
}

// Recorder observes completed calls. Record runs on the dispatching
// goroutine and the engine waits for it to return, so implementations
// should not block for long. Only completed calls are delivered:
// suppressed and failed dispatches produce no event.
type Recorder interface {
	Record(ev CallEvent)
}

// Engine dispatches calls for exactly one substitute.
//
// The engine owns no goroutines: every dispatch runs entirely on the
// calling goroutine, and deferred results are completed before the
// caller sees them. Registration and dispatch may run concurrently;
// defaults are last-writer-wins.
//
// Engines are created by Registry.CreateSubstitute and retrieved with
// Registry.EngineFor. The 1:1 binding between substitute and engine
// holds for the substitute's lifetime.
type Engine struct {
	contract *contract.Contract
	token    string
	logger   *slog.Logger

	behaviors *behaviorStore
	calls     *ledger
	props     *propertyStore

	fallbackMu sync.RWMutex
	fallback   Behavior

	recorder Recorder
}

func newEngine(c *contract.Contract, token string, logger *slog.Logger, recorder Recorder) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		contract:  c,
		token:     token,
		logger:    logger,
		behaviors: newBehaviorStore(),
		calls:     newLedger(),
		props:     newPropertyStore(),
		recorder:  recorder,
	}
}

// Contract returns the contract this engine dispatches for.
func (e *Engine) Contract() *contract.Contract {
	return e.contract
}

// RegisterDefault installs b as the unconditional behavior for the
// operation. A later registration overwrites an earlier one.
func (e *Engine) RegisterDefault(operation string, b Behavior) error {
	op, err := e.operation(operation)
	if err != nil {
		return err
	}
	if b == nil {
		return NewConfigError(CodeMissingCallback, e.contract.Name(), operation, "behavior must not be nil")
	}

	e.behaviors.bucket(op.Signature()).setDefault(b)
	e.logger.Debug("default behavior registered",
		"substitute", e.token,
		"operation", op.Name)
	return nil
}

// RegisterWithArgs installs b for calls whose arguments satisfy
// expected. Expected entries are literal values or matchers; the
// expectation's arity must equal the operation's parameter count. The
// most recent expectation registered for an operation drives both the
// args check and fingerprint derivation for live calls.
func (e *Engine) RegisterWithArgs(operation string, expected []any, b Behavior) error {
	op, err := e.operation(operation)
	if err != nil {
		return err
	}
	if b == nil {
		return NewConfigError(CodeMissingCallback, e.contract.Name(), operation, "behavior must not be nil")
	}
	if err := e.checkArity(op, expected); err != nil {
		return err
	}

	exp := copyArgs(expected)
	key := contract.CompositeKey(op.Signature(), contract.Fingerprint(exp, exp))
	e.behaviors.bucket(op.Signature()).setKeyed(key, exp, b)
	e.logger.Debug("conditional behavior registered",
		"substitute", e.token,
		"operation", op.Name,
		"key", key)
	return nil
}

// RegisterSequence installs a one-shot result queue for calls whose
// arguments satisfy expected. Each result answers exactly one call, in
// order; once the queue is empty further matching calls fail with a
// sequence-exhausted error. Registering again under the same
// expectation replaces the previous queue.
func (e *Engine) RegisterSequence(operation string, expected []any, results ...any) error {
	op, err := e.operation(operation)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return NewConfigError(CodeEmptySequence, e.contract.Name(), operation, "sequence requires at least one result")
	}
	if err := e.checkArity(op, expected); err != nil {
		return err
	}

	exp := copyArgs(expected)
	key := contract.CompositeKey(op.Signature(), contract.Fingerprint(exp, exp))
	e.behaviors.bucket(op.Signature()).setSequence(key, exp, sequenceEntries(results))
	e.logger.Debug("sequence registered",
		"substitute", e.token,
		"operation", op.Name,
		"key", key,
		"length", len(results))
	return nil
}

// RegisterProperty installs a value for a property-shaped operation.
// A later registration overwrites an earlier one.
func (e *Engine) RegisterProperty(name string, value any) error {
	op, err := e.operation(name)
	if err != nil {
		return err
	}
	if !op.Property {
		return NewConfigError(CodeNotAProperty, e.contract.Name(), name, "operation is not property-shaped")
	}

	e.props.set(op.Name, value)
	e.logger.Debug("property registered",
		"substitute", e.token,
		"property", op.Name)
	return nil
}

// SetFallback installs the unhandled-call policy: a behavior consulted
// when dispatch resolves nothing else. A nil fallback restores the
// default policy of failing with an unimplemented-operation error.
func (e *Engine) SetFallback(b Behavior) {
	e.fallbackMu.Lock()
	e.fallback = b
	e.fallbackMu.Unlock()
}

// CountOf returns how many calls the operation has received, including
// suppressed ones. Never-invoked operations count 0, as do names
// outside the contract.
func (e *Engine) CountOf(operation string) int64 {
	op, ok := e.contract.Operation(operation)
	if !ok {
		return 0
	}
	return e.calls.countOf(op.Signature())
}

// History returns the completed-call records in dispatch order.
// Suppressed and failed calls are not recorded.
func (e *Engine) History() []string {
	return e.calls.snapshot()
}

// Intercept dispatches one call. On completion the adapted result is
// stored in the invocation; a suppressed call returns nil error with
// the result slot left empty.
func (e *Engine) Intercept(call *Invocation) error {
	if call == nil || call.Op == nil {
		return fmt.Errorf("double: intercept requires an invocation with an operation")
	}

	op := call.Op
	sig := op.Signature()

	var (
		expected    []any
		hasExpected bool
		hasChecked  bool
	)
	bucket := e.behaviors.lookup(sig)
	if bucket != nil {
		expected, hasExpected, hasChecked = bucket.view()
	}

	fingerprint := contract.Fingerprint(call.Args, expected)
	key := contract.CompositeKey(sig, fingerprint)

	count := e.calls.recordCall(sig)
	e.logger.Debug("call received",
		"substitute", e.token,
		"operation", op.Name,
		"key", key,
		"count", count)

	// The counter has already moved; a mismatch from here on is
	// countable but otherwise silent.
	if hasChecked && hasExpected {
		if pos, ok := expectationSatisfied(expected, call.Args); !ok {
			e.logger.Debug("call suppressed",
				"substitute", e.token,
				"operation", op.Name,
				"position", pos)
			return nil
		}
	}

	behavior, source, err := e.resolveBehavior(bucket, op, key)
	if err != nil {
		e.logger.Debug("dispatch failed",
			"substitute", e.token,
			"operation", op.Name,
			"error", err)
		return err
	}
	e.logger.Debug("behavior resolved",
		"substitute", e.token,
		"operation", op.Name,
		"source", source)

	raw, err := behavior(call)
	if err != nil {
		return err
	}

	result, err := adaptResult(op, raw)
	if err != nil {
		return err
	}

	call.setResult(result)
	e.calls.appendHistory(contract.RenderCall(op.Name, call.Args))

	if e.recorder != nil {
		e.recorder.Record(CallEvent{
			Substitute: e.token,
			Contract:   e.contract.Name(),
			Operation:  op.Name,
			Signature:  sig,
			Args:       call.Args,
			Result:     result,
		})
	}

	return nil
}

// resolveBehavior follows the resolution order: composite-key entry,
// default, sequence, property value, fallback. An exhausted sequence
// is terminal, not a fall-through.
func (e *Engine) resolveBehavior(bucket *behaviorBucket, op *contract.Operation, key string) (Behavior, string, error) {
	if bucket != nil {
		b, source, exhausted := bucket.resolve(key)
		if b != nil {
			return b, source, nil
		}
		if exhausted {
			return nil, "", NewSequenceExhaustedError(op.Name, op.Signature())
		}
	}

	if op.Property {
		if v, ok := e.props.get(op.Name); ok {
			return resultBehavior(v), sourceProperty, nil
		}
	}

	e.fallbackMu.RLock()
	fb := e.fallback
	e.fallbackMu.RUnlock()
	if fb != nil {
		return fb, sourceFallback, nil
	}

	return nil, "", NewUnimplementedError(op.Name, op.Signature())
}

func (e *Engine) operation(name string) (*contract.Operation, error) {
	op, ok := e.contract.Operation(name)
	if !ok {
		return nil, NewConfigError(CodeOperationNotFound, e.contract.Name(), name, "no such operation")
	}
	return op, nil
}

func (e *Engine) checkArity(op *contract.Operation, expected []any) error {
	if len(expected) != len(op.Params) {
		return NewConfigError(CodeArgCountMismatch, e.contract.Name(), op.Name,
			fmt.Sprintf("expectation has %d arguments, operation declares %d", len(expected), len(op.Params)))
	}
	return nil
}

// copyArgs copies an expectation so later mutation of the caller's
// slice cannot change registered keys.
func copyArgs(args []any) []any {
	if args == nil {
		return nil
	}
	out := make([]any, len(args))
	copy(out, args)
	return out
}
