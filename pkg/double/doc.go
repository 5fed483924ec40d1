// Package double implements the substitute engine: registries that own
// test doubles, per-substitute dispatch engines, behavior stores, and
// the call ledger tests assert against.
//
// # Architecture
//
// A Registry is the explicit root object for one test (or one test
// suite). It creates Substitutes from contract descriptors and binds
// each to exactly one Engine for the substitute's lifetime. There is
// no package-level registry: all association state lives in Registry
// values, so parallel tests never share doubles by accident.
//
// Dispatch runs entirely on the calling goroutine and moves through a
// fixed pipeline:
//
//	Received          signature + fingerprint derived
//	CountedAndKeyed   per-signature counter incremented (always)
//	ArgsChecked       actual args checked against the registered
//	                  expectation, when one applies
//	Resolved          behavior located: exact args, then default, then
//	                  sequence, then property value, then fallback
//	Completed         result adapted to the declared return shape,
//	                  history entry appended
//
// A call can leave the pipeline early in two ways. Resolution misses
// everything: the dispatch fails with an UnimplementedOperation or
// SequenceExhausted error. The args check misses: the call is
// suppressed.
//
// # Suppressed calls
//
// Suppression is silent. When an operation has configured behavior but
// the actual arguments do not satisfy the registered expectation, the
// call consumes no behavior, appends no history entry, and returns nil
// with no error; the caller observes zero values. The call counter
// still increments, because counting happens before the args check.
// Assertions that only read history can therefore miss calls that did
// happen; count-based assertions cannot. Callers that need to detect
// unexpected argument combinations should install a fallback behavior
// or assert on counters.
//
// # Configuration surfaces
//
// Engine methods (RegisterDefault, RegisterWithArgs, RegisterSequence,
// RegisterProperty, SetFallback) return errors and suit programmatic
// use. The fluent layer (On, WithArgs, Return, Fail, Do, Sequence,
// Complete) panics on configuration mistakes so that a bad setup fails
// at its call site; it is meant for test code.
package double
