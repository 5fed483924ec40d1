// Package journal provides SQLite-backed recording and replay of
// substitute calls.
//
// The journal is an append-only log of completed dispatches:
//   - Recorder observes an engine's completed calls and writes one row
//     per call, stamped with a logical sequence number
//   - Calls reads a substitute's rows back in sequence order
//   - Query narrows a read with composable filters (operation name,
//     sequence range, replayability), compiled to parameterized SQL
//   - Replay turns a recorded session into one-shot sequences on a
//     fresh engine, so a later test run answers with the recorded
//     results
//
// # Ordering
//
// All ordering uses the seq column, a logical clock, never wall-clock
// timestamps. Two runs that record the same dispatches produce
// byte-identical journals.
//
// # Serialization
//
// Arguments and results are stored as JSON with HTML escaping
// disabled. Reads decode numbers through json.Number into int64 and
// float64, the canonical forms live arguments carry, so a replayed
// expectation keys and compares identically to the original call.
// Values JSON cannot carry (functions, channels) mark the row
// unreplayable; replay skips such rows and reports them. Byte slices
// survive as base64 strings, so binary arguments do not round-trip.
//
// # Durability
//
// Writes never interfere with dispatch: a failed insert is logged and
// dropped. Inserts are idempotent per (substitute, seq).
//
// Database configuration:
//   - WAL mode for concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
package journal
