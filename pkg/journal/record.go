package journal

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/roach88/understudy/pkg/contract"
	"github.com/roach88/understudy/pkg/double"
)

// Clock issues logical sequence numbers for journal rows.
type Clock interface {
	Next() int64
}

// AtomicClock is the default clock: a strictly increasing counter.
// The first call to Next returns 1.
//
// Thread-safety: safe for concurrent use (atomic operations).
type AtomicClock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *AtomicClock {
	return &AtomicClock{}
}

// NewClockAt creates a clock starting at a specific sequence number.
// Used to resume recording into an existing journal without colliding
// with rows already written.
func NewClockAt(start int64) *AtomicClock {
	c := &AtomicClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *AtomicClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *AtomicClock) Current() int64 {
	return c.seq.Load()
}

// Recorder writes completed calls to a journal store. It implements
// the engine's recorder seam: attach one with double.WithRecorder and
// every completed dispatch in that registry lands in the journal.
//
// Recording never interferes with dispatch. A value JSON cannot carry
// marks its row unreplayable (the stored text degrades to the rendered
// form, so traces stay readable); a write fault is logged and the row
// is dropped.
type Recorder struct {
	store  *Store
	clock  Clock
	logger *slog.Logger
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithClock sets the sequence source. Defaults to a fresh AtomicClock.
func WithClock(c Clock) RecorderOption {
	return func(r *Recorder) {
		if c != nil {
			r.clock = c
		}
	}
}

// WithLogger sets the logger for write faults. Defaults to
// slog.Default().
func WithLogger(logger *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store *Store, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:  store,
		clock:  NewClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record implements double.Recorder.
func (r *Recorder) Record(ev double.CallEvent) {
	seq := r.clock.Next()

	argsJSON, argsOK := marshalArgs(ev.Args)
	resultJSON, resultOK := marshalResult(ev.Result)
	replayable := argsOK && resultOK

	row := callRow{
		SubstituteID: ev.Substitute,
		Seq:          seq,
		Contract:     ev.Contract,
		Operation:    ev.Operation,
		Signature:    ev.Signature,
		Args:         argsJSON,
		Result:       resultJSON,
		Replayable:   replayable,
	}

	if err := r.store.writeCall(context.Background(), row); err != nil {
		r.logger.Warn("journal write failed, call dropped",
			"substitute", ev.Substitute,
			"operation", ev.Operation,
			"seq", seq,
			"error", err)
		return
	}

	if !replayable {
		r.logger.Debug("call recorded as unreplayable",
			"substitute", ev.Substitute,
			"operation", ev.Operation,
			"seq", seq)
	}
}

// marshalArgs serializes the argument list to JSON TEXT. The second
// result is false when a value cannot be represented in JSON; the
// stored text then degrades to the rendered argument forms.
func marshalArgs(args []any) (string, bool) {
	if len(args) == 0 {
		return "[]", true
	}
	if data, ok := marshalValue(args); ok {
		return data, true
	}

	rendered := make([]string, len(args))
	for i, arg := range args {
		rendered[i] = contract.Render(arg)
	}
	data, _ := marshalValue(rendered)
	return data, false
}

// marshalResult serializes a result to JSON TEXT. Deferred completions
// store their payload alone: replay re-wraps it through the
// operation's declared shape. The second result is false when the
// value cannot be represented in JSON.
func marshalResult(v any) (string, bool) {
	if d, ok := v.(double.Deferred); ok {
		payload, has := d.Value()
		if !has {
			return "null", true
		}
		v = payload
	}

	if data, ok := marshalValue(v); ok {
		return data, true
	}
	data, _ := marshalValue(contract.Render(v))
	return data, false
}

// marshalValue encodes v as JSON with HTML escaping disabled, so
// stored text matches the canonical rendering of strings.
func marshalValue(v any) (string, bool) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", false
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), true
}
