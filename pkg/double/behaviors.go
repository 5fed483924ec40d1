package double

import "sync"

// Behavior produces the raw result for one dispatched call. The raw
// value is adapted to the operation's declared return shape after the
// behavior runs, so a behavior may return a bare payload even for
// deferred operations.
//
// Thread-safety: behaviors may be invoked from any goroutine and must
// be safe for concurrent use if the substitute is shared.
type Behavior func(call *Invocation) (any, error)

// behaviorStore holds all registered behaviors for one engine, bucketed
// by operation signature.
//
// Thread-safety: the outer map is guarded by an RWMutex, each bucket by
// its own mutex, and each sequence queue by its own mutex. Lock order
// is always store -> bucket -> sequence; no path takes them in another
// order.
type behaviorStore struct {
	mu  sync.RWMutex
	ops map[string]*behaviorBucket
}

// behaviorBucket holds the configuration for one operation signature:
// the default behavior, composite-key behaviors and sequences, and the
// most recently registered expectation. The expectation drives both
// fingerprint derivation for live calls and the args check.
type behaviorBucket struct {
	mu          sync.Mutex
	def         Behavior
	byKey       map[string]Behavior
	sequences   map[string]*sequence
	expected    []any
	hasExpected bool
}

// sequence is an ordered one-shot queue of behaviors under a composite
// key. Entries are consumed front to back; a consumed queue stays in
// its bucket so exhaustion is distinguishable from absence.
type sequence struct {
	mu      sync.Mutex
	pending []Behavior
}

// dequeue removes and returns the front behavior. The removal is
// atomic: concurrent callers each receive a distinct entry, and the
// second result is false once the queue is empty.
func (s *sequence) dequeue() (Behavior, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil, false
	}

	b := s.pending[0]
	s.pending[0] = nil
	s.pending = s.pending[1:]
	return b, true
}

// remaining returns the number of unconsumed entries.
func (s *sequence) remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func newBehaviorStore() *behaviorStore {
	return &behaviorStore{
		ops: make(map[string]*behaviorBucket),
	}
}

// bucket returns the bucket for signature, creating it on first use.
func (bs *behaviorStore) bucket(signature string) *behaviorBucket {
	bs.mu.RLock()
	b, ok := bs.ops[signature]
	bs.mu.RUnlock()
	if ok {
		return b
	}

	bs.mu.Lock()
	defer bs.mu.Unlock()
	if b, ok = bs.ops[signature]; ok {
		return b
	}
	b = &behaviorBucket{
		byKey:     make(map[string]Behavior),
		sequences: make(map[string]*sequence),
	}
	bs.ops[signature] = b
	return b
}

// lookup returns the bucket for signature, nil when nothing was ever
// registered for it.
func (bs *behaviorStore) lookup(signature string) *behaviorBucket {
	bs.mu.RLock()
	defer bs.mu.RUnlock()
	return bs.ops[signature]
}

// setDefault installs b as the default behavior. Last writer wins.
func (bkt *behaviorBucket) setDefault(b Behavior) {
	bkt.mu.Lock()
	defer bkt.mu.Unlock()
	bkt.def = b
}

// setKeyed installs b under the composite key and records the
// expectation that produced the key.
func (bkt *behaviorBucket) setKeyed(key string, expected []any, b Behavior) {
	bkt.mu.Lock()
	defer bkt.mu.Unlock()
	bkt.byKey[key] = b
	bkt.expected = expected
	bkt.hasExpected = true
}

// setSequence installs a fresh queue under the composite key,
// replacing any previous queue for that key, and records the
// expectation.
func (bkt *behaviorBucket) setSequence(key string, expected []any, entries []Behavior) {
	bkt.mu.Lock()
	defer bkt.mu.Unlock()
	bkt.sequences[key] = &sequence{pending: entries}
	bkt.expected = expected
	bkt.hasExpected = true
}

// view captures the state dispatch needs under one lock acquisition:
// the current expectation and whether checked behaviors (default or
// composite) exist.
func (bkt *behaviorBucket) view() (expected []any, hasExpected, hasChecked bool) {
	bkt.mu.Lock()
	defer bkt.mu.Unlock()
	return bkt.expected, bkt.hasExpected, bkt.def != nil || len(bkt.byKey) > 0
}

// resolve locates the behavior for key following the resolution order:
// composite-key entry, then default, then sequence. The third result
// reports that a sequence existed for the key but was exhausted.
func (bkt *behaviorBucket) resolve(key string) (Behavior, string, bool) {
	bkt.mu.Lock()
	if b, ok := bkt.byKey[key]; ok {
		bkt.mu.Unlock()
		return b, sourceExact, false
	}
	if bkt.def != nil {
		b := bkt.def
		bkt.mu.Unlock()
		return b, sourceDefault, false
	}
	seq, ok := bkt.sequences[key]
	bkt.mu.Unlock()

	if !ok {
		return nil, "", false
	}
	if b, ok := seq.dequeue(); ok {
		return b, sourceSequence, false
	}
	return nil, "", true
}

// Behavior resolution sources, used in logs.
const (
	sourceExact    = "exact"
	sourceDefault  = "default"
	sourceSequence = "sequence"
	sourceProperty = "property"
	sourceFallback = "fallback"
)

// propertyStore holds property values keyed by operation name.
type propertyStore struct {
	mu     sync.RWMutex
	values map[string]any
}

func newPropertyStore() *propertyStore {
	return &propertyStore{values: make(map[string]any)}
}

func (ps *propertyStore) set(name string, v any) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.values[name] = v
}

func (ps *propertyStore) get(name string) (any, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	v, ok := ps.values[name]
	return v, ok
}

// resultBehavior wraps a fixed value as a Behavior.
func resultBehavior(v any) Behavior {
	return func(*Invocation) (any, error) {
		return v, nil
	}
}

// sequenceEntries wraps each result value as a one-shot behavior.
func sequenceEntries(results []any) []Behavior {
	entries := make([]Behavior, len(results))
	for i, r := range results {
		entries[i] = resultBehavior(r)
	}
	return entries
}
