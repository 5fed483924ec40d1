package double

import (
	"sync"
	"sync/atomic"
)

// ledger tracks per-signature call counts and the history of completed
// calls for one engine.
//
// Counters and history are deliberately separate: the counter moves on
// every received call, history records only calls that completed.
// Suppressed and failed calls are therefore visible in counts but
// absent from history.
//
// Thread-safety: safe for concurrent use. Counters are atomic once
// allocated; the map itself is guarded by an RWMutex so the fast path
// for an already-seen signature takes only a read lock.
type ledger struct {
	countsMu sync.RWMutex
	counts   map[string]*atomic.Int64

	historyMu sync.Mutex
	history   []string
}

func newLedger() *ledger {
	return &ledger{
		counts: make(map[string]*atomic.Int64),
	}
}

// recordCall increments the counter for signature and returns the new
// value.
func (l *ledger) recordCall(signature string) int64 {
	l.countsMu.RLock()
	c, ok := l.counts[signature]
	l.countsMu.RUnlock()

	if !ok {
		l.countsMu.Lock()
		c, ok = l.counts[signature]
		if !ok {
			c = &atomic.Int64{}
			l.counts[signature] = c
		}
		l.countsMu.Unlock()
	}

	return c.Add(1)
}

// countOf returns the counter for signature, 0 when the signature was
// never dispatched.
func (l *ledger) countOf(signature string) int64 {
	l.countsMu.RLock()
	defer l.countsMu.RUnlock()

	if c, ok := l.counts[signature]; ok {
		return c.Load()
	}
	return 0
}

// appendHistory records one completed call.
func (l *ledger) appendHistory(entry string) {
	l.historyMu.Lock()
	defer l.historyMu.Unlock()
	l.history = append(l.history, entry)
}

// snapshot returns a copy of the history in append order.
func (l *ledger) snapshot() []string {
	l.historyMu.Lock()
	defer l.historyMu.Unlock()

	out := make([]string, len(l.history))
	copy(out, l.history)
	return out
}
