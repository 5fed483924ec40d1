package journal

import (
	"context"
	"fmt"

	"github.com/roach88/understudy/pkg/contract"
	"github.com/roach88/understudy/pkg/double"
)

// ReplayStats reports what a replay registered.
type ReplayStats struct {
	// Calls is the number of rows turned into sequence entries.
	Calls int

	// Groups is the number of sequences registered, one per distinct
	// argument group.
	Groups int

	// Skipped is the number of unreplayable rows passed over.
	Skipped int
}

// Replay loads a recorded substitute's calls and registers them on
// eng as one-shot sequences: one sequence per distinct argument group,
// results in recorded order. A test that then drives eng with the
// recorded arguments receives the recorded results, call for call,
// and one further call past the recording reports exhaustion.
//
// The engine's contract must carry the recorded contract's name and
// every recorded operation with matching arity; drift is an error.
// Unreplayable rows are skipped and counted in the stats.
func Replay(ctx context.Context, s *Store, substituteID string, eng *double.Engine) (ReplayStats, error) {
	var stats ReplayStats

	calls, err := s.Calls(ctx, substituteID)
	if err != nil {
		return stats, fmt.Errorf("replay: %w", err)
	}
	if len(calls) == 0 {
		return stats, fmt.Errorf("replay: no recorded calls for substitute %q", substituteID)
	}

	want := eng.Contract().Name()
	if got := calls[0].Contract; got != want {
		return stats, fmt.Errorf("replay: journal records contract %q, engine answers for %q", got, want)
	}

	type group struct {
		operation string
		args      []any
		results   []any
	}
	groups := make(map[string]*group)
	var order []string // registration order is first-seen order

	for _, call := range calls {
		if !call.Replayable {
			stats.Skipped++
			continue
		}

		op, ok := eng.Contract().Operation(call.Operation)
		if !ok {
			return stats, fmt.Errorf("replay: recorded operation %q is not in contract %q", call.Operation, want)
		}
		if len(call.Args) != len(op.Params) {
			return stats, fmt.Errorf("replay: call %s/%d has %d arguments, operation %s declares %d",
				call.SubstituteID, call.Seq, len(call.Args), call.Operation, len(op.Params))
		}

		key := contract.CompositeKey(op.Signature(), contract.Fingerprint(call.Args, nil))
		g, ok := groups[key]
		if !ok {
			g = &group{operation: call.Operation, args: call.Args}
			groups[key] = g
			order = append(order, key)
		}
		g.results = append(g.results, call.Result)
		stats.Calls++
	}

	for _, key := range order {
		g := groups[key]
		if err := eng.RegisterSequence(g.operation, g.args, g.results...); err != nil {
			return stats, fmt.Errorf("replay: register %s: %w", g.operation, err)
		}
		stats.Groups++
	}

	return stats, nil
}
