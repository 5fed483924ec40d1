package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Call is one journal row with its stored values decoded.
type Call struct {
	SubstituteID string
	Seq          int64
	Contract     string
	Operation    string
	Signature    string

	// Args are the decoded arguments in declaration order. Integral
	// numbers decode as int64, fractional as float64, matching the
	// forms live calls carry.
	Args []any

	// Result is the decoded result value. For deferred operations this
	// is the recorded payload, not the completion wrapper.
	Result any

	// Replayable marks rows whose values survived serialization.
	// Unreplayable rows keep rendered placeholder text for display.
	Replayable bool
}

// Calls returns a substitute's recorded calls in logical sequence
// order. Returns an empty slice (not nil) when the substitute has no
// rows. Equivalent to Query with a nil filter.
func (s *Store) Calls(ctx context.Context, substituteID string) ([]Call, error) {
	return s.Query(ctx, substituteID, nil)
}

// scanCalls drains a call query's rows into decoded Call values.
func scanCalls(rows *sql.Rows) ([]Call, error) {
	var calls []Call
	for rows.Next() {
		var (
			c          Call
			argsJSON   string
			resultJSON string
		)
		if err := rows.Scan(&c.SubstituteID, &c.Seq, &c.Contract, &c.Operation,
			&c.Signature, &argsJSON, &resultJSON, &c.Replayable); err != nil {
			return nil, fmt.Errorf("scan call: %w", err)
		}

		var err error
		if c.Args, err = decodeArgs(argsJSON); err != nil {
			return nil, fmt.Errorf("call %s/%d: %w", c.SubstituteID, c.Seq, err)
		}
		if c.Result, err = decodeValue(resultJSON); err != nil {
			return nil, fmt.Errorf("call %s/%d: %w", c.SubstituteID, c.Seq, err)
		}

		calls = append(calls, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calls: %w", err)
	}

	if calls == nil {
		calls = []Call{}
	}
	return calls, nil
}

// SubstituteSummary describes one substitute's presence in the
// journal.
type SubstituteSummary struct {
	ID       string
	Contract string
	Calls    int64
}

// Substitutes lists every substitute with recorded calls, sorted by
// ID. Returns an empty slice (not nil) for an empty journal.
func (s *Store) Substitutes(ctx context.Context) ([]SubstituteSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT substitute_id, contract, COUNT(*)
		FROM recorded_calls
		GROUP BY substitute_id, contract
		ORDER BY substitute_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query substitutes: %w", err)
	}
	defer rows.Close()

	var summaries []SubstituteSummary
	for rows.Next() {
		var sum SubstituteSummary
		if err := rows.Scan(&sum.ID, &sum.Contract, &sum.Calls); err != nil {
			return nil, fmt.Errorf("scan substitute: %w", err)
		}
		summaries = append(summaries, sum)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate substitutes: %w", err)
	}

	if summaries == nil {
		summaries = []SubstituteSummary{}
	}
	return summaries, nil
}

// decodeArgs parses an args column into the canonical argument list.
func decodeArgs(data string) ([]any, error) {
	v, err := decodeValue(data)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("args column is not a list")
	}
	return list, nil
}

// decodeValue parses JSON TEXT with numbers routed through
// json.Number, so integral values land as int64 rather than float64
// and large integers keep full precision.
func decodeValue(data string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	return canonicalize(v), nil
}

// canonicalize maps decoded JSON onto the forms live arguments carry:
// json.Number becomes int64 when integral and float64 otherwise, and
// containers canonicalize recursively.
func canonicalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		s := t.String()
		if !strings.ContainsAny(s, ".eE") {
			if n, err := strconv.ParseInt(s, 10, 64); err == nil {
				return n
			}
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i, e := range t {
			t[i] = canonicalize(e)
		}
		return t
	case map[string]any:
		for k, e := range t {
			t[k] = canonicalize(e)
		}
		return t
	default:
		return v
	}
}
