package journal

import (
	"context"
	"fmt"
	"strings"
)

// Filter narrows which of a substitute's recorded calls a query
// returns.
//
// This is a sealed interface: only types in this package implement
// it, which keeps the SQL compiler's type switch exhaustive. Filters
// compose with AllOf; there is no disjunction, run separate queries
// for OR semantics.
type Filter interface {
	filterNode() // Marker method, seals the interface to this package
}

// OperationIs matches rows recorded for one operation name.
type OperationIs struct {
	Name string
}

func (OperationIs) filterNode() {}

// SeqBetween matches rows whose logical sequence number lies in the
// inclusive range [From, To].
type SeqBetween struct {
	From int64
	To   int64
}

func (SeqBetween) filterNode() {}

// ReplayableIs matches rows by their replayable flag. ReplayableIs
// with Value false selects the rows whose values degraded to rendered
// placeholder text at recording time.
type ReplayableIs struct {
	Value bool
}

func (ReplayableIs) filterNode() {}

// AllOf matches rows satisfying every inner filter. An empty filter
// list matches everything.
type AllOf struct {
	Filters []Filter
}

func (AllOf) filterNode() {}

// Query returns a substitute's recorded calls matching filter, in
// logical sequence order. A nil filter matches every row, so
// Query(ctx, id, nil) and Calls(ctx, id) are equivalent. Returns an
// empty slice (not nil) when nothing matches.
func (s *Store) Query(ctx context.Context, substituteID string, filter Filter) ([]Call, error) {
	where, params, err := compileFilter(filter)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}

	args := append([]any{substituteID}, params...)
	rows, err := s.db.QueryContext(ctx, `
		SELECT substitute_id, seq, contract, operation, signature, args, result, replayable
		FROM recorded_calls
		WHERE substitute_id = ? AND `+where+`
		ORDER BY seq ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("query calls: %w", err)
	}
	defer rows.Close()

	return scanCalls(rows)
}

// compileFilter compiles a filter into a parameterized WHERE
// fragment. Values are never interpolated into the SQL text, they
// always travel as ? placeholders.
func compileFilter(f Filter) (string, []any, error) {
	if f == nil {
		return "1 = 1", nil, nil // Always true
	}

	switch flt := f.(type) {
	case OperationIs:
		return compileOperationIs(flt)
	case *OperationIs:
		return compileOperationIs(*flt)
	case SeqBetween:
		return compileSeqBetween(flt)
	case *SeqBetween:
		return compileSeqBetween(*flt)
	case ReplayableIs:
		return "replayable = ?", []any{flt.Value}, nil
	case *ReplayableIs:
		return "replayable = ?", []any{flt.Value}, nil
	case AllOf:
		return compileAllOf(flt)
	case *AllOf:
		return compileAllOf(*flt)
	default:
		return "", nil, fmt.Errorf("unsupported filter type: %T", f)
	}
}

func compileOperationIs(f OperationIs) (string, []any, error) {
	if f.Name == "" {
		return "", nil, fmt.Errorf("operation filter requires a name")
	}
	return "operation = ?", []any{f.Name}, nil
}

func compileSeqBetween(f SeqBetween) (string, []any, error) {
	if f.From > f.To {
		return "", nil, fmt.Errorf("sequence range [%d, %d] is inverted", f.From, f.To)
	}
	return "seq BETWEEN ? AND ?", []any{f.From, f.To}, nil
}

func compileAllOf(f AllOf) (string, []any, error) {
	if len(f.Filters) == 0 {
		return "1 = 1", nil, nil // Vacuous truth
	}

	var sqlParts []string
	var allParams []any
	for _, inner := range f.Filters {
		sql, params, err := compileFilter(inner)
		if err != nil {
			return "", nil, err
		}
		sqlParts = append(sqlParts, sql)
		allParams = append(allParams, params...)
	}

	return strings.Join(sqlParts, " AND "), allParams, nil
}
