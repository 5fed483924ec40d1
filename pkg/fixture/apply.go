package fixture

import (
	"errors"
	"fmt"

	"github.com/roach88/understudy/pkg/double"
	"github.com/roach88/understudy/pkg/match"
)

// Apply configures sub with the fixture's stubs and properties. The
// substitute must belong to reg and answer for the fixture's contract.
//
// Stubs are applied in order; the first failing stub aborts the apply
// with an error naming its index. Registrations already applied stay
// in place, so a failed apply leaves the substitute partially
// configured and the caller should discard it.
func (f *Fixture) Apply(reg *double.Registry, sub *double.Substitute) error {
	if sub == nil {
		return double.ErrNilSubstitute
	}
	if _, err := reg.EngineFor(sub); err != nil {
		return err
	}
	if got := sub.Contract().Name(); got != f.Contract {
		return fmt.Errorf("fixture targets contract %q, substitute answers for %q", f.Contract, got)
	}

	for i, st := range f.Stubs {
		if err := applyStub(sub, &st); err != nil {
			return fmt.Errorf("stubs[%d] (%s): %w", i, st.Operation, err)
		}
	}

	for name, value := range f.Properties {
		if err := applyProperty(sub, name, value); err != nil {
			return fmt.Errorf("properties[%s]: %w", name, err)
		}
	}

	return nil
}

// applyStub routes one stub through the fluent layer, converting its
// setup panics back into errors so fixture loading reports failures
// instead of crashing the test.
func applyStub(sub *double.Substitute, st *StubSpec) (err error) {
	defer func() { err = recovered(recover(), err) }()

	stub := double.On(sub, st.Operation)
	if len(st.Args) > 0 {
		stub = stub.WithArgs(expectedArgs(st.Args)...)
	}

	switch {
	case st.Returns != nil:
		stub.Return(normalize(st.Returns))
	case len(st.Sequence) > 0:
		stub.Sequence(normalizeAll(st.Sequence)...)
	case st.Complete:
		stub.Complete()
	case st.Fail != "":
		stub.Fail(errors.New(st.Fail))
	}
	return nil
}

func applyProperty(sub *double.Substitute, name string, value any) (err error) {
	defer func() { err = recovered(recover(), err) }()

	double.SetProperty(sub, name, normalize(value))
	return nil
}

// recovered maps a setup panic to the error Apply returns.
func recovered(r any, err error) error {
	if r == nil {
		return err
	}
	if e, ok := r.(error); ok {
		return e
	}
	return fmt.Errorf("%v", r)
}

// expectedArgs converts arg specs into the engine's expectation form:
// wildcards become matchers, literals are normalized values.
func expectedArgs(specs []ArgSpec) []any {
	out := make([]any, len(specs))
	for i, spec := range specs {
		if spec.Any {
			out[i] = match.Any()
			continue
		}
		out[i] = normalize(spec.Value)
	}
	return out
}

// normalize maps YAML-decoded values onto the canonical runtime forms
// live calls use: integers become int64 so literal expectations
// compare and render identically to live arguments. Lists and maps
// normalize recursively.
func normalize(v any) any {
	switch t := v.(type) {
	case int:
		return int64(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalize(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = normalize(e)
		}
		return out
	default:
		return v
	}
}

func normalizeAll(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = normalize(v)
	}
	return out
}
