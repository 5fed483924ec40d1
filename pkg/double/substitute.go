package double

import (
	"fmt"

	"github.com/roach88/understudy/pkg/contract"
)

// Substitute is an opaque handle to one test double. Generated doubles
// embed or wrap a Substitute and forward their typed methods through
// Invoke.
//
// Substitutes are created by Registry.CreateSubstitute only; the zero
// value is not usable.
type Substitute struct {
	id       string
	contract *contract.Contract
	engine   *Engine
}

// ID returns the substitute's identity token.
func (s *Substitute) ID() string { return s.id }

// Contract returns the contract the substitute answers for.
func (s *Substitute) Contract() *contract.Contract { return s.contract }

// Invoke dispatches one call through the substitute's engine and
// returns the adapted result.
//
// The argument count must equal the operation's declared parameter
// count. A suppressed call returns (nil, nil): the caller observes
// zero values and no error.
func (s *Substitute) Invoke(operation string, args ...any) (any, error) {
	if s == nil || s.engine == nil {
		return nil, ErrNilSubstitute
	}

	op, ok := s.contract.Operation(operation)
	if !ok {
		return nil, NewConfigError(CodeOperationNotFound, s.contract.Name(), operation, "no such operation")
	}
	if len(args) != len(op.Params) {
		return nil, NewConfigError(CodeArgCountMismatch, s.contract.Name(), operation,
			fmt.Sprintf("call has %d arguments, operation declares %d", len(args), len(op.Params)))
	}

	call := &Invocation{Op: op, Args: args}
	if err := s.engine.Intercept(call); err != nil {
		return nil, err
	}

	result, _ := call.Result()
	return result, nil
}
