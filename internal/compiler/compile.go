package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/understudy/pkg/contract"
)

// CompileContract parses a CUE value into a validated contract.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the contract struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`contract: PaymentGateway: { ... }`)
//	c, err := CompileContract(v.LookupPath(cue.ParsePath("contract.PaymentGateway")))
func CompileContract(v cue.Value) (*contract.Contract, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	// Contract name comes from the struct label (the path selector).
	var name string
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		name = labels[len(labels)-1].String()
	}

	ops, err := parseOperations(v)
	if err != nil {
		return nil, err
	}

	props, err := parseProperties(v)
	if err != nil {
		return nil, err
	}
	ops = append(ops, props...)

	if len(ops) == 0 {
		return nil, &CompileError{
			Field:   "operation",
			Message: "at least one operation or property is required",
			Pos:     v.Pos(),
		}
	}

	c, err := contract.New(name, ops...)
	if err != nil {
		return nil, &CompileError{
			Field:   "contract",
			Message: err.Error(),
			Pos:     v.Pos(),
		}
	}

	return c, nil
}

// parseOperations extracts operation descriptors from the contract.
func parseOperations(v cue.Value) ([]contract.Operation, error) {
	var ops []contract.Operation

	opsVal := v.LookupPath(cue.ParsePath("operation"))
	if !opsVal.Exists() {
		return ops, nil
	}

	iter, err := opsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		op, err := parseOperation(iter.Label(), iter.Value())
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return ops, nil
}

// parseOperation parses a single operation struct.
func parseOperation(name string, v cue.Value) (contract.Operation, error) {
	op := contract.Operation{Name: name}

	// Parse typeargs (optional)
	typeargsVal := v.LookupPath(cue.ParsePath("typeargs"))
	if typeargsVal.Exists() {
		taIter, err := typeargsVal.List()
		if err != nil {
			return op, formatCUEError(err)
		}
		for taIter.Next() {
			ta, err := taIter.Value().String()
			if err != nil {
				return op, formatCUEError(err)
			}
			if ta == "" {
				return op, &CompileError{
					Field:   fmt.Sprintf("operation.%s.typeargs", name),
					Message: "type arguments must be non-empty",
					Pos:     taIter.Value().Pos(),
				}
			}
			op.TypeArgs = append(op.TypeArgs, ta)
		}
	}

	// Parse params (optional)
	paramsVal := v.LookupPath(cue.ParsePath("params"))
	if paramsVal.Exists() {
		params, err := parseParams(name, paramsVal)
		if err != nil {
			return op, err
		}
		op.Params = params
	}

	// Parse returns (optional, absence means a void operation)
	ret, err := parseReturns(name, v)
	if err != nil {
		return op, err
	}
	op.Returns = ret

	return op, nil
}

// parseParams parses the params list of an operation.
func parseParams(opName string, v cue.Value) ([]contract.Param, error) {
	var params []contract.Param

	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	i := -1
	for iter.Next() {
		i++
		pv := iter.Value()

		nameVal := pv.LookupPath(cue.ParsePath("name"))
		if !nameVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("operation.%s.params[%d]", opName, i),
				Message: "param name is required",
				Pos:     pv.Pos(),
			}
		}
		pname, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		typeVal := pv.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("operation.%s.params[%d].type", opName, i),
				Message: fmt.Sprintf("param %q requires a type", pname),
				Pos:     pv.Pos(),
			}
		}
		ptype, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		param := contract.Param{Name: pname, Type: ptype}

		byrefVal := pv.LookupPath(cue.ParsePath("byref"))
		if byrefVal.Exists() {
			byref, err := byrefVal.Bool()
			if err != nil {
				return nil, formatCUEError(err)
			}
			param.ByRef = byref
		}

		params = append(params, param)
	}

	return params, nil
}

// parseReturns parses the returns struct of an operation into a shape.
// The four shapes map from the two fields:
//
//	absent                     -> none (void)
//	{type: T}                  -> immediate value of T
//	{deferred: true}           -> deferred completion, no payload
//	{type: T, deferred: true}  -> deferred completion with payload T
func parseReturns(opName string, v cue.Value) (contract.Return, error) {
	var ret contract.Return

	retVal := v.LookupPath(cue.ParsePath("returns"))
	if !retVal.Exists() {
		return ret, nil
	}

	var typeName string
	typeVal := retVal.LookupPath(cue.ParsePath("type"))
	if typeVal.Exists() {
		t, err := typeVal.String()
		if err != nil {
			return ret, formatCUEError(err)
		}
		typeName = t
	}

	deferred := false
	deferredVal := retVal.LookupPath(cue.ParsePath("deferred"))
	if deferredVal.Exists() {
		d, err := deferredVal.Bool()
		if err != nil {
			return ret, formatCUEError(err)
		}
		deferred = d
	}

	switch {
	case deferred && typeName != "":
		ret = contract.Return{Shape: contract.ShapeDeferredValue, Type: typeName}
	case deferred:
		ret = contract.Return{Shape: contract.ShapeDeferred}
	case typeName != "":
		ret = contract.Return{Shape: contract.ShapeValue, Type: typeName}
	default:
		return ret, &CompileError{
			Field:   fmt.Sprintf("operation.%s.returns", opName),
			Message: "returns requires a type, deferred, or both",
			Pos:     retVal.Pos(),
		}
	}

	return ret, nil
}

// parseProperties extracts property descriptors from the contract.
// Properties compile to property-shaped operations: no parameters,
// an immediate value result.
func parseProperties(v cue.Value) ([]contract.Operation, error) {
	var ops []contract.Operation

	propsVal := v.LookupPath(cue.ParsePath("property"))
	if !propsVal.Exists() {
		return ops, nil
	}

	iter, err := propsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	for iter.Next() {
		name := iter.Label()
		pv := iter.Value()

		typeVal := pv.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return nil, &CompileError{
				Field:   fmt.Sprintf("property.%s", name),
				Message: "property type is required",
				Pos:     pv.Pos(),
			}
		}
		ptype, err := typeVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}

		ops = append(ops, contract.Operation{
			Name:     name,
			Returns:  contract.Return{Shape: contract.ShapeValue, Type: ptype},
			Property: true,
		})
	}

	return ops, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
