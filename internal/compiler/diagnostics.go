package compiler

import (
	"errors"
	"fmt"

	"cuelang.org/go/cue"
)

// Diagnostic is one finding from contract validation, JSON-ready for
// CLI output.
type Diagnostic struct {
	Contract string `json:"contract,omitempty"`
	Field    string `json:"field"`
	Message  string `json:"message"`
	Code     string `json:"code"`
	Line     int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (d Diagnostic) Error() string {
	if d.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", d.Code, d.Line, d.Field, d.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", d.Code, d.Field, d.Message)
}

// Diagnose compiles every contract in the built CUE value and collects
// all findings (does not fail-fast). A clean value returns an empty
// slice.
func Diagnose(value cue.Value) []Diagnostic {
	var diags []Diagnostic

	contractsVal := value.LookupPath(cue.ParsePath("contract"))
	if !contractsVal.Exists() {
		return []Diagnostic{{
			Field:   "contract",
			Message: "no contracts found",
			Code:    ErrCodeGeneric,
		}}
	}

	iter, err := contractsVal.Fields()
	if err != nil {
		return []Diagnostic{{
			Field:   "contract",
			Message: fmt.Sprintf("iterating contracts: %v", err),
			Code:    ErrCodeGeneric,
		}}
	}

	count := 0
	for iter.Next() {
		count++
		name := iter.Label()
		if _, compileErr := CompileContract(iter.Value()); compileErr != nil {
			diags = append(diags, toDiagnostic(name, compileErr))
		}
	}

	if count == 0 {
		diags = append(diags, Diagnostic{
			Field:   "contract",
			Message: "no contracts found",
			Code:    ErrCodeGeneric,
		})
	}

	return diags
}

// toDiagnostic converts a compile error into a diagnostic for the
// named contract.
func toDiagnostic(contractName string, err error) Diagnostic {
	var compileErr *CompileError
	if errors.As(err, &compileErr) {
		line := 0
		if compileErr.Pos.IsValid() {
			line = compileErr.Pos.Line()
		}
		return Diagnostic{
			Contract: contractName,
			Field:    compileErr.Field,
			Message:  compileErr.Message,
			Code:     MapFieldToErrorCode(compileErr.Field),
			Line:     line,
		}
	}
	return Diagnostic{
		Contract: contractName,
		Field:    "contract",
		Message:  err.Error(),
		Code:     ErrCodeGeneric,
	}
}
