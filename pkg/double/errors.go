package double

import (
	"errors"
	"fmt"
)

// Registry boundary sentinels.
var (
	// ErrNilContract is returned when creating a substitute from a nil
	// contract.
	ErrNilContract = errors.New("double: nil contract")

	// ErrNilSubstitute is returned when a nil substitute handle is
	// passed where a live one is required.
	ErrNilSubstitute = errors.New("double: nil substitute")

	// ErrUnknownSubstitute is returned when a substitute does not
	// belong to the registry it was presented to.
	ErrUnknownSubstitute = errors.New("double: substitute not registered")
)

// ConfigCode categorizes configuration errors.
type ConfigCode string

const (
	// CodeOperationNotFound indicates the named operation is not part
	// of the contract.
	CodeOperationNotFound ConfigCode = "OPERATION_NOT_FOUND"

	// CodeArgCountMismatch indicates an expectation whose arity differs
	// from the operation's declared parameter count.
	CodeArgCountMismatch ConfigCode = "ARG_COUNT_MISMATCH"

	// CodeMissingCallback indicates a registration with a nil behavior.
	CodeMissingCallback ConfigCode = "MISSING_CALLBACK"

	// CodeEmptySequence indicates a sequence registration with no
	// results.
	CodeEmptySequence ConfigCode = "EMPTY_SEQUENCE"

	// CodeNotAProperty indicates a property registration against an
	// operation that is not property-shaped.
	CodeNotAProperty ConfigCode = "NOT_A_PROPERTY"

	// CodeReturnTypeMismatch indicates a configured result value that
	// cannot satisfy the operation's declared payload type.
	CodeReturnTypeMismatch ConfigCode = "RETURN_TYPE_MISMATCH"
)

// ConfigError reports an invalid behavior registration. Configuration
// errors surface synchronously at the setup call site, never later
// during dispatch.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigCode

	// Contract names the contract involved.
	Contract string

	// Operation names the operation involved, when one applies.
	Operation string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Contract != "" && e.Operation != "" {
		return fmt.Sprintf("%s: %s.%s: %s", e.Code, e.Contract, e.Operation, e.Message)
	}
	if e.Contract != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Contract, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConfigError creates a ConfigError with the given category and
// context.
func NewConfigError(code ConfigCode, contract, operation, message string) *ConfigError {
	return &ConfigError{
		Code:      code,
		Contract:  contract,
		Operation: operation,
		Message:   message,
	}
}

// IsConfigError reports whether err is a ConfigError of any category.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// IsConfigCode reports whether err is a ConfigError with the given
// category. Uses errors.As to handle wrapped errors.
func IsConfigCode(err error, code ConfigCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// DispatchCode categorizes dispatch failures.
type DispatchCode string

const (
	// CodeUnimplemented indicates a call to an operation with no
	// registered behavior and no fallback.
	CodeUnimplemented DispatchCode = "UNIMPLEMENTED_OPERATION"

	// CodeSequenceExhausted indicates a call that resolved to a
	// sequence whose results were all consumed.
	CodeSequenceExhausted DispatchCode = "SEQUENCE_EXHAUSTED"

	// CodeTypeMismatch indicates a behavior result that cannot be
	// coerced to the operation's declared payload type.
	CodeTypeMismatch DispatchCode = "TYPE_MISMATCH"
)

// DispatchError reports a failure detected while dispatching a call.
type DispatchError struct {
	// Code identifies the error category.
	Code DispatchCode

	// Operation names the operation being dispatched.
	Operation string

	// Signature is the operation's deterministic key.
	Signature string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Signature != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Signature, e.Message)
	}
	if e.Operation != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Operation, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewUnimplementedError creates a DispatchError for a call with no
// registered behavior.
func NewUnimplementedError(operation, signature string) *DispatchError {
	return &DispatchError{
		Code:      CodeUnimplemented,
		Operation: operation,
		Signature: signature,
		Message:   "no behavior registered and no fallback installed",
	}
}

// NewSequenceExhaustedError creates a DispatchError for a consumed
// sequence.
func NewSequenceExhaustedError(operation, signature string) *DispatchError {
	return &DispatchError{
		Code:      CodeSequenceExhausted,
		Operation: operation,
		Signature: signature,
		Message:   "sequence has no results left",
	}
}

// NewTypeMismatchError creates a DispatchError for an uncoercible
// payload.
func NewTypeMismatchError(operation, signature, wantType string, got any) *DispatchError {
	return &DispatchError{
		Code:      CodeTypeMismatch,
		Operation: operation,
		Signature: signature,
		Message:   fmt.Sprintf("cannot use %T as %s payload", got, wantType),
	}
}

// IsUnimplemented reports whether err is an unimplemented-operation
// dispatch error. Uses errors.As to handle wrapped errors.
func IsUnimplemented(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code == CodeUnimplemented
	}
	return false
}

// IsSequenceExhausted reports whether err is a sequence-exhausted
// dispatch error. Uses errors.As to handle wrapped errors.
func IsSequenceExhausted(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code == CodeSequenceExhausted
	}
	return false
}

// IsTypeMismatch reports whether err is a type-mismatch dispatch
// error. Uses errors.As to handle wrapped errors.
func IsTypeMismatch(err error) bool {
	var de *DispatchError
	if errors.As(err, &de) {
		return de.Code == CodeTypeMismatch
	}
	return false
}
