// Package contract defines structural descriptors for the operations a
// substitute can answer, plus the deterministic key codec built on
// them.
//
// Contracts are plain data: nothing here reflects over Go interfaces
// or method sets. The same descriptor set drives generated doubles,
// hand-built fakes, and contracts compiled from CUE definitions.
//
// Key derivation:
//   - Signature: "Name[T1,T2](type1,type2)" per operation, cached at
//     contract construction.
//   - Fingerprint: one token per argument position, either the
//     canonical rendering of the actual value or the "any" sentinel
//     when the expected argument at that position is a matcher.
//   - Composite key: signature + "|" + fingerprint.
package contract

import (
	"fmt"
	"sort"
)

// ReturnShape classifies how an operation delivers its result.
type ReturnShape int

const (
	// ShapeNone is an operation with no result.
	ShapeNone ReturnShape = iota

	// ShapeValue is an immediate result of the declared payload type.
	ShapeValue

	// ShapeDeferred is a deferred completion carrying no payload.
	ShapeDeferred

	// ShapeDeferredValue is a deferred completion carrying a payload of
	// the declared type.
	ShapeDeferredValue
)

// String returns the shape name for diagnostics.
func (s ReturnShape) String() string {
	switch s {
	case ShapeNone:
		return "none"
	case ShapeValue:
		return "value"
	case ShapeDeferred:
		return "deferred"
	case ShapeDeferredValue:
		return "deferred+value"
	default:
		return fmt.Sprintf("ReturnShape(%d)", int(s))
	}
}

// Return describes the result slot of an operation.
type Return struct {
	// Shape selects how the result is delivered.
	Shape ReturnShape

	// Type is the payload type name for ShapeValue and
	// ShapeDeferredValue. Empty for the payload-less shapes.
	Type string
}

// Param describes one parameter position of an operation.
type Param struct {
	// Name is the parameter name, used in generated code and fixtures.
	Name string

	// Type is the parameter type name. Types are names, not Go types:
	// matching and keying never inspect them beyond rendering.
	Type string

	// ByRef marks pointer or out-style parameters. Informational:
	// by-ref arguments participate in matching like any other value.
	ByRef bool
}

// Operation describes one operation of a contract.
type Operation struct {
	// Name is the operation name, unique within the contract.
	Name string

	// TypeArgs holds the generic instantiation, if any. Part of the
	// signature, so Pick[string] and Pick[int64] key separately.
	TypeArgs []string

	// Params are the parameter descriptors in declaration order.
	Params []Param

	// Returns describes the result slot.
	Returns Return

	// Property marks property-shaped accessors: no parameters and an
	// immediate value result. Only property-shaped operations accept
	// property registrations.
	Property bool

	signature string
}

// Signature returns the deterministic operation key,
// "Name[T1,T2](type1,type2)". Cached when the operation was validated
// through New; computed on the fly otherwise.
func (op *Operation) Signature() string {
	if op.signature != "" {
		return op.signature
	}
	return computeSignature(op)
}

// Contract is a named, validated set of operation descriptors.
//
// Thread-safety: a Contract is immutable after New returns and safe
// for concurrent use.
type Contract struct {
	name   string
	ops    []*Operation
	byName map[string]*Operation
}

// New validates the operation descriptors and builds a Contract.
//
// Validation rules:
//   - contract and operation names must be non-empty
//   - operation names must be unique (no overloading)
//   - parameter names must be non-empty and unique per operation,
//     parameter types non-empty
//   - value-bearing return shapes carry a payload type, payload-less
//     shapes carry none
//   - property-shaped operations take no parameters and return an
//     immediate value
func New(name string, ops ...Operation) (*Contract, error) {
	if name == "" {
		return nil, fmt.Errorf("contract: name must not be empty")
	}

	c := &Contract{
		name:   name,
		ops:    make([]*Operation, 0, len(ops)),
		byName: make(map[string]*Operation, len(ops)),
	}

	for i := range ops {
		op := ops[i]
		if err := validateOperation(&op); err != nil {
			return nil, fmt.Errorf("contract %q: %w", name, err)
		}
		if _, exists := c.byName[op.Name]; exists {
			return nil, fmt.Errorf("contract %q: duplicate operation %q", name, op.Name)
		}
		op.signature = computeSignature(&op)
		c.ops = append(c.ops, &op)
		c.byName[op.Name] = &op
	}

	return c, nil
}

// Name returns the contract name.
func (c *Contract) Name() string { return c.name }

// Operations returns the operation descriptors in declaration order.
func (c *Contract) Operations() []*Operation {
	out := make([]*Operation, len(c.ops))
	copy(out, c.ops)
	return out
}

// Operation looks up an operation by name.
func (c *Contract) Operation(name string) (*Operation, bool) {
	op, ok := c.byName[name]
	return op, ok
}

// Signatures returns all operation signatures in sorted order. Useful
// for diagnostics and deterministic reporting.
func (c *Contract) Signatures() []string {
	sigs := make([]string, 0, len(c.ops))
	for _, op := range c.ops {
		sigs = append(sigs, op.Signature())
	}
	sort.Strings(sigs)
	return sigs
}

func validateOperation(op *Operation) error {
	if op.Name == "" {
		return fmt.Errorf("operation name must not be empty")
	}
	for _, ta := range op.TypeArgs {
		if ta == "" {
			return fmt.Errorf("operation %q: type argument must not be empty", op.Name)
		}
	}

	seen := make(map[string]bool, len(op.Params))
	for i, p := range op.Params {
		if p.Name == "" {
			return fmt.Errorf("operation %q: parameter %d has no name", op.Name, i)
		}
		if p.Type == "" {
			return fmt.Errorf("operation %q: parameter %q has no type", op.Name, p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("operation %q: duplicate parameter %q", op.Name, p.Name)
		}
		seen[p.Name] = true
	}

	switch op.Returns.Shape {
	case ShapeNone, ShapeDeferred:
		if op.Returns.Type != "" {
			return fmt.Errorf("operation %q: %s return must not declare a payload type", op.Name, op.Returns.Shape)
		}
	case ShapeValue, ShapeDeferredValue:
		if op.Returns.Type == "" {
			return fmt.Errorf("operation %q: %s return requires a payload type", op.Name, op.Returns.Shape)
		}
	default:
		return fmt.Errorf("operation %q: unknown return shape %d", op.Name, int(op.Returns.Shape))
	}

	if op.Property {
		if len(op.Params) > 0 {
			return fmt.Errorf("operation %q: property must not declare parameters", op.Name)
		}
		if op.Returns.Shape != ShapeValue {
			return fmt.Errorf("operation %q: property must return an immediate value", op.Name)
		}
	}

	return nil
}
