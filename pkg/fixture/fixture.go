// Package fixture loads declarative stub definitions from YAML files
// and applies them to substitutes.
//
// A fixture names one contract and lists the stubs and properties for
// one substitute of that contract. Test suites keep fixtures next to
// the tests and load them instead of repeating fluent setup:
//
//	contract: PaymentGateway
//	stubs:
//	  - operation: Charge
//	    args:
//	      - any: true
//	      - value: Bob
//	    returns: charged
//	  - operation: NextID
//	    sequence: [1, 2, 3]
//	properties:
//	  Currency: USD
//
// Decoding is strict: unknown fields are rejected so typos fail the
// load instead of silently configuring nothing.
package fixture

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is one parsed stub definition file.
type Fixture struct {
	// Contract names the contract the stubs configure. Apply refuses
	// substitutes built for a different contract.
	Contract string `yaml:"contract"`

	// Stubs lists the behavior registrations, applied in order.
	Stubs []StubSpec `yaml:"stubs,omitempty"`

	// Properties maps property names to their values.
	Properties map[string]any `yaml:"properties,omitempty"`
}

// StubSpec describes one behavior registration. Exactly one terminal
// must be set: returns, sequence, complete or fail.
type StubSpec struct {
	// Operation is the operation name within the contract.
	Operation string `yaml:"operation"`

	// Args is the expected-argument list, one entry per parameter.
	// Omitted args make the stub the operation's default behavior.
	Args []ArgSpec `yaml:"args,omitempty"`

	// Returns is a fixed result value.
	Returns any `yaml:"returns,omitempty"`

	// Sequence is an ordered list of one-shot results.
	Sequence []any `yaml:"sequence,omitempty"`

	// Complete marks a payload-less completion for void and deferred
	// operations.
	Complete bool `yaml:"complete,omitempty"`

	// Fail is an error message returned to every matching caller.
	Fail string `yaml:"fail,omitempty"`
}

// ArgSpec describes one expected argument position: either the
// wildcard (any: true) or a literal value.
type ArgSpec struct {
	// Any marks the position as matching every argument.
	Any bool `yaml:"any,omitempty"`

	// Value is the literal expected value. nil expects a nil argument.
	Value any `yaml:"value,omitempty"`
}

// Load reads and parses a fixture file.
func Load(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse parses fixture YAML. Unknown fields are rejected and the
// result is validated before it is returned.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateFixture(&f); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

// validateFixture checks that required fields are present and each
// stub carries exactly one terminal.
func validateFixture(f *Fixture) error {
	if f.Contract == "" {
		return fmt.Errorf("contract is required")
	}

	if len(f.Stubs) == 0 && len(f.Properties) == 0 {
		return fmt.Errorf("at least one stub or property is required")
	}

	for i, st := range f.Stubs {
		if st.Operation == "" {
			return fmt.Errorf("stubs[%d]: operation is required", i)
		}

		terminals := 0
		if st.Returns != nil {
			terminals++
		}
		if len(st.Sequence) > 0 {
			terminals++
		}
		if st.Complete {
			terminals++
		}
		if st.Fail != "" {
			terminals++
		}
		if terminals != 1 {
			return fmt.Errorf("stubs[%d] (%s): exactly one of returns, sequence, complete, fail is required", i, st.Operation)
		}

		for j, arg := range st.Args {
			if arg.Any && arg.Value != nil {
				return fmt.Errorf("stubs[%d] (%s): args[%d]: any and value are mutually exclusive", i, st.Operation, j)
			}
		}
	}

	for name := range f.Properties {
		if name == "" {
			return fmt.Errorf("properties: name must not be empty")
		}
	}

	return nil
}
