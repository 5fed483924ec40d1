package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentOps() []Operation {
	return []Operation{
		{
			Name: "Charge",
			Params: []Param{
				{Name: "amount", Type: "int64"},
				{Name: "holder", Type: "string"},
			},
			Returns: Return{Shape: ShapeValue, Type: "string"},
		},
		{
			Name:   "Notify",
			Params: []Param{{Name: "message", Type: "string"}},
		},
		{
			Name:    "Settle",
			Returns: Return{Shape: ShapeDeferredValue, Type: "int64"},
		},
		{
			Name:     "Currency",
			Returns:  Return{Shape: ShapeValue, Type: "string"},
			Property: true,
		},
	}
}

func TestNew_ValidContract(t *testing.T) {
	c, err := New("PaymentGateway", paymentOps()...)
	require.NoError(t, err)

	assert.Equal(t, "PaymentGateway", c.Name())
	assert.Len(t, c.Operations(), 4)

	op, ok := c.Operation("Charge")
	require.True(t, ok)
	assert.Equal(t, "Charge", op.Name)
	assert.Len(t, op.Params, 2)
}

func TestNew_EmptyContractName(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name must not be empty")
}

func TestNew_DuplicateOperation(t *testing.T) {
	_, err := New("C",
		Operation{Name: "Ping"},
		Operation{Name: "Ping"},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate operation "Ping"`)
}

func TestNew_PropertyWithParams(t *testing.T) {
	_, err := New("C", Operation{
		Name:     "Currency",
		Params:   []Param{{Name: "x", Type: "int"}},
		Returns:  Return{Shape: ShapeValue, Type: "string"},
		Property: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "property must not declare parameters")
}

func TestNew_PropertyMustReturnValue(t *testing.T) {
	_, err := New("C", Operation{
		Name:     "Done",
		Returns:  Return{Shape: ShapeDeferred},
		Property: true,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "property must return an immediate value")
}

func TestNew_ValueShapeRequiresType(t *testing.T) {
	_, err := New("C", Operation{
		Name:    "Get",
		Returns: Return{Shape: ShapeValue},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires a payload type")
}

func TestNew_PayloadlessShapeRejectsType(t *testing.T) {
	_, err := New("C", Operation{
		Name:    "Fire",
		Returns: Return{Shape: ShapeNone, Type: "string"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not declare a payload type")
}

func TestNew_ParamValidation(t *testing.T) {
	_, err := New("C", Operation{
		Name:   "Op",
		Params: []Param{{Name: "", Type: "int"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no name")

	_, err = New("C", Operation{
		Name:   "Op",
		Params: []Param{{Name: "x", Type: ""}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no type")

	_, err = New("C", Operation{
		Name: "Op",
		Params: []Param{
			{Name: "x", Type: "int"},
			{Name: "x", Type: "string"},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate parameter "x"`)
}

func TestContract_Operation_Unknown(t *testing.T) {
	c, err := New("C", Operation{Name: "Ping"})
	require.NoError(t, err)

	_, ok := c.Operation("Pong")
	assert.False(t, ok)
}

func TestContract_Operations_PreservesDeclarationOrder(t *testing.T) {
	c, err := New("PaymentGateway", paymentOps()...)
	require.NoError(t, err)

	names := make([]string, 0, 4)
	for _, op := range c.Operations() {
		names = append(names, op.Name)
	}
	assert.Equal(t, []string{"Charge", "Notify", "Settle", "Currency"}, names)
}

func TestContract_Signatures_Sorted(t *testing.T) {
	c, err := New("C",
		Operation{Name: "Zulu"},
		Operation{Name: "Alpha"},
	)
	require.NoError(t, err)

	assert.Equal(t, []string{"Alpha()", "Zulu()"}, c.Signatures())
}

func TestReturnShape_String(t *testing.T) {
	assert.Equal(t, "none", ShapeNone.String())
	assert.Equal(t, "value", ShapeValue.String())
	assert.Equal(t, "deferred", ShapeDeferred.String())
	assert.Equal(t, "deferred+value", ShapeDeferredValue.String())
}
