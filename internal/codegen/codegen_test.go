package codegen

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/understudy/pkg/contract"
)

func paymentGatewayContract(t *testing.T) *contract.Contract {
	t.Helper()
	c, err := contract.New("PaymentGateway",
		contract.Operation{
			Name: "Charge",
			Params: []contract.Param{
				{Name: "amount", Type: "int64"},
				{Name: "holder", Type: "string"},
			},
			Returns: contract.Return{Shape: contract.ShapeValue, Type: "string"},
		},
		contract.Operation{
			Name:   "Notify",
			Params: []contract.Param{{Name: "message", Type: "string"}},
		},
		contract.Operation{
			Name:    "NextID",
			Returns: contract.Return{Shape: contract.ShapeValue, Type: "int64"},
		},
		contract.Operation{
			Name:    "Settle",
			Returns: contract.Return{Shape: contract.ShapeDeferredValue, Type: "int64"},
		},
		contract.Operation{
			Name:    "Flush",
			Returns: contract.Return{Shape: contract.ShapeDeferred},
		},
		contract.Operation{
			Name:    "Read",
			Params:  []contract.Param{{Name: "buf", Type: "[]byte", ByRef: true}},
			Returns: contract.Return{Shape: contract.ShapeValue, Type: "int64"},
		},
		contract.Operation{
			Name:    "Refund",
			Params:  []contract.Param{{Name: "receipt", Type: "Receipt"}},
			Returns: contract.Return{Shape: contract.ShapeValue, Type: "Receipt"},
		},
		contract.Operation{
			Name:     "Pick",
			TypeArgs: []string{"string", "int64"},
			Params:   []contract.Param{{Name: "key", Type: "string"}},
			Returns:  contract.Return{Shape: contract.ShapeValue, Type: "int64"},
		},
		contract.Operation{
			Name:     "Currency",
			Returns:  contract.Return{Shape: contract.ShapeValue, Type: "string"},
			Property: true,
		},
	)
	require.NoError(t, err)
	return c
}

func TestGenerateGolden(t *testing.T) {
	got, err := Generate(paymentGatewayContract(t), Options{})
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "payment_gateway", got)
}

func TestGenerateMinimalGolden(t *testing.T) {
	c, err := contract.New("Notifier",
		contract.Operation{Name: "Ping"},
	)
	require.NoError(t, err)

	got, err := Generate(c, Options{})
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "notifier", got)
}

func TestGenerateNilContract(t *testing.T) {
	_, err := Generate(nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contract must not be nil")
}

func TestGenerateCustomPackage(t *testing.T) {
	c, err := contract.New("Notifier",
		contract.Operation{Name: "Ping"},
	)
	require.NoError(t, err)

	got, err := Generate(c, Options{Package: "mocks"})
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(got), "package mocks\n"))
}

func TestGenerateHeaderMarksFileAsGenerated(t *testing.T) {
	c, err := contract.New("Notifier",
		contract.Operation{Name: "Ping"},
	)
	require.NoError(t, err)

	got, err := Generate(c, Options{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(got), "// Code generated by understudy. DO NOT EDIT.\n"))
}

func TestFileName(t *testing.T) {
	tests := []struct {
		contract string
		file     string
	}{
		{"PaymentGateway", "payment_gateway_double.go"},
		{"Cache", "cache_double.go"},
		{"HTTPServer", "http_server_double.go"},
		{"NextID", "next_id_double.go"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.file, FileName(tt.contract), "contract %q", tt.contract)
	}
}

func TestCamelToSnake(t *testing.T) {
	tests := []struct {
		in  string
		out string
	}{
		{"PaymentGateway", "payment_gateway"},
		{"HTTPServer", "http_server"},
		{"ID", "id"},
		{"A", "a"},
		{"alreadyLower", "already_lower"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.out, camelToSnake(tt.in), "input %q", tt.in)
	}
}

func TestGoType(t *testing.T) {
	assert.Equal(t, "int64", goType("int64"))
	assert.Equal(t, "string", goType("string"))
	assert.Equal(t, "error", goType("error"))
	assert.Equal(t, "any", goType("Receipt"))
	assert.Equal(t, "any", goType("[]byte"))
	assert.Equal(t, "any", goType("map[string]int64"))
}

func TestParamName(t *testing.T) {
	assert.Equal(t, "amount", paramName("amount"))
	assert.Equal(t, "type_", paramName("type"))
	assert.Equal(t, "d_", paramName("d"))
	assert.Equal(t, "result_", paramName("result"))
	assert.Equal(t, "err_", paramName("err"))
	assert.Equal(t, "string_", paramName("string"))
}
