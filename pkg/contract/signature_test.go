package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/understudy/pkg/match"
)

func TestOperation_Signature_Formats(t *testing.T) {
	tests := []struct {
		name string
		op   Operation
		want string
	}{
		{
			name: "no params",
			op:   Operation{Name: "Ping"},
			want: "Ping()",
		},
		{
			name: "params",
			op: Operation{
				Name: "Charge",
				Params: []Param{
					{Name: "amount", Type: "int64"},
					{Name: "holder", Type: "string"},
				},
			},
			want: "Charge(int64,string)",
		},
		{
			name: "type args",
			op: Operation{
				Name:     "Pick",
				TypeArgs: []string{"string", "int64"},
				Params:   []Param{{Name: "n", Type: "int"}},
			},
			want: "Pick[string,int64](int)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.op.Signature())
		})
	}
}

func TestOperation_Signature_CachedByNew(t *testing.T) {
	c, err := New("C", Operation{
		Name:   "Charge",
		Params: []Param{{Name: "amount", Type: "int64"}},
	})
	require.NoError(t, err)

	op, ok := c.Operation("Charge")
	require.True(t, ok)
	assert.Equal(t, "Charge(int64)", op.signature)
	assert.Equal(t, "Charge(int64)", op.Signature())
}

func TestFingerprint_LiteralArgs(t *testing.T) {
	fp := Fingerprint([]any{int64(5), "Bob"}, nil)
	assert.Equal(t, `5,"Bob"`, fp)
}

func TestFingerprint_MatcherPositionsEmitSentinel(t *testing.T) {
	expected := []any{match.Any(), "Bob"}

	fp := Fingerprint([]any{int64(5), "Bob"}, expected)
	assert.Equal(t, `any,"Bob"`, fp)

	// Sentinel depends on the expected position, not the actual value.
	fp = Fingerprint([]any{int64(99), "Bob"}, expected)
	assert.Equal(t, `any,"Bob"`, fp)
}

func TestFingerprint_NarrowMatcherStillEmitsSentinel(t *testing.T) {
	expected := []any{match.Where(func(n int64) bool { return n > 100 })}

	fp := Fingerprint([]any{int64(5)}, expected)
	assert.Equal(t, "any", fp)
}

func TestFingerprint_NoArgs(t *testing.T) {
	assert.Equal(t, "", Fingerprint(nil, nil))
	assert.Equal(t, "", Fingerprint([]any{}, []any{}))
}

func TestFingerprint_OfExpectationMatchesItself(t *testing.T) {
	// Registration keys composite entries by fingerprinting the
	// expectation against itself: literal positions render, matcher
	// positions collapse to the sentinel.
	expected := []any{match.Any(), "Bob"}

	registered := Fingerprint(expected, expected)
	live := Fingerprint([]any{int64(7), "Bob"}, expected)
	assert.Equal(t, registered, live)
}

func TestCompositeKey_Format(t *testing.T) {
	key := CompositeKey("Charge(int64,string)", `any,"Bob"`)
	assert.Equal(t, `Charge(int64,string)|any,"Bob"`, key)
}
