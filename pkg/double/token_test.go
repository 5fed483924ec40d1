package double

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_Generate(t *testing.T) {
	gen := UUIDv7Generator{}

	first := gen.Generate()
	second := gen.Generate()

	assert.NotEqual(t, first, second)

	parsed, err := uuid.Parse(first)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestFixedTokenGenerator_Generate(t *testing.T) {
	gen := NewFixedTokenGenerator("sub-1", "sub-2")

	assert.Equal(t, "sub-1", gen.Generate())
	assert.Equal(t, "sub-2", gen.Generate())
	assert.Panics(t, func() { gen.Generate() })
}
