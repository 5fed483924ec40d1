package double

import (
	"sync"

	"github.com/google/uuid"
)

// TokenGenerator mints substitute identity tokens. Implemented by
// UUIDv7Generator (production) and FixedTokenGenerator (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 substitute tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so tokens
// sort by creation time. Journal rows keyed by substitute therefore
// group naturally when listed.
//
// Thread-safety: stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails, which requires the system entropy
// source to be broken.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedTokenGenerator returns predetermined tokens in order. It makes
// substitute identities deterministic for golden tests.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedTokenGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedTokenGenerator creates a generator that returns tokens in
// the given order and panics once they are exhausted. The panic is
// deliberate: a test that creates more substitutes than it provided
// tokens for is misconfigured.
func NewFixedTokenGenerator(tokens ...string) *FixedTokenGenerator {
	return &FixedTokenGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
func (g *FixedTokenGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedTokenGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
