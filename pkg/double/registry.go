package double

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/roach88/understudy/pkg/contract"
)

// Registry owns the association between substitutes and their engines
// for one test scope.
//
// Registries are explicit values: create one per test (or test suite),
// make substitutes from it, and let it go out of scope with the test.
// Nothing is shared between registries, so parallel tests that each
// hold their own registry cannot observe each other's doubles.
//
// Thread-safety: all methods are safe for concurrent use.
type Registry struct {
	mu   sync.RWMutex
	subs map[string]*Substitute

	tokens   TokenGenerator
	logger   *slog.Logger
	recorder Recorder
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithLogger sets the logger used by the registry and every engine it
// creates. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTokenGenerator sets the substitute token source. Defaults to
// UUIDv7Generator. Tests use NewFixedTokenGenerator for deterministic
// identities.
func WithTokenGenerator(gen TokenGenerator) RegistryOption {
	return func(r *Registry) {
		if gen != nil {
			r.tokens = gen
		}
	}
}

// WithRecorder attaches a call recorder to every engine the registry
// creates. Completed calls on any substitute flow to the recorder.
func WithRecorder(rec Recorder) RegistryOption {
	return func(r *Registry) {
		r.recorder = rec
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		subs:   make(map[string]*Substitute),
		tokens: UUIDv7Generator{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CreateSubstitute mints a substitute for the contract and binds it to
// a fresh engine. The binding is 1:1 for the substitute's lifetime.
func (r *Registry) CreateSubstitute(c *contract.Contract) (*Substitute, error) {
	if c == nil {
		return nil, ErrNilContract
	}

	token := r.tokens.Generate()
	sub := &Substitute{
		id:       token,
		contract: c,
		engine:   newEngine(c, token, r.logger, r.recorder),
	}

	r.mu.Lock()
	r.subs[token] = sub
	r.mu.Unlock()

	r.logger.Debug("substitute created",
		"contract", c.Name(),
		"substitute", token)
	return sub, nil
}

// EngineFor returns the engine bound to sub. A nil handle fails with
// ErrNilSubstitute; a handle this registry did not create fails with
// ErrUnknownSubstitute.
func (r *Registry) EngineFor(sub *Substitute) (*Engine, error) {
	if sub == nil {
		return nil, ErrNilSubstitute
	}

	r.mu.RLock()
	owned, ok := r.subs[sub.id]
	r.mu.RUnlock()

	if !ok || owned != sub {
		return nil, ErrUnknownSubstitute
	}
	return sub.engine, nil
}

// Substitutes returns all substitutes created by this registry, sorted
// by token for deterministic iteration.
func (r *Registry) Substitutes() []*Substitute {
	r.mu.RLock()
	out := make([]*Substitute, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// Reset drops every substitute association. Handles created before the
// reset become unknown to the registry; their engines keep working for
// direct Invoke calls but EngineFor no longer resolves them.
func (r *Registry) Reset() {
	r.mu.Lock()
	n := len(r.subs)
	r.subs = make(map[string]*Substitute)
	r.mu.Unlock()

	r.logger.Debug("registry reset", "released", n)
}
