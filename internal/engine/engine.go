package engine

import (
	"github.com/roach88/varq/internal/panelcfg"
	"github.com/roach88/varq/internal/store"
)

// Engine ties the query pipeline together: settings resolution, assay
// policy, SQL compilation, execution, and the audit log.
//
// The engine holds no mutable state. Every Search call derives its whole
// output from the arguments, the store contents, and the panel config,
// so a single Engine is safe to share across goroutines as long as the
// underlying store is.
type Engine struct {
	store  *store.Store
	panels *panelcfg.PanelConfig
	idGen  QueryIDGenerator
	clock  Clock
}

// Option configures an Engine.
type Option func(*Engine)

// WithQueryIDGenerator overrides the query ID source.
// Tests pass FixedGenerator for deterministic audit records.
func WithQueryIDGenerator(g QueryIDGenerator) Option {
	return func(e *Engine) {
		e.idGen = g
	}
}

// WithClock overrides the execution timestamp source.
// Tests pass FixedClock for reproducible audit records.
func WithClock(c Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// New creates an Engine over a store and a loaded panel configuration.
//
// Defaults: UUIDv7 query IDs and the system clock. Options override both
// for deterministic testing.
func New(s *store.Store, panels *panelcfg.PanelConfig, opts ...Option) *Engine {
	e := &Engine{
		store:  s,
		panels: panels,
		idGen:  UUIDv7Generator{},
		clock:  SystemClock{},
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}
