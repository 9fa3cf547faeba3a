package engine

import (
	"sync"

	"github.com/google/uuid"
)

// QueryIDGenerator generates unique query IDs for audit log correlation.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type QueryIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 query IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, making IDs
// sortable by creation time. This is helpful for reading the audit log
// in execution order.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it with a "qry-" prefix.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return "qry-" + uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined query IDs for testing.
//
// This enables deterministic test execution and golden output comparison.
// Tests provide a known sequence of IDs and verify exact audit records.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns IDs in order.
//
// Example:
//
//	gen := NewFixedGenerator("qry-1", "qry-2")
//	gen.Generate() // "qry-1"
//	gen.Generate() // "qry-2"
//	gen.Generate() // panic: all IDs exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{
		ids: ids,
		idx: 0,
	}
}

// Generate returns the next predetermined ID.
// Thread-safe: uses mutex to protect index access.
//
// Panics if all IDs have been consumed. This is a fail-fast approach to
// catch test misconfiguration (test ran more queries than expected).
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all IDs exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
