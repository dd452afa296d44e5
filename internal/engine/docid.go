package engine

import (
	"sync"

	"github.com/google/uuid"
)

// DocumentIDGenerator generates document identifiers for the op journal.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type DocumentIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 document IDs.
//
// UUIDv7 embeds a timestamp in the most significant bits, so listing
// journal documents by ID lists them by creation time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined document IDs for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedGenerator creates a generator that returns ids in order.
//
// Example:
//
//	gen := NewFixedGenerator("doc-1", "doc-2")
//	gen.Generate() // "doc-1"
//	gen.Generate() // "doc-2"
//	gen.Generate() // panic: all ids exhausted
func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

// Generate returns the next predetermined id.
//
// Panics once all ids have been consumed, to catch a test that opens more
// documents than it expected.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.ids) {
		panic("FixedGenerator: all ids exhausted")
	}
	id := g.ids[g.idx]
	g.idx++
	return id
}
