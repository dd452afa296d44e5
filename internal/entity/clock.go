package entity

import (
	"sync/atomic"

	"github.com/roach88/connectlab/internal/ir"
)

// Clock allocates entity identities from a single monotonic counter.
//
// Every kind draws from the same counter, so identities are unique across
// the whole document and comparing them orders entities by creation. An
// identity is never handed out twice, even after its entity is removed.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// although the session's single-writer design means only one goroutine
// normally calls Next.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock whose first identity is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that continues after start.
func NewClockAt(start ir.ID) *Clock {
	c := &Clock{}
	c.seq.Store(int64(start))
	return c
}

// Next returns a fresh identity.
func (c *Clock) Next() ir.ID {
	return ir.ID(c.seq.Add(1))
}

// Current returns the last identity handed out, or NoID if none.
func (c *Clock) Current() ir.ID {
	return ir.ID(c.seq.Load())
}
