// Package entity is the arena of every placed instance in a document:
// gates, inputs, outputs, their slots, the connections between slots and
// free-floating annotations.
//
// Entities refer to one another by identity only. A slot names its owner and
// the connections bound to it; a connection names its endpoint slots. Every
// accessor returns a copy, so callers can never patch geometry or bindings
// behind the store's back.
package entity

import (
	"slices"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// Gate is a placed logic gate.
type Gate struct {
	ID     ir.ID
	Tag    catalog.Tag
	Pos    geom.Point // centre of Bounds
	Bounds geom.Box
	Slots  []ir.ID // ordered as the descriptor's slot template
}

// Input is a placed input switch.
type Input struct {
	ID     ir.ID
	Tag    catalog.Tag
	Pos    geom.Point
	Bounds geom.Box
	Slot   ir.ID
	On     bool
}

// Output is a placed output indicator. Its lit state is computed by the
// signal graph, not stored here.
type Output struct {
	ID     ir.ID
	Tag    catalog.Tag
	Pos    geom.Point
	Bounds geom.Box
	Slot   ir.ID
}

// Slot is a typed connection point on a node.
type Slot struct {
	ID     ir.ID
	Owner  ir.ID
	Name   string
	Dir    ir.Direction
	Offset geom.Point // relative to the owner's top-left corner
	Pos    geom.Point // surface position, derived from the owner
	Conns  []ir.ID    // committed connections; at most one for in slots
}

// Endpoint is one end of a connection: a bound slot, or a free point while
// the connection is being drawn.
type Endpoint struct {
	Slot ir.ID
	Pos  geom.Point
}

// Bound reports whether the endpoint is attached to a slot.
func (e Endpoint) Bound() bool {
	return e.Slot != ir.NoID
}

// Connection is a wire between an out slot (Start) and an in slot (End).
// While drawing, Start is the origin slot whatever its direction and End is
// free.
type Connection struct {
	ID     ir.ID
	Start  Endpoint
	End    Endpoint
	Shapes geom.Shapes
}

// Bound reports whether both endpoints are attached.
func (c Connection) Bound() bool {
	return c.Start.Bound() && c.End.Bound()
}

// References reports whether either endpoint is bound to slot.
func (c Connection) References(slot ir.ID) bool {
	return slot != ir.NoID && (c.Start.Slot == slot || c.End.Slot == slot)
}

// Annotation is free text on the surface with no signal semantics.
type Annotation struct {
	ID     ir.ID
	Pos    geom.Point // top-left corner
	Text   string
	Style  string
	Bounds geom.Box
}

// Removal reports everything a Remove call deleted.
type Removal struct {
	ID          ir.ID
	Kind        ir.Kind
	Slots       []ir.ID
	Connections []Connection
}

// Count returns the number of entities deleted, including the target.
func (r Removal) Count() int {
	return 1 + len(r.Slots) + len(r.Connections)
}

// node is the shared record behind gates, inputs and outputs.
type node struct {
	id     ir.ID
	kind   ir.Kind
	tag    catalog.Tag
	bounds geom.Box
	slots  []ir.ID
	on     bool
}

func (n *node) gate() Gate {
	return Gate{ID: n.id, Tag: n.tag, Pos: n.bounds.Center(), Bounds: n.bounds, Slots: slices.Clone(n.slots)}
}

func (n *node) input() Input {
	return Input{ID: n.id, Tag: n.tag, Pos: n.bounds.Center(), Bounds: n.bounds, Slot: n.slots[0], On: n.on}
}

func (n *node) output() Output {
	return Output{ID: n.id, Tag: n.tag, Pos: n.bounds.Center(), Bounds: n.bounds, Slot: n.slots[0]}
}

func (s *Slot) clone() Slot {
	out := *s
	out.Conns = slices.Clone(s.Conns)
	return out
}

func (c *Connection) clone() Connection {
	out := *c
	out.Shapes = slices.Clone(c.Shapes)
	return out
}
