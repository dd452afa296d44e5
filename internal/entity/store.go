package entity

import (
	"fmt"
	"maps"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// Default geometry.
const (
	DefaultSlotRadius          = 8
	DefaultConnectionThickness = 6
)

// Store owns every entity of one document.
//
// Store is not safe for concurrent use. The session serializes access on
// its single writer goroutine.
type Store struct {
	clock         *Clock
	canvas        geom.Box
	slotRadius    float64
	connThickness float64
	measure       MeasureFunc

	kinds map[ir.ID]ir.Kind
	nodes map[ir.ID]*node
	slots map[ir.ID]*Slot
	conns map[ir.ID]*Connection
	notes map[ir.ID]*Annotation
}

// Option configures a Store.
type Option func(*Store)

// WithClock shares an identity clock, e.g. one restored from a journal.
func WithClock(c *Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// WithCanvas clamps node and annotation boxes into bounds. The zero box
// leaves placement unbounded.
func WithCanvas(bounds geom.Box) Option {
	return func(s *Store) {
		s.canvas = bounds
	}
}

// WithSlotRadius sets the hit radius around each slot.
func WithSlotRadius(r float64) Option {
	return func(s *Store) {
		s.slotRadius = r
	}
}

// WithConnectionThickness sets the side of the boxes covering a connection.
func WithConnectionThickness(t float64) Option {
	return func(s *Store) {
		s.connThickness = t
	}
}

// WithMeasure sets the annotation text measurer.
func WithMeasure(fn MeasureFunc) Option {
	return func(s *Store) {
		s.measure = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		clock:         NewClock(),
		slotRadius:    DefaultSlotRadius,
		connThickness: DefaultConnectionThickness,
		measure:       MeasureBasic,
		kinds:         make(map[ir.ID]ir.Kind),
		nodes:         make(map[ir.ID]*node),
		slots:         make(map[ir.ID]*Slot),
		conns:         make(map[ir.ID]*Connection),
		notes:         make(map[ir.ID]*Annotation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// Creation
// =============================================================================

// AddNode places a gate, input or output described by d with its centre at
// pos, and creates its slots in template order. The node's identity is
// allocated before its slots'.
func (s *Store) AddNode(d catalog.Descriptor, pos geom.Point) (ir.ID, error) {
	if !d.Kind.IsNode() {
		return ir.NoID, fmt.Errorf("add node: descriptor %q has kind %s", d.Tag, d.Kind)
	}

	n := &node{
		id:     s.clock.Next(),
		kind:   d.Kind,
		tag:    d.Tag,
		bounds: geom.Centered(pos, d.Width, d.Height).Clamp(s.canvas),
	}
	for _, tmpl := range d.Slots() {
		sl := &Slot{
			ID:     s.clock.Next(),
			Owner:  n.id,
			Name:   tmpl.Name,
			Dir:    tmpl.Dir,
			Offset: tmpl.Offset,
			Pos:    n.bounds.Pos.Add(tmpl.Offset),
		}
		s.slots[sl.ID] = sl
		s.kinds[sl.ID] = ir.KindSlot
		n.slots = append(n.slots, sl.ID)
	}
	s.nodes[n.id] = n
	s.kinds[n.id] = d.Kind
	return n.id, nil
}

// AddAnnotation places text with its top-left corner at pos. Text is stored
// NFC-normalized.
func (s *Store) AddAnnotation(text, style string, pos geom.Point) ir.ID {
	if style == "" {
		style = DefaultAnnotationStyle
	}
	text = norm.NFC.String(text)
	w, h := s.measure(text, style)
	a := &Annotation{
		ID:     s.clock.Next(),
		Text:   text,
		Style:  style,
		Bounds: geom.NewBox(pos, w, h).Clamp(s.canvas),
	}
	a.Pos = a.Bounds.Pos
	s.notes[a.ID] = a
	s.kinds[a.ID] = ir.KindAnnotation
	return a.ID
}

// AddConnection creates a connection without registering it on any slot.
// Bound endpoints snap to their slot's position. The connection becomes
// visible to slot queries only once Bind succeeds.
func (s *Store) AddConnection(start, end Endpoint) (ir.ID, error) {
	for _, e := range []Endpoint{start, end} {
		if e.Bound() {
			if _, ok := s.slots[e.Slot]; !ok {
				return ir.NoID, ir.NewNotFound(e.Slot, "slot")
			}
		}
	}
	c := &Connection{ID: s.clock.Next(), Start: start, End: end}
	s.refresh(c)
	s.conns[c.ID] = c
	s.kinds[c.ID] = ir.KindConnection
	return c.ID, nil
}

// =============================================================================
// Bindings
// =============================================================================

// Bind attaches conn between an out slot and an in slot and recomputes its
// geometry. The in slot must not already hold another connection. Nothing
// changes unless every check passes.
func (s *Store) Bind(conn, out, in ir.ID) error {
	c, ok := s.conns[conn]
	if !ok {
		return ir.NewNotFound(conn, "connection")
	}
	o, ok := s.slots[out]
	if !ok {
		return ir.NewNotFound(out, "slot")
	}
	i, ok := s.slots[in]
	if !ok {
		return ir.NewNotFound(in, "slot")
	}
	if o.Dir != ir.DirOut || i.Dir != ir.DirIn {
		return ir.NewInvalidBinding(fmt.Sprintf("need out->in, got %s->%s", o.Dir, i.Dir), out, in)
	}
	for _, other := range i.Conns {
		if other != conn {
			return ir.NewInvalidBinding(fmt.Sprintf("in slot already bound to connection %d", other), out, in)
		}
	}

	s.unlink(c)
	c.Start = Endpoint{Slot: out}
	c.End = Endpoint{Slot: in}
	o.Conns = append(o.Conns, conn)
	i.Conns = append(i.Conns, conn)
	s.refresh(c)
	return nil
}

// Detach deletes conn and unregisters it from its slots.
func (s *Store) Detach(conn ir.ID) (Connection, error) {
	c, ok := s.conns[conn]
	if !ok {
		return Connection{}, ir.NewNotFound(conn, "connection")
	}
	s.unlink(c)
	delete(s.conns, conn)
	delete(s.kinds, conn)
	return c.clone(), nil
}

// MoveFreeEnd moves the unbound end of a connection being drawn.
func (s *Store) MoveFreeEnd(conn ir.ID, pos geom.Point) error {
	c, ok := s.conns[conn]
	if !ok {
		return ir.NewNotFound(conn, "connection")
	}
	if c.End.Bound() {
		return fmt.Errorf("connection %d: end is bound to slot %d", conn, c.End.Slot)
	}
	c.End.Pos = pos
	s.refresh(c)
	return nil
}

// unlink removes c from the connection lists of the slots it references.
func (s *Store) unlink(c *Connection) {
	for _, e := range []Endpoint{c.Start, c.End} {
		if sl, ok := s.slots[e.Slot]; ok {
			sl.Conns = slices.DeleteFunc(sl.Conns, func(id ir.ID) bool { return id == c.ID })
		}
	}
}

// refresh snaps bound endpoints to their slots and rebuilds the collision
// geometry.
func (s *Store) refresh(c *Connection) {
	if sl, ok := s.slots[c.Start.Slot]; ok {
		c.Start.Pos = sl.Pos
	}
	if sl, ok := s.slots[c.End.Slot]; ok {
		c.End.Pos = sl.Pos
	}
	c.Shapes = geom.SegmentBoxes(c.Start.Pos, c.End.Pos, s.connThickness)
}

// =============================================================================
// Mutation
// =============================================================================

// Move translates a node or annotation by v (useDelta) or re-centres a node
// at v. Slot positions and attached connection geometry are recomputed.
// Annotations are anchored at their top-left corner instead of the centre.
func (s *Store) Move(id ir.ID, v geom.Point, useDelta bool) error {
	if a, ok := s.notes[id]; ok {
		a.Bounds = a.Bounds.Moved(v, useDelta).Clamp(s.canvas)
		a.Pos = a.Bounds.Pos
		return nil
	}
	n, ok := s.nodes[id]
	if !ok {
		return ir.NewNotFound(id, "movable entity")
	}
	if useDelta {
		n.bounds = n.bounds.Moved(v, true)
	} else {
		n.bounds = geom.Centered(v, n.bounds.W, n.bounds.H)
	}
	n.bounds = n.bounds.Clamp(s.canvas)

	moved := make(map[ir.ID]bool, len(n.slots))
	for _, sid := range n.slots {
		sl := s.slots[sid]
		sl.Pos = n.bounds.Pos.Add(sl.Offset)
		moved[sid] = true
	}
	for _, c := range s.conns {
		if moved[c.Start.Slot] || moved[c.End.Slot] {
			s.refresh(c)
		}
	}
	return nil
}

// SetInput sets the toggle state of an input.
func (s *Store) SetInput(id ir.ID, on bool) error {
	n, ok := s.nodes[id]
	if !ok || n.kind != ir.KindInput {
		return ir.NewNotFound(id, "input")
	}
	n.on = on
	return nil
}

// ToggleInput flips an input and returns the new state.
func (s *Store) ToggleInput(id ir.ID) (bool, error) {
	n, ok := s.nodes[id]
	if !ok || n.kind != ir.KindInput {
		return false, ir.NewNotFound(id, "input")
	}
	n.on = !n.on
	return n.on, nil
}

// Remove deletes an entity. Removing a node also deletes its slots and
// every connection referencing them, including one still being drawn.
// Slots cannot be removed on their own.
func (s *Store) Remove(id ir.ID) (Removal, error) {
	kind, ok := s.kinds[id]
	if !ok {
		return Removal{}, ir.NewNotFound(id, "")
	}

	r := Removal{ID: id, Kind: kind}
	switch kind {
	case ir.KindConnection:
		if _, err := s.Detach(id); err != nil {
			return Removal{}, err
		}
	case ir.KindAnnotation:
		delete(s.notes, id)
		delete(s.kinds, id)
	case ir.KindSlot:
		return Removal{}, fmt.Errorf("remove %d: slots are removed with their owner %d", id, s.slots[id].Owner)
	default:
		n := s.nodes[id]
		owned := make(map[ir.ID]bool, len(n.slots))
		for _, sid := range n.slots {
			owned[sid] = true
		}
		for _, cid := range slices.Sorted(maps.Keys(s.conns)) {
			c := s.conns[cid]
			if owned[c.Start.Slot] || owned[c.End.Slot] {
				removed, _ := s.Detach(cid)
				r.Connections = append(r.Connections, removed)
			}
		}
		for _, sid := range n.slots {
			delete(s.slots, sid)
			delete(s.kinds, sid)
		}
		r.Slots = slices.Clone(n.slots)
		delete(s.nodes, id)
		delete(s.kinds, id)
	}
	return r, nil
}

// =============================================================================
// Accessors
// =============================================================================

// Kind returns the kind of a live entity.
func (s *Store) Kind(id ir.ID) (ir.Kind, error) {
	k, ok := s.kinds[id]
	if !ok {
		return 0, ir.NewNotFound(id, "")
	}
	return k, nil
}

// Exists reports whether id names a live entity.
func (s *Store) Exists(id ir.ID) bool {
	_, ok := s.kinds[id]
	return ok
}

// Gate returns a copy of a gate.
func (s *Store) Gate(id ir.ID) (Gate, error) {
	n, ok := s.nodes[id]
	if !ok || n.kind != ir.KindGate {
		return Gate{}, ir.NewNotFound(id, "gate")
	}
	return n.gate(), nil
}

// Input returns a copy of an input.
func (s *Store) Input(id ir.ID) (Input, error) {
	n, ok := s.nodes[id]
	if !ok || n.kind != ir.KindInput {
		return Input{}, ir.NewNotFound(id, "input")
	}
	return n.input(), nil
}

// Output returns a copy of an output.
func (s *Store) Output(id ir.ID) (Output, error) {
	n, ok := s.nodes[id]
	if !ok || n.kind != ir.KindOutput {
		return Output{}, ir.NewNotFound(id, "output")
	}
	return n.output(), nil
}

// Slot returns a copy of a slot.
func (s *Store) Slot(id ir.ID) (Slot, error) {
	sl, ok := s.slots[id]
	if !ok {
		return Slot{}, ir.NewNotFound(id, "slot")
	}
	return sl.clone(), nil
}

// Connection returns a copy of a connection.
func (s *Store) Connection(id ir.ID) (Connection, error) {
	c, ok := s.conns[id]
	if !ok {
		return Connection{}, ir.NewNotFound(id, "connection")
	}
	return c.clone(), nil
}

// Annotation returns a copy of an annotation.
func (s *Store) Annotation(id ir.ID) (Annotation, error) {
	a, ok := s.notes[id]
	if !ok {
		return Annotation{}, ir.NewNotFound(id, "annotation")
	}
	return *a, nil
}

// NodeSlots returns a node's slots split by direction, each in template
// order.
func (s *Store) NodeSlots(id ir.ID) (ins, outs []ir.ID, err error) {
	n, ok := s.nodes[id]
	if !ok {
		return nil, nil, ir.NewNotFound(id, "node")
	}
	for _, sid := range n.slots {
		if s.slots[sid].Dir == ir.DirIn {
			ins = append(ins, sid)
		} else {
			outs = append(outs, sid)
		}
	}
	return ins, outs, nil
}

// IDs returns the live identities of one kind in ascending order.
func (s *Store) IDs(kind ir.Kind) []ir.ID {
	var out []ir.ID
	for id, k := range s.kinds {
		if k == kind {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Count returns the number of live entities of one kind.
func (s *Store) Count(kind ir.Kind) int {
	n := 0
	for _, k := range s.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

// Len returns the number of live entities of every kind.
func (s *Store) Len() int {
	return len(s.kinds)
}

// LastID returns the most recently allocated identity.
func (s *Store) LastID() ir.ID {
	return s.clock.Current()
}

// Canvas returns the clamp bounds; the zero box means unbounded.
func (s *Store) Canvas() geom.Box {
	return s.canvas
}

// SlotRadius returns the hit radius around each slot.
func (s *Store) SlotRadius() float64 {
	return s.slotRadius
}
