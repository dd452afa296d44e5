package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/entity"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/signal"
)

// Session is one open document: its entities, its signal graph and the
// state of the connection-editing protocol.
//
// CRITICAL: Session is not safe for concurrent use. Drive it from a single
// goroutine, or through a Loop.
type Session struct {
	docID    string
	catalog  *catalog.Catalog
	store    *entity.Store
	graph    *signal.Graph
	logger   *slog.Logger
	recorder Recorder
	observer Observer
	now      func() time.Time

	storeOpts []entity.Option
	graphOpts []signal.Option

	drawTimeout time.Duration
	lastInput   time.Time

	state    ConnState
	drag     *dragState
	selected ir.ID
	pointer  geom.Point
	seq      int64
}

// Option configures a Session.
type Option func(*Session)

// WithCatalog sets the node catalog. Default: catalog.Builtin().
func WithCatalog(c *catalog.Catalog) Option {
	return func(s *Session) {
		s.catalog = c
	}
}

// WithLogger sets the structured logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithRecorder sets the op recorder, e.g. a SQLite journal.
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithObserver sets the event observer, e.g. a metrics collector.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observer = o
	}
}

// WithDrawTimeout abandons a connection left drawing for longer than d
// without pointer input. Tick checks the deadline. Zero disables it.
func WithDrawTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.drawTimeout = d
	}
}

// WithNow sets the time source used for the drawing timeout.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithCanvas clamps placed nodes and annotations into bounds.
func WithCanvas(bounds geom.Box) Option {
	return func(s *Session) {
		s.storeOpts = append(s.storeOpts, entity.WithCanvas(bounds))
	}
}

// WithMaxPasses caps propagation passes over cyclic circuits.
func WithMaxPasses(n int) Option {
	return func(s *Session) {
		s.graphOpts = append(s.graphOpts, signal.WithMaxPasses(n))
	}
}

// WithDocumentID names the document in the op journal. Default: a UUIDv7.
func WithDocumentID(id string) Option {
	return func(s *Session) {
		s.docID = id
	}
}

// WithDocumentIDGenerator draws the document name from gen.
func WithDocumentIDGenerator(gen DocumentIDGenerator) Option {
	return func(s *Session) {
		s.docID = gen.Generate()
	}
}

// New creates an empty session.
func New(opts ...Option) *Session {
	s := &Session{
		catalog:  catalog.Builtin(),
		logger:   slog.Default(),
		recorder: nopRecorder{},
		observer: NopObserver{},
		now:      time.Now,
		state:    Idle{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.docID == "" {
		s.docID = UUIDv7Generator{}.Generate()
	}
	s.store = entity.New(s.storeOpts...)
	s.graph = signal.New(append(s.graphOpts, signal.WithLogger(s.logger))...)
	s.lastInput = s.now()
	return s
}

// =============================================================================
// Creation
// =============================================================================

// CreateGate places a gate of type tag centred at pos.
// Returns an UnknownGateType error if tag is not a gate in the catalog.
func (s *Session) CreateGate(tag catalog.Tag, pos geom.Point) (ir.ID, error) {
	return s.createNode(ir.OpCreateGate, ir.KindGate, tag, pos)
}

// CreateInput places an input (switch) of type tag centred at pos. Inputs
// start switched off.
func (s *Session) CreateInput(tag catalog.Tag, pos geom.Point) (ir.ID, error) {
	return s.createNode(ir.OpCreateInput, ir.KindInput, tag, pos)
}

// CreateOutput places an output indicator of type tag centred at pos.
func (s *Session) CreateOutput(tag catalog.Tag, pos geom.Point) (ir.ID, error) {
	return s.createNode(ir.OpCreateOutput, ir.KindOutput, tag, pos)
}

func (s *Session) createNode(op ir.OpKind, kind ir.Kind, tag catalog.Tag, pos geom.Point) (ir.ID, error) {
	d, err := s.catalog.LookupKind(tag, kind)
	if err != nil {
		return ir.NoID, err
	}
	id, err := s.store.AddNode(d, pos)
	if err != nil {
		return ir.NoID, fmt.Errorf("create %s %s: %w", kind, tag, err)
	}
	ins, outs, err := s.store.NodeSlots(id)
	if err == nil {
		err = s.graph.AddNode(id, kind, d.Op(), ins, outs)
	}
	if err != nil {
		_, _ = s.store.Remove(id)
		return ir.NoID, fmt.Errorf("create %s %s: %w", kind, tag, err)
	}

	s.logger.Debug("node created", "id", id, "kind", kind, "tag", tag)
	s.observer.EntityCreated(kind)
	s.propagated()
	s.record(ir.Op{Kind: op, Tag: string(tag), X: pos.X, Y: pos.Y, Target: id})
	return id, nil
}

// CreateAnnotation places free text with its top-left corner at pos. An
// empty style selects the default font.
func (s *Session) CreateAnnotation(text string, pos geom.Point, style string) (ir.ID, error) {
	if text == "" {
		return ir.NoID, fmt.Errorf("create annotation: empty text")
	}
	id := s.store.AddAnnotation(text, style, pos)
	s.logger.Debug("annotation created", "id", id)
	s.observer.EntityCreated(ir.KindAnnotation)
	s.record(ir.Op{Kind: ir.OpAnnotate, Text: text, Style: style, X: pos.X, Y: pos.Y, Target: id})
	return id, nil
}

// =============================================================================
// Removal and toggling
// =============================================================================

// Remove deletes an entity. Removing a node removes its slots and every
// connection attached to them, and re-propagates downstream nodes.
// Returns NotFound for a stale identity. Slots cannot be removed alone.
func (s *Session) Remove(id ir.ID) error {
	if err := s.remove(id); err != nil {
		return err
	}
	s.record(ir.Op{Kind: ir.OpRemove, Target: id})
	return nil
}

func (s *Session) remove(id ir.ID) error {
	kind, err := s.store.Kind(id)
	if err != nil {
		return err
	}
	if kind == ir.KindSlot {
		_, err := s.store.Remove(id)
		return err
	}

	s.releaseInteractions(id, kind)

	cascaded := 0
	switch kind {
	case ir.KindConnection:
		if err := s.unbind(id); err != nil {
			return err
		}
	case ir.KindAnnotation:
		if _, err := s.store.Remove(id); err != nil {
			return err
		}
	default:
		if err := s.graph.RemoveNode(id); err != nil {
			return fmt.Errorf("remove %s %d: %w", kind, id, err)
		}
		r, err := s.store.Remove(id)
		if err != nil {
			return err
		}
		cascaded = r.Count() - 1
		s.propagated()
	}

	if s.selected != ir.NoID && !s.store.Exists(s.selected) {
		s.selected = ir.NoID
	}
	s.logger.Debug("entity removed", "id", id, "kind", kind, "cascaded", cascaded)
	s.observer.EntityRemoved(kind, cascaded)
	return nil
}

// releaseInteractions ends a drag or drawing gesture that involves the
// entity about to be removed.
func (s *Session) releaseInteractions(id ir.ID, kind ir.Kind) {
	if s.drag != nil && s.drag.target == id {
		s.drag = nil
	}
	origin, conn, ok := s.drawing()
	if !ok {
		return
	}
	if id == conn {
		s.state = Idle{}
		return
	}
	if kind.IsNode() {
		if sl, err := s.store.Slot(origin); err == nil && sl.Owner == id {
			s.discard(conn, RejectRemoved)
			s.state = Idle{}
		}
	}
}

// unbind deletes a connection, removing its graph edge first if it has one.
func (s *Session) unbind(conn ir.ID) error {
	c, err := s.store.Connection(conn)
	if err != nil {
		return err
	}
	if c.Bound() && s.graph.HasEdge(c.Start.Slot, c.End.Slot) {
		if err := s.graph.RemoveEdge(c.Start.Slot, c.End.Slot); err != nil {
			return fmt.Errorf("unbind connection %d: %w", conn, err)
		}
		defer s.propagated()
	}
	_, err = s.store.Detach(conn)
	return err
}

// ToggleInput flips an input switch and returns its new state.
func (s *Session) ToggleInput(id ir.ID) (bool, error) {
	v, err := s.toggle(id)
	if err != nil {
		return false, err
	}
	s.record(ir.Op{Kind: ir.OpToggle, Target: id})
	return v, nil
}

func (s *Session) toggle(id ir.ID) (bool, error) {
	v, err := s.store.ToggleInput(id)
	if err != nil {
		return false, err
	}
	if err := s.graph.SetSource(id, v); err != nil {
		// Keep store and graph in agreement.
		_ = s.store.SetInput(id, !v)
		return false, fmt.Errorf("toggle input %d: %w", id, err)
	}
	s.logger.Debug("input toggled", "id", id, "value", v)
	s.propagated()
	return v, nil
}

// =============================================================================
// Queries
// =============================================================================

// QueryValue returns the computed value of a node. For an output this is
// whether it is lit.
func (s *Session) QueryValue(id ir.ID) (bool, error) {
	kind, err := s.store.Kind(id)
	if err != nil {
		return false, err
	}
	if !kind.IsNode() {
		return false, ir.NewNotFound(id, "node")
	}
	return s.graph.Value(id)
}

// HitTest returns every entity whose shape contains pos, in ascending
// identity order.
func (s *Session) HitTest(pos geom.Point) []ir.ID {
	return s.store.HitTest(pos)
}

// Kind returns the kind of a live entity.
func (s *Session) Kind(id ir.ID) (ir.Kind, error) {
	return s.store.Kind(id)
}

// Slot returns a copy of a slot.
func (s *Session) Slot(id ir.ID) (entity.Slot, error) {
	return s.store.Slot(id)
}

// Connection returns a copy of a connection.
func (s *Session) Connection(id ir.ID) (entity.Connection, error) {
	return s.store.Connection(id)
}

// SlotByName returns the slot of node owner with the template name.
func (s *Session) SlotByName(owner ir.ID, name string) (ir.ID, error) {
	ins, outs, err := s.store.NodeSlots(owner)
	if err != nil {
		return ir.NoID, err
	}
	for _, id := range append(ins, outs...) {
		sl, err := s.store.Slot(id)
		if err == nil && sl.Name == name {
			return id, nil
		}
	}
	return ir.NoID, ir.NewNotFound(owner, fmt.Sprintf("slot %q on node", name))
}

// Count returns the number of live entities of one kind.
func (s *Session) Count(kind ir.Kind) int {
	return s.store.Count(kind)
}

// Len returns the number of live entities of every kind.
func (s *Session) Len() int {
	return s.store.Len()
}

// LastPropagation returns the report of the most recent propagation,
// including any unsettled cycle.
func (s *Session) LastPropagation() signal.Report {
	return s.graph.Last()
}

// DocumentID returns the journal name of this document.
func (s *Session) DocumentID() string {
	return s.docID
}

// Catalog returns the session's node catalog.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// Selected returns the selected entity, or NoID.
func (s *Session) Selected() ir.ID {
	return s.selected
}

// Select selects an entity (NoID clears the selection).
func (s *Session) Select(id ir.ID) error {
	if id != ir.NoID && !s.store.Exists(id) {
		return ir.NewNotFound(id, "")
	}
	s.selected = id
	return nil
}

// =============================================================================
// Notification
// =============================================================================

// record stamps op with the next sequence number and hands it to the
// recorder. Recorder failures are logged, never returned: the edit has
// already been applied.
func (s *Session) record(op ir.Op) {
	s.seq++
	op.Seq = s.seq
	if err := s.recorder.Record(op); err != nil {
		s.logger.Error("record op failed",
			"doc", s.docID,
			"seq", op.Seq,
			"kind", op.Kind,
			"error", err)
	}
}

func (s *Session) propagated() {
	s.observer.Propagated(s.graph.Last())
}

// Seq returns the sequence number of the last recorded op.
func (s *Session) Seq() int64 {
	return s.seq
}
