package engine

import (
	"fmt"

	"github.com/roach88/connectlab/internal/entity"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// ConnState is the state of the connection-editing protocol: Idle, Drawing
// or Candidate.
type ConnState interface {
	connState()
}

// Idle means no connection is in progress.
type Idle struct{}

// Drawing means connection Conn is being dragged out of slot Origin and its
// free end is over no other slot.
type Drawing struct {
	Origin ir.ID
	Conn   ir.ID
}

// Candidate means the free end of Conn is over slot Target, which the
// connection would bind to if released now.
type Candidate struct {
	Origin ir.ID
	Conn   ir.ID
	Target ir.ID
}

func (Idle) connState()      {}
func (Drawing) connState()   {}
func (Candidate) connState() {}

// State returns the current protocol state.
func (s *Session) State() ConnState {
	return s.state
}

// drawing returns the in-progress connection, if any.
func (s *Session) drawing() (origin, conn ir.ID, ok bool) {
	switch st := s.state.(type) {
	case Drawing:
		return st.Origin, st.Conn, true
	case Candidate:
		return st.Origin, st.Conn, true
	}
	return ir.NoID, ir.NoID, false
}

// =============================================================================
// Pointer events
// =============================================================================

// PointerDown presses the pointer at pos.
//
// Over a slot it begins drawing a connection from that slot. Over a node or
// annotation it selects the topmost one and starts dragging it. Over a
// connection it selects it. Elsewhere it clears the selection. While a
// connection is being drawn or a drag is active, PointerDown does nothing.
func (s *Session) PointerDown(pos geom.Point) {
	s.pointerDown(pos)
	s.record(ir.Op{Kind: ir.OpPointerDown, X: pos.X, Y: pos.Y})
}

func (s *Session) pointerDown(pos geom.Point) {
	s.pointer = pos
	s.lastInput = s.now()
	if _, _, ok := s.drawing(); ok || s.drag != nil {
		return
	}

	if slots := s.store.SlotsAt(pos); len(slots) > 0 {
		s.begin(slots[0], pos)
		return
	}
	if hits := s.store.MovablesAt(pos); len(hits) > 0 {
		top := hits[len(hits)-1]
		s.selected = top
		s.startDrag(top, pos)
		return
	}
	if hits := s.store.ConnectionsAt(pos); len(hits) > 0 {
		s.selected = hits[len(hits)-1]
		return
	}
	s.selected = ir.NoID
}

// begin creates a half-bound connection from origin to a free end at pos.
func (s *Session) begin(origin ir.ID, pos geom.Point) {
	conn, err := s.store.AddConnection(entity.Endpoint{Slot: origin}, entity.Endpoint{Pos: pos})
	if err != nil {
		s.logger.Error("begin connection failed", "slot_id", origin, "error", err)
		return
	}
	s.state = Drawing{Origin: origin, Conn: conn}
	s.selected = ir.NoID
	s.logger.Debug("connection started", "conn_id", conn, "slot_id", origin)
}

// PointerMove moves the pointer to pos. While drawing, the free end follows
// the pointer and snaps to any other slot under it. While dragging, the
// dragged entity follows the pointer.
func (s *Session) PointerMove(pos geom.Point) {
	s.pointerMove(pos)
	s.record(ir.Op{Kind: ir.OpPointerMove, X: pos.X, Y: pos.Y})
}

func (s *Session) pointerMove(pos geom.Point) {
	s.pointer = pos
	s.lastInput = s.now()
	if s.drag != nil {
		s.dragTo(pos)
		return
	}
	origin, conn, ok := s.drawing()
	if !ok {
		return
	}

	end := pos
	target := s.target(pos, origin)
	if target != ir.NoID {
		if sl, err := s.store.Slot(target); err == nil {
			end = sl.Pos
		}
	}
	if err := s.store.MoveFreeEnd(conn, end); err != nil {
		s.logger.Error("track connection failed", "conn_id", conn, "error", err)
		return
	}
	if target != ir.NoID {
		s.state = Candidate{Origin: origin, Conn: conn, Target: target}
	} else {
		s.state = Drawing{Origin: origin, Conn: conn}
	}
}

// target returns the first slot under pos other than origin.
func (s *Session) target(pos geom.Point, origin ir.ID) ir.ID {
	for _, id := range s.store.SlotsAt(pos) {
		if id != origin {
			return id
		}
	}
	return ir.NoID
}

// PointerUp releases the pointer at pos, committing or discarding an
// in-progress connection, or ending a drag.
func (s *Session) PointerUp(pos geom.Point) {
	s.pointerUp(pos)
	s.record(ir.Op{Kind: ir.OpPointerUp, X: pos.X, Y: pos.Y})
}

func (s *Session) pointerUp(pos geom.Point) {
	s.pointer = pos
	s.lastInput = s.now()
	if s.drag != nil {
		s.endDrag(pos)
		return
	}
	origin, conn, ok := s.drawing()
	if !ok {
		return
	}
	s.commit(origin, conn, pos)
	s.state = Idle{}
}

// commit binds conn between origin and the slot under pos, or discards it.
// Either every change is applied or none is.
func (s *Session) commit(origin, conn ir.ID, pos geom.Point) {
	target := s.target(pos, origin)
	if target == ir.NoID {
		s.discard(conn, RejectNoTarget)
		return
	}
	o, err := s.store.Slot(origin)
	if err != nil {
		s.discard(conn, RejectStale)
		return
	}
	t, err := s.store.Slot(target)
	if err != nil {
		s.discard(conn, RejectStale)
		return
	}
	if o.Dir == t.Dir {
		s.logger.Debug("connection rejected",
			"conn_id", conn,
			"error", ir.NewInvalidBinding("both slots are "+o.Dir.String(), origin, target))
		s.discard(conn, RejectSameDirection)
		return
	}

	out, in := origin, target
	if o.Dir == ir.DirIn {
		out, in = target, origin
	}

	inSlot := t
	if in == origin {
		inSlot = o
	}
	if err := s.checkRebind(conn, out, in, inSlot.Conns); err != nil {
		s.logger.Error("connection not committed", "conn_id", conn, "error", err)
		s.discard(conn, RejectStale)
		return
	}
	for _, prev := range inSlot.Conns {
		if prev == conn {
			continue
		}
		if err := s.unbind(prev); err != nil {
			s.logger.Error("detach previous connection failed", "conn_id", prev, "slot_id", in, "error", err)
			s.discard(conn, RejectStale)
			return
		}
		s.logger.Debug("previous connection detached", "conn_id", prev, "slot_id", in)
		s.observer.EntityRemoved(ir.KindConnection, 0)
	}

	if err := s.store.Bind(conn, out, in); err != nil {
		s.logger.Error("bind connection failed", "conn_id", conn, "error", err)
		s.discard(conn, RejectStale)
		return
	}
	if err := s.graph.AddEdge(out, in); err != nil {
		s.logger.Error("add signal edge failed", "conn_id", conn, "error", err)
		s.discard(conn, RejectStale)
		return
	}

	s.logger.Debug("connection committed", "conn_id", conn, "out_slot", out, "in_slot", in)
	s.observer.ConnectionCommitted()
	s.propagated()
}

// checkRebind reports an error unless out can drive in once the
// connections in prev are detached. Nothing is detached before it passes,
// so a failed commit keeps the previous connections.
func (s *Session) checkRebind(conn, out, in ir.ID, prev []ir.ID) error {
	for _, slot := range []ir.ID{out, in} {
		if !s.graph.HasSlot(slot) {
			return ir.NewNotFound(slot, "signal slot")
		}
	}
	driver, driven := s.graph.Driver(in)
	if !driven {
		return nil
	}
	for _, id := range prev {
		if id == conn {
			continue
		}
		c, err := s.store.Connection(id)
		if err != nil {
			return err
		}
		if c.Bound() && c.Start.Slot == driver && c.End.Slot == in {
			return nil
		}
	}
	return ir.NewInvalidBinding(fmt.Sprintf("in slot driven by slot %d without a connection", driver), out, in)
}

// discard deletes a connection that never reached the signal graph.
func (s *Session) discard(conn ir.ID, reason string) {
	if _, err := s.store.Detach(conn); err != nil {
		s.logger.Error("discard connection failed", "conn_id", conn, "error", err)
	}
	s.logger.Debug("connection discarded", "conn_id", conn, "reason", reason)
	s.observer.ConnectionRejected(reason)
}

// AbandonDrawing discards the in-progress connection, if any, and reports
// whether there was one.
func (s *Session) AbandonDrawing() bool {
	if !s.abandon(RejectAbandoned) {
		return false
	}
	s.record(ir.Op{Kind: ir.OpAbandon})
	return true
}

func (s *Session) abandon(reason string) bool {
	_, conn, ok := s.drawing()
	if !ok {
		return false
	}
	s.discard(conn, reason)
	s.state = Idle{}
	return true
}
