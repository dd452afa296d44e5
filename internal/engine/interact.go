package engine

import (
	"strings"
	"time"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// DragDeadZone is how far the pointer may wander between press and release
// for the gesture to still count as a click.
const DragDeadZone = 4.0

// Key names understood by KeyPress besides the catalog shortcuts.
const (
	KeyDelete    = "Delete"
	KeyBackspace = "Backspace"
	KeyEscape    = "Escape"
)

type dragState struct {
	target ir.ID
	start  geom.Point
	last   geom.Point
	moved  bool
}

func (s *Session) startDrag(id ir.ID, pos geom.Point) {
	s.drag = &dragState{target: id, start: pos, last: pos}
}

func (s *Session) dragTo(pos geom.Point) {
	d := s.drag
	if !d.moved && pos.Distance(d.start) <= DragDeadZone {
		return
	}
	d.moved = true
	if err := s.store.Move(d.target, pos.Sub(d.last), true); err != nil {
		s.logger.Error("drag failed", "id", d.target, "error", err)
		s.drag = nil
		return
	}
	d.last = pos
}

// endDrag finishes a drag. A release inside the dead zone over an input is
// a click and toggles it.
func (s *Session) endDrag(pos geom.Point) {
	d := s.drag
	if d.moved {
		s.dragTo(pos)
		s.drag = nil
		s.logger.Debug("drag finished", "id", d.target, "x", pos.X, "y", pos.Y)
		return
	}
	s.drag = nil
	if kind, err := s.store.Kind(d.target); err == nil && kind == ir.KindInput {
		if _, err := s.toggle(d.target); err != nil {
			s.logger.Error("click toggle failed", "id", d.target, "error", err)
		}
	}
}

// Dragging reports whether a drag is active and which entity it moves.
func (s *Session) Dragging() (ir.ID, bool) {
	if s.drag == nil {
		return ir.NoID, false
	}
	return s.drag.target, true
}

// Pointer returns the last pointer position seen.
func (s *Session) Pointer() geom.Point {
	return s.pointer
}

// KeyPress handles one key press.
//
// Catalog shortcuts (a, d, r, n, o, v, x, s, l) create the matching node at
// the last pointer position and return its identity. Delete and Backspace
// remove the selection and return the removed identity. Escape abandons an
// in-progress connection. Other keys are ignored.
func (s *Session) KeyPress(key string) (ir.ID, error) {
	switch key {
	case KeyDelete, KeyBackspace:
		id := s.selected
		if id == ir.NoID {
			return ir.NoID, nil
		}
		if err := s.Remove(id); err != nil {
			return ir.NoID, err
		}
		return id, nil
	case KeyEscape:
		s.AbandonDrawing()
		return ir.NoID, nil
	}

	tag, ok := catalog.Shortcut(strings.TrimSpace(key))
	if !ok {
		return ir.NoID, nil
	}
	d, err := s.catalog.Lookup(tag)
	if err != nil {
		return ir.NoID, err
	}
	switch d.Kind {
	case ir.KindInput:
		return s.CreateInput(tag, s.pointer)
	case ir.KindOutput:
		return s.CreateOutput(tag, s.pointer)
	default:
		return s.CreateGate(tag, s.pointer)
	}
}

// Tick checks the drawing timeout at now. It abandons a connection that has
// seen no pointer input for longer than the configured timeout and reports
// whether it did.
func (s *Session) Tick(now time.Time) bool {
	if s.drawTimeout <= 0 {
		return false
	}
	if _, _, ok := s.drawing(); !ok {
		return false
	}
	if now.Sub(s.lastInput) < s.drawTimeout {
		return false
	}
	s.logger.Info("connection drawing timed out", "idle", now.Sub(s.lastInput))
	s.abandon(RejectTimeout)
	s.record(ir.Op{Kind: ir.OpAbandon})
	return true
}
