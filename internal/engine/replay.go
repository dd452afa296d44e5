package engine

// # Replay and Determinism
//
// A session journals every applied op through its Recorder. Replay is not a
// special mode: Apply feeds each op back through the same public method
// that produced it, so the journal and the live session share one code
// path.
//
// Three properties make the rebuilt document identical:
//
//  1. Identities come from a counter that starts at zero in every session
//     and advances once per created entity, including connections that
//     were later discarded. Creation ops carry the identity the original
//     session allocated, and Apply fails with ErrReplayDiverged as soon as
//     a replayed creation allocates a different one.
//
//  2. Pointer ops are journaled raw, so drags, clicks and connection
//     gestures re-run hit-testing against the same geometry. Key presses
//     are journaled as the creations and removals they caused.
//
//  3. The drawing timeout is journaled as an abandon op at the point it
//     fired, so replay does not depend on wall-clock time.
//
// SnapshotHash on the live and replayed sessions confirms the result.

import (
	"errors"
	"fmt"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

// ErrReplayDiverged is returned when a replayed op produces a different
// result from the one journaled.
var ErrReplayDiverged = errors.New("replay diverged")

// Replay builds a new session and applies ops to it in order.
func Replay(ops []ir.Op, opts ...Option) (*Session, error) {
	s := New(opts...)
	for _, op := range ops {
		if err := s.Apply(op); err != nil {
			return s, err
		}
	}
	return s, nil
}

// Apply re-applies one journaled op.
func (s *Session) Apply(op ir.Op) error {
	pos := geom.Pt(op.X, op.Y)
	switch op.Kind {
	case ir.OpCreateGate:
		return expectCreated(op, func() (ir.ID, error) { return s.CreateGate(catalog.Tag(op.Tag), pos) })
	case ir.OpCreateInput:
		return expectCreated(op, func() (ir.ID, error) { return s.CreateInput(catalog.Tag(op.Tag), pos) })
	case ir.OpCreateOutput:
		return expectCreated(op, func() (ir.ID, error) { return s.CreateOutput(catalog.Tag(op.Tag), pos) })
	case ir.OpAnnotate:
		return expectCreated(op, func() (ir.ID, error) { return s.CreateAnnotation(op.Text, pos, op.Style) })
	case ir.OpRemove:
		return applyErr(op, s.Remove(op.Target))
	case ir.OpToggle:
		_, err := s.ToggleInput(op.Target)
		return applyErr(op, err)
	case ir.OpPointerDown:
		s.PointerDown(pos)
	case ir.OpPointerMove:
		s.PointerMove(pos)
	case ir.OpPointerUp:
		s.PointerUp(pos)
	case ir.OpAbandon:
		if !s.AbandonDrawing() {
			return fmt.Errorf("op %d: %w: no connection in progress", op.Seq, ErrReplayDiverged)
		}
	default:
		return fmt.Errorf("op %d: unknown kind %q", op.Seq, op.Kind)
	}
	return nil
}

func expectCreated(op ir.Op, create func() (ir.ID, error)) error {
	id, err := create()
	if err != nil {
		return applyErr(op, err)
	}
	if op.Target != ir.NoID && id != op.Target {
		return fmt.Errorf("op %d %s: %w: created %d, journal has %d", op.Seq, op.Kind, ErrReplayDiverged, id, op.Target)
	}
	return nil
}

func applyErr(op ir.Op, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("op %d %s: %w", op.Seq, op.Kind, err)
}
