package engine

import (
	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/signal"
)

// Recorder receives every successfully applied editing operation, in order.
// Implemented by store.Recorder (SQLite journal).
//
// A failing recorder does not undo the edit: the error is logged and the
// session continues.
type Recorder interface {
	Record(op ir.Op) error
}

// Observer is notified of session events. Implemented by metrics.Collector.
// Callbacks run on the session's goroutine and must not call back into it.
type Observer interface {
	EntityCreated(kind ir.Kind)
	EntityRemoved(kind ir.Kind, cascaded int)
	ConnectionCommitted()
	ConnectionRejected(reason string)
	Propagated(r signal.Report)
}

// NopObserver ignores every event. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) EntityCreated(ir.Kind)      {}
func (NopObserver) EntityRemoved(ir.Kind, int) {}
func (NopObserver) ConnectionCommitted()       {}
func (NopObserver) ConnectionRejected(string)  {}
func (NopObserver) Propagated(signal.Report)   {}

type nopRecorder struct{}

func (nopRecorder) Record(ir.Op) error { return nil }

// Rejection reasons passed to Observer.ConnectionRejected.
const (
	RejectNoTarget      = "no_target"
	RejectSameDirection = "same_direction"
	RejectStale         = "stale"
	RejectTimeout       = "timeout"
	RejectAbandoned     = "abandoned"
	RejectRemoved       = "removed"
)
