package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ErrLoopStopped is returned by Call when the loop stops before running the
// closure.
var ErrLoopStopped = errors.New("engine: loop stopped")

// Loop is the single-writer event loop around a Session.
//
// CRITICAL: All Session mutations happen in the Run goroutine. Input
// sources on other goroutines use Submit for device events and Call for
// everything else.
//
// Thread-safety model:
//   - Submit(), Call(), Stop(), QueueLen(): safe from any goroutine
//   - Run(): must be called from exactly one goroutine
//
// Consecutive pointer moves are coalesced to the latest position, so a
// burst of moves costs one track step. Moves are never coalesced across a
// press, release or key, so gesture boundaries are kept exactly.
type Loop struct {
	session *Session
	queue   *eventQueue
	tick    time.Duration
	logger  *slog.Logger
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithTickInterval runs Session.Tick every d while the loop runs, which
// enforces the drawing timeout. Zero disables ticking.
func WithTickInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		l.tick = d
	}
}

// WithLoopLogger sets the loop's logger. Default: the session's logger.
func WithLoopLogger(log *slog.Logger) LoopOption {
	return func(l *Loop) {
		l.logger = log
	}
}

// NewLoop wraps s. The caller must not use s directly once Run starts.
func NewLoop(s *Session, opts ...LoopOption) *Loop {
	l := &Loop{
		session: s,
		queue:   newEventQueue(),
		logger:  s.logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Submit queues a device event. Returns false if the loop has stopped.
func (l *Loop) Submit(ev Event) bool {
	if ev.Type == EventCall {
		return false
	}
	return l.queue.Enqueue(ev)
}

// Call runs fn on the loop goroutine and returns its error. It blocks until
// fn has run, ctx is done, or the loop stops.
func (l *Loop) Call(ctx context.Context, fn func(*Session) error) error {
	done := make(chan error, 1)
	if !l.queue.Enqueue(Event{Type: EventCall, call: fn, done: done}) {
		return ErrLoopStopped
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is cancelled or Stop is called.
//
// CRITICAL: Must be called from exactly ONE goroutine.
//
// ERROR HANDLING: a failing event is logged and processing continues.
// Errors from Call closures go back to their caller.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("loop starting", "doc", l.session.DocumentID())

	var ticks <-chan time.Time
	if l.tick > 0 {
		ticker := time.NewTicker(l.tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		if ev, ok := l.queue.TryDequeue(); ok {
			l.process(l.coalesce(ev))
			continue
		}

		select {
		case <-ctx.Done():
			l.logger.Info("loop stopping: context cancelled")
			l.queue.Close()
			l.drain()
			return ctx.Err()

		case <-ticks:
			l.session.Tick(l.session.now())

		case _, open := <-l.queue.Wait():
			// The signal channel closes when the queue is closed.
			if !open && l.queue.Len() == 0 {
				l.logger.Info("loop stopping: queue closed")
				return nil
			}
		}
	}
}

// coalesce replaces a pointer move with the last of any moves queued
// directly behind it.
func (l *Loop) coalesce(ev Event) Event {
	if ev.Type != EventPointerMove {
		return ev
	}
	isMove := func(e Event) bool { return e.Type == EventPointerMove }
	for {
		next, ok := l.queue.TryDequeueIf(isMove)
		if !ok {
			return ev
		}
		ev = next
	}
}

// process applies one event to the session.
// CRITICAL: Called only from the Run goroutine.
func (l *Loop) process(ev Event) {
	s := l.session
	switch ev.Type {
	case EventPointerDown:
		s.PointerDown(ev.Pos)
	case EventPointerMove:
		s.PointerMove(ev.Pos)
	case EventPointerUp:
		s.PointerUp(ev.Pos)
	case EventKey:
		if _, err := s.KeyPress(ev.Key); err != nil {
			l.logger.Warn("key press failed", "key", ev.Key, "error", err)
		}
	case EventCall:
		ev.done <- ev.call(s)
	default:
		l.logger.Error("unknown event type", "type", int(ev.Type))
	}
}

// drain fails every queued Call after the loop has stopped.
func (l *Loop) drain() {
	for {
		ev, ok := l.queue.TryDequeue()
		if !ok {
			return
		}
		if ev.Type == EventCall {
			ev.done <- ErrLoopStopped
		}
	}
}

// Stop closes the queue. Run returns once the events already queued have
// been processed.
func (l *Loop) Stop() {
	l.queue.Close()
}

// QueueLen returns the number of queued events.
func (l *Loop) QueueLen() int {
	return l.queue.Len()
}
