package engine

import (
	"sync"

	"github.com/roach88/connectlab/internal/geom"
)

// EventType distinguishes between event kinds.
type EventType int

const (
	// EventPointerDown presses the pointer at Pos.
	EventPointerDown EventType = iota + 1
	// EventPointerMove moves the pointer to Pos.
	EventPointerMove
	// EventPointerUp releases the pointer at Pos.
	EventPointerUp
	// EventKey presses Key.
	EventKey
	// EventCall runs a closure on the loop goroutine (see Loop.Call).
	EventCall
)

// String returns the event type name used in logs.
func (t EventType) String() string {
	switch t {
	case EventPointerDown:
		return "pointer_down"
	case EventPointerMove:
		return "pointer_move"
	case EventPointerUp:
		return "pointer_up"
	case EventKey:
		return "key"
	case EventCall:
		return "call"
	}
	return "unknown"
}

// Event is one input event for a Loop.
type Event struct {
	Type EventType
	Pos  geom.Point
	Key  string

	call func(*Session) error
	done chan error
}

// eventQueue is a thread-safe FIFO queue for events.
//
// The queue is unbounded so input devices never block on a slow renderer.
// Bursts of pointer moves are cheap because the Loop coalesces them.
//
// Thread-safety is provided for external enqueuing (HTTP handlers, device
// pollers) while the Loop's Run goroutine dequeues.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop (prevents goroutine hangs on context cancellation).
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{} // Signals event availability (buffered, size 1)
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Thread-safe: may be called from any goroutine.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue attempts to dequeue without blocking.
// Returns (Event{}, false) if queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	return q.TryDequeueIf(func(Event) bool { return true })
}

// TryDequeueIf dequeues the front event only if match accepts it.
func (q *eventQueue) TryDequeueIf(match func(Event) bool) (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 || !match(q.events[0]) {
		return Event{}, false
	}

	e := q.events[0]

	// CRITICAL: Clear the slot so the backing array does not keep the
	// event's closure and channel alive.
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// Use with select for context-aware waiting:
//
//	select {
//	case <-ctx.Done():
//	    return ctx.Err()
//	case <-q.Wait():
//	    // Try TryDequeue
//	}
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Close signals that no more events will be enqueued.
// Wakes any blocked waiters by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
