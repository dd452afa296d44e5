// Package engine implements the connectlab editing session.
//
// A Session ties together the gate catalog, the entity store and the signal
// graph, and runs the pointer-driven protocol that creates, rebinds and
// discards connections between slots.
//
// ARCHITECTURE:
//
// Single Writer:
// Every mutation of a document happens on one goroutine. A Session itself is
// not safe for concurrent use; callers that receive input from several
// goroutines (an HTTP server, a device poller) wrap it in a Loop, which
// queues events and applies them one at a time. Each public Session method
// runs to completion before the next begins, so observers never see a
// half-applied transition.
//
// Event Processing Flow:
//  1. Input events are submitted to the Loop's FIFO queue
//  2. Loop.Run dequeues them, coalescing consecutive pointer moves
//  3. The event is applied to the Session
//  4. The Session updates the store, then the signal graph, then notifies
//     the recorder and observer
//
// Ownership:
// The entity store owns entities, geometry and bindings. The signal graph
// owns computed values. No field is written by both.
//
// Determinism:
// Identities come from a monotonic counter and every query returns results
// in ascending identity order. Replaying a session's recorded ops against
// an empty session with the same catalog rebuilds the same document, which
// SnapshotHash can confirm.
package engine
