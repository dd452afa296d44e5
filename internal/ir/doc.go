// Package ir provides the shared vocabulary of the connectlab editor.
//
// This package contains identities, entity kinds, slot directions, the typed
// editor error, recorded operations and the canonical JSON used for snapshot
// hashing. All other internal packages import ir; ir imports nothing
// internal, which keeps it the foundational layer with no circular
// dependencies.
//
// Key constraints:
//   - Identities are int64 values allocated from a monotonic counter and
//     never reused. The zero ID means "no entity".
//   - All JSON tags use snake_case.
//   - Operations carry a logical sequence number only, never wall-clock time.
package ir
