// Package store provides SQLite-backed durable storage for connectlab op
// journals.
//
// The store implements an append-only log with:
//   - Documents: one row per editing session, with the journal and engine
//     versions that produced it
//   - Ops: every successfully applied editing op, keyed by (document, seq)
//   - Checkpoints: snapshot hashes observed at a given seq, used to verify
//     that replay rebuilds the same document
//
// # Critical Patterns
//
// Logical Time:
//   - All ordering uses seq INTEGER (the session's op counter), NEVER timestamps
//   - Enables deterministic replay regardless of wall time
//
// Deterministic Query Results:
//   - All op queries use ORDER BY seq ASC
//   - Document listings use ORDER BY id COLLATE BINARY; UUIDv7 ids sort by
//     creation time
//
// Idempotent Writes:
//   - Re-writing an identical op is a no-op
//   - Writing a different op at an existing seq fails with ErrSeqConflict
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout: 5 seconds unless set with WithBusyTimeout
//   - foreign_keys=ON: Enforce referential integrity
//   - user_version: the last applied migration
//
// Filtered reads go through QueryOps, which runs a queryir.Select compiled
// by querysql.
//
// Op payloads are canonical JSON produced by ir.Op.MarshalPayload, and op
// hashes come from ir.OpHash.
package store
