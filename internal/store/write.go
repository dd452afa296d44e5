package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/connectlab/internal/ir"
)

// ErrSeqConflict is returned when a different op is already stored at the
// same (document, seq).
var ErrSeqConflict = errors.New("op sequence conflict")

// ErrDocumentNotFound is returned for an unknown document id.
var ErrDocumentNotFound = errors.New("document not found")

// Document is one journaled editing session.
type Document struct {
	ID             string
	JournalVersion string
	EngineVersion  string
	Title          string
}

// CreateDocument inserts a document record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - reopening a document
// keeps its original versions.
//
// Empty versions default to the current ir.JournalVersion and
// ir.EngineVersion.
func (s *Store) CreateDocument(ctx context.Context, doc Document) error {
	if doc.ID == "" {
		return fmt.Errorf("create document: empty id")
	}
	if doc.JournalVersion == "" {
		doc.JournalVersion = ir.JournalVersion
	}
	if doc.EngineVersion == "" {
		doc.EngineVersion = ir.EngineVersion
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (id, journal_version, engine_version, title)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, doc.ID, doc.JournalVersion, doc.EngineVersion, doc.Title)
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// WriteOp appends op to a document's journal.
//
// Writing the same op twice is a no-op, so a crashed writer can safely
// re-send its tail. A different op at an existing seq returns
// ErrSeqConflict. The document must exist (foreign key constraint).
func (s *Store) WriteOp(ctx context.Context, docID string, op ir.Op) error {
	row, err := encodeOp(op)
	if err != nil {
		return fmt.Errorf("write op: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO ops (document_id, seq, kind, payload, op_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(document_id, seq) DO NOTHING
	`, docID, row.seq, row.kind, row.payload, row.hash)
	if err != nil {
		return fmt.Errorf("write op %d: %w", op.Seq, err)
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	var existing string
	err = s.db.QueryRowContext(ctx, `
		SELECT op_hash FROM ops WHERE document_id = ? AND seq = ?
	`, docID, row.seq).Scan(&existing)
	if err != nil {
		return fmt.Errorf("write op %d: %w", op.Seq, err)
	}
	if existing != row.hash {
		return fmt.Errorf("write op %d for %s: %w", op.Seq, docID, ErrSeqConflict)
	}
	return nil
}

// WriteOps appends several ops in one transaction. Either all are written
// or none are.
func (s *Store) WriteOps(ctx context.Context, docID string, ops []ir.Op) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write ops: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ops (document_id, seq, kind, payload, op_hash)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write ops: prepare: %w", err)
	}
	defer stmt.Close()

	for _, op := range ops {
		row, err := encodeOp(op)
		if err != nil {
			return fmt.Errorf("write ops: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, docID, row.seq, row.kind, row.payload, row.hash); err != nil {
			return fmt.Errorf("write ops: op %d: %w", op.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write ops: commit: %w", err)
	}
	return nil
}

// WriteCheckpoint records the snapshot hash a document had after op seq.
// Idempotent for the same hash; a different hash at the same seq returns
// ErrSeqConflict.
func (s *Store) WriteCheckpoint(ctx context.Context, docID string, seq int64, snapshotHash string) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO checkpoints (document_id, seq, snapshot_hash)
		VALUES (?, ?, ?)
		ON CONFLICT(document_id, seq) DO NOTHING
	`, docID, seq, snapshotHash)
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil || n > 0 {
		return err
	}

	var existing string
	err = s.db.QueryRowContext(ctx, `
		SELECT snapshot_hash FROM checkpoints WHERE document_id = ? AND seq = ?
	`, docID, seq).Scan(&existing)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && existing != snapshotHash) {
		return fmt.Errorf("write checkpoint %d for %s: %w", seq, docID, ErrSeqConflict)
	}
	if err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}
