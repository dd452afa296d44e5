package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/queryir"
	"github.com/roach88/connectlab/internal/querysql"
)

// ReadDocument returns a document record, or ErrDocumentNotFound.
func (s *Store) ReadDocument(ctx context.Context, id string) (Document, error) {
	var doc Document
	err := s.db.QueryRowContext(ctx, `
		SELECT id, journal_version, engine_version, title
		FROM documents
		WHERE id = ?
	`, id).Scan(&doc.ID, &doc.JournalVersion, &doc.EngineVersion, &doc.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return Document{}, fmt.Errorf("read document %q: %w", id, ErrDocumentNotFound)
	}
	if err != nil {
		return Document{}, fmt.Errorf("read document %q: %w", id, err)
	}
	return doc, nil
}

// ListDocuments returns every document, ordered by id.
// Returns an empty slice (not nil) if the store holds none.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, journal_version, engine_version, title
		FROM documents
		ORDER BY id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.JournalVersion, &doc.EngineVersion, &doc.Title); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

// ReadOps returns a document's journal in seq order.
// Returns an empty slice (not nil) if the document has no ops.
func (s *Store) ReadOps(ctx context.Context, docID string) ([]ir.Op, error) {
	return s.ReadOpsAfter(ctx, docID, 0)
}

// ReadOpsAfter returns the ops of a document with seq greater than after,
// in seq order.
func (s *Store) ReadOpsAfter(ctx context.Context, docID string, after int64) ([]ir.Op, error) {
	return s.QueryOps(ctx, queryir.Select{Document: docID, Filter: queryir.After{Seq: after}})
}

// QueryOps returns the ops matching q, in seq order.
// Returns an empty slice (not nil) if none match.
func (s *Store) QueryOps(ctx context.Context, q queryir.Select) ([]ir.Op, error) {
	query, params, err := querysql.NewSQLCompiler().Compile(q)
	if err != nil {
		return nil, fmt.Errorf("query ops: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("query ops: %w", err)
	}
	defer rows.Close()

	ops := []ir.Op{}
	for rows.Next() {
		var r opRow
		if err := rows.Scan(&r.seq, &r.kind, &r.payload, &r.hash); err != nil {
			return nil, fmt.Errorf("scan op: %w", err)
		}
		op, err := decodeOp(r)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ops: %w", err)
	}
	return ops, nil
}

// Checkpoint is a snapshot hash recorded after op Seq.
type Checkpoint struct {
	Seq          int64
	SnapshotHash string
}

// ReadCheckpoints returns a document's checkpoints in seq order.
func (s *Store) ReadCheckpoints(ctx context.Context, docID string) ([]Checkpoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, snapshot_hash
		FROM checkpoints
		WHERE document_id = ?
		ORDER BY seq ASC
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("query checkpoints: %w", err)
	}
	defer rows.Close()

	cps := []Checkpoint{}
	for rows.Next() {
		var cp Checkpoint
		if err := rows.Scan(&cp.Seq, &cp.SnapshotHash); err != nil {
			return nil, fmt.Errorf("scan checkpoint: %w", err)
		}
		cps = append(cps, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate checkpoints: %w", err)
	}
	return cps, nil
}
