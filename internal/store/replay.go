package store

import (
	"context"
	"fmt"

	"github.com/roach88/connectlab/internal/ir"
)

// DocumentState summarizes a journal for recovery and inspection.
type DocumentState struct {
	Document Document
	OpCount  int
	LastSeq  int64
	Kinds    map[ir.OpKind]int

	// Gaps lists missing seq numbers between 1 and LastSeq. A journal with
	// gaps cannot be replayed.
	Gaps []int64

	// LastCheckpoint is the most recent recorded snapshot hash, if any.
	LastCheckpoint *Checkpoint
}

// Replayable reports whether the journal is contiguous from seq 1.
func (d DocumentState) Replayable() bool {
	return len(d.Gaps) == 0
}

// GetDocumentState reads a document and analyses its journal.
func (s *Store) GetDocumentState(ctx context.Context, docID string) (DocumentState, error) {
	doc, err := s.ReadDocument(ctx, docID)
	if err != nil {
		return DocumentState{}, err
	}
	state := DocumentState{Document: doc, Kinds: map[ir.OpKind]int{}}

	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, kind FROM ops
		WHERE document_id = ?
		ORDER BY seq ASC
	`, docID)
	if err != nil {
		return state, fmt.Errorf("get document state: %w", err)
	}
	defer rows.Close()

	next := int64(1)
	for rows.Next() {
		var seq int64
		var kind string
		if err := rows.Scan(&seq, &kind); err != nil {
			return state, fmt.Errorf("get document state: scan: %w", err)
		}
		for ; next < seq; next++ {
			state.Gaps = append(state.Gaps, next)
		}
		next = seq + 1
		state.OpCount++
		state.LastSeq = seq
		state.Kinds[ir.OpKind(kind)]++
	}
	if err := rows.Err(); err != nil {
		return state, fmt.Errorf("get document state: %w", err)
	}

	cps, err := s.ReadCheckpoints(ctx, docID)
	if err != nil {
		return state, fmt.Errorf("get document state: %w", err)
	}
	if len(cps) > 0 {
		last := cps[len(cps)-1]
		state.LastCheckpoint = &last
	}
	return state, nil
}
