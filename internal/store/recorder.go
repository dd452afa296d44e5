package store

import (
	"context"
	"fmt"

	"github.com/roach88/connectlab/internal/ir"
)

// Recorder journals a session's ops into one document. It satisfies
// engine.Recorder.
type Recorder struct {
	store *Store
	docID string
}

// NewRecorder creates the document if needed and returns a recorder for it.
func NewRecorder(ctx context.Context, s *Store, doc Document) (*Recorder, error) {
	if err := s.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("new recorder: %w", err)
	}
	return &Recorder{store: s, docID: doc.ID}, nil
}

// Record appends op to the journal.
func (r *Recorder) Record(op ir.Op) error {
	return r.store.WriteOp(context.Background(), r.docID, op)
}

// DocumentID returns the journaled document.
func (r *Recorder) DocumentID() string {
	return r.docID
}
