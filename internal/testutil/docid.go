package testutil

// DefaultDocumentID is used when a scenario names no document.
const DefaultDocumentID = "test-doc-default"

// FixedDocumentID generates the same document id every time.
//
// The same scenario with the same FixedDocumentID produces byte-identical
// journals and snapshots.
//
// Thread-safety: FixedDocumentID is stateless and safe for concurrent use.
type FixedDocumentID struct {
	id string
}

// NewFixedDocumentID creates a fixed generator. If id is empty, Generate
// returns DefaultDocumentID.
func NewFixedDocumentID(id string) *FixedDocumentID {
	if id == "" {
		id = DefaultDocumentID
	}
	return &FixedDocumentID{id: id}
}

// Generate returns the fixed id.
//
// Implements engine.DocumentIDGenerator interface.
func (g *FixedDocumentID) Generate() string {
	return g.id
}
