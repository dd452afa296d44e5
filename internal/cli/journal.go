package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/engine"
	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/store"
)

// openJournal opens an existing journal database. Unlike store.Open it
// refuses to create a missing file.
func openJournal(path string) (*store.Store, error) {
	if path == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// documentIDs returns doc alone when set, otherwise every document id.
func documentIDs(ctx context.Context, st *store.Store, doc string) ([]string, error) {
	if doc != "" {
		if _, err := st.ReadDocument(ctx, doc); err != nil {
			if errors.Is(err, store.ErrDocumentNotFound) {
				return nil, NewExitError(ExitCommandError, fmt.Sprintf("document not found: %s", doc))
			}
			return nil, WrapExitError(ExitCommandError, "failed to read document", err)
		}
		return []string{doc}, nil
	}
	docs, err := st.ListDocuments(ctx)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to list documents", err)
	}
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	return ids, nil
}

// replayJournal rebuilds a document from its ops with cat. The returned
// session is never journaled.
func replayJournal(ops []ir.Op, cat *catalog.Catalog, docID string, logger *slog.Logger) (*engine.Session, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return engine.Replay(ops,
		engine.WithCatalog(cat),
		engine.WithDocumentID(docID),
		engine.WithLogger(logger),
	)
}
