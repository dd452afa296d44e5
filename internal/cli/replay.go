package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database   string
	Document   string // optional - specific document only
	Checkpoint bool   // record the verified hash as a checkpoint
}

// ReplayDocumentResult holds the replay result for a single document.
type ReplayDocumentResult struct {
	Document      string  `json:"document"`
	Ops           int     `json:"ops"`
	LastSeq       int64   `json:"last_seq"`
	Gaps          []int64 `json:"gaps,omitempty"`
	SnapshotHash  string  `json:"snapshot_hash,omitempty"`
	Checkpoint    string  `json:"checkpoint,omitempty"` // "match", "mismatch" or "stale"
	Deterministic bool    `json:"deterministic"`
	Error         string  `json:"error,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Documents        []ReplayDocumentResult `json:"documents"`
	TotalDocuments   int                    `json:"total_documents"`
	AllDeterministic bool                   `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay op journals and verify determinism",
		Long: `Replay journaled documents and verify they rebuild deterministically.

Each document's ops are replayed twice into fresh sessions and the two
snapshot hashes compared. A journal with missing ops, an op that replays
differently from how it was recorded, or a hash that disagrees with the
checkpoint recorded at the last op all fail verification. With
--checkpoint the verified hash is recorded for later runs.

Exit codes:
  0 - All documents are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  connectlab replay --db ./circuit.db
  connectlab replay --db ./circuit.db --doc 6f1c...
  connectlab replay --db ./circuit.db --checkpoint --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Document, "doc", "", "replay specific document only")
	cmd.Flags().BoolVar(&opts.Checkpoint, "checkpoint", false, "record verified snapshot hashes as checkpoints")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	cat, err := LoadCatalog(opts.Defs)
	if err != nil {
		return reportLoadError(formatter, err)
	}

	docs, err := documentIDs(ctx, st, opts.Document)
	if err != nil {
		return err
	}

	result := ReplayResult{
		Documents:        make([]ReplayDocumentResult, 0, len(docs)),
		TotalDocuments:   len(docs),
		AllDeterministic: true,
	}
	if len(docs) == 0 {
		if formatter.JSON() {
			return formatter.Success(result)
		}
		fmt.Fprintln(formatter.Writer, "No documents found in database.")
		return nil
	}

	for _, doc := range docs {
		formatter.VerboseLog("Replaying document %s", doc)
		dr, err := replayAndVerify(ctx, st, cat, doc, opts.Checkpoint)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay document %s", doc), err)
		}
		result.Documents = append(result.Documents, dr)
		if !dr.Deterministic {
			result.AllDeterministic = false
		}
	}

	return outputReplayResult(formatter, result)
}

// replayAndVerify replays a single document twice and verifies determinism.
// Only store failures are returned as errors; divergence is reported in
// the result.
func replayAndVerify(ctx context.Context, st *store.Store, cat *catalog.Catalog, doc string, checkpoint bool) (ReplayDocumentResult, error) {
	state, err := st.GetDocumentState(ctx, doc)
	if err != nil {
		return ReplayDocumentResult{}, err
	}
	dr := ReplayDocumentResult{
		Document: doc,
		Ops:      state.OpCount,
		LastSeq:  state.LastSeq,
		Gaps:     state.Gaps,
	}
	if !state.Replayable() {
		dr.Error = fmt.Sprintf("journal has %d missing op(s)", len(state.Gaps))
		return dr, nil
	}

	ops, err := st.ReadOps(ctx, doc)
	if err != nil {
		return dr, err
	}

	var hashes [2]string
	for i := range hashes {
		s, err := replayJournal(ops, cat, doc, nil)
		if err != nil {
			dr.Error = err.Error()
			return dr, nil
		}
		if hashes[i], err = s.SnapshotHash(); err != nil {
			return dr, err
		}
	}
	dr.SnapshotHash = hashes[0]
	if hashes[0] != hashes[1] {
		dr.Error = "replays produced different snapshots"
		return dr, nil
	}

	if cp := state.LastCheckpoint; cp != nil {
		switch {
		case cp.Seq != state.LastSeq:
			dr.Checkpoint = "stale"
		case cp.SnapshotHash == dr.SnapshotHash:
			dr.Checkpoint = "match"
		default:
			dr.Checkpoint = "mismatch"
			dr.Error = fmt.Sprintf("checkpoint at seq %d has hash %s", cp.Seq, cp.SnapshotHash)
			return dr, nil
		}
	}

	if checkpoint && state.LastSeq > 0 {
		if err := st.WriteCheckpoint(ctx, doc, state.LastSeq, dr.SnapshotHash); err != nil {
			return dr, err
		}
	}
	dr.Deterministic = true
	return dr, nil
}

// outputReplayResult writes the replay result in the configured format.
func outputReplayResult(f *OutputFormatter, result ReplayResult) error {
	var failure error
	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		failure = NewExitError(ExitFailure, "determinism verification failed")
	}

	if f.JSON() {
		code, msg := "", ""
		if failure != nil {
			code, msg = "E_DETERMINISM", failure.Error()
		}
		if err := f.Result(result, code, msg); err != nil {
			return err
		}
		return failure
	}

	w := f.Writer
	fmt.Fprintf(w, "Replay Summary: %d document(s)\n", result.TotalDocuments)
	fmt.Fprintln(w)

	for _, doc := range result.Documents {
		status := "✓"
		if !doc.Deterministic {
			status = "✗"
		}
		fmt.Fprintf(w, "%s Document: %s\n", status, doc.Document)
		fmt.Fprintf(w, "  Ops: %d (last seq %d)\n", doc.Ops, doc.LastSeq)
		if f.Verbose && doc.SnapshotHash != "" {
			fmt.Fprintf(w, "  Snapshot: %s\n", doc.SnapshotHash)
		}
		if doc.Checkpoint != "" {
			fmt.Fprintf(w, "  Checkpoint: %s\n", doc.Checkpoint)
		}
		if doc.Error != "" {
			fmt.Fprintf(w, "  Error: %s\n", doc.Error)
		}
		fmt.Fprintln(w)
	}

	if failure == nil {
		fmt.Fprintln(w, "✓ All documents verified deterministic")
		return nil
	}
	fmt.Fprintln(w, "✗ Determinism verification failed")
	return failure
}
