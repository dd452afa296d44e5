package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/queryir"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Document string
	Kind     string // optional - filter to one op kind
	Tag      string // optional - filter to one node type tag
	Target   string // optional - filter to ops acting on one entity
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Document string     `json:"document"`
	Title    string     `json:"title,omitempty"`
	Timeline []ir.Op    `json:"timeline"`
	Stats    TraceStats `json:"stats"`
	Final    TraceFinal `json:"final"`
}

// TraceStats holds summary statistics for the journal.
type TraceStats struct {
	TotalOps int            `json:"total_ops"`
	LastSeq  int64          `json:"last_seq"`
	ByKind   map[string]int `json:"by_kind"`
	Gaps     []int64        `json:"gaps,omitempty"`
}

// TraceFinal describes the document the journal rebuilds.
type TraceFinal struct {
	Entities     map[string]int `json:"entities,omitempty"`
	SnapshotHash string         `json:"snapshot_hash,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// traceKinds are the entity kinds counted in the final document.
var traceKinds = []ir.Kind{ir.KindGate, ir.KindInput, ir.KindOutput, ir.KindConnection, ir.KindAnnotation}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the op journal of a document",
		Long: `Show the journaled editing ops of one document.

The output includes:
- Timeline: the ops in sequence order, optionally filtered by kind, tag
  or target entity
- Stats: op counts per kind and any missing sequence numbers
- Final: entity counts and snapshot hash of the replayed document

Examples:
  connectlab trace --db ./circuit.db --doc 6f1c...
  connectlab trace --db ./circuit.db --doc 6f1c... --kind toggle
  connectlab trace --db ./circuit.db --doc 6f1c... --target 4
  connectlab trace --db ./circuit.db --doc 6f1c... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Document, "doc", "", "document id to trace (required)")
	_ = cmd.MarkFlagRequired("doc")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one op kind (e.g. pointer_up)")
	cmd.Flags().StringVar(&opts.Tag, "tag", "", "filter to ops creating one node type (e.g. NAND)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "filter to ops acting on one entity id")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := newFormatter(opts.RootOptions, cmd)

	filter, err := traceFilter(opts)
	if err != nil {
		return err
	}

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := documentIDs(ctx, st, opts.Document); err != nil {
		return err
	}
	state, err := st.GetDocumentState(ctx, opts.Document)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to get document state", err)
	}
	ops, err := st.ReadOps(ctx, opts.Document)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read ops", err)
	}
	timeline := ops
	if filter != nil {
		timeline, err = st.QueryOps(ctx, queryir.Select{Document: opts.Document, Filter: filter})
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query ops", err)
		}
	}

	result := TraceResult{
		Document: opts.Document,
		Title:    state.Document.Title,
		Timeline: timeline,
		Stats: TraceStats{
			TotalOps: state.OpCount,
			LastSeq:  state.LastSeq,
			ByKind:   make(map[string]int, len(state.Kinds)),
			Gaps:     state.Gaps,
		},
	}
	for k, n := range state.Kinds {
		result.Stats.ByKind[string(k)] = n
	}

	result.Final = traceFinal(opts, ops, state.Replayable())

	if formatter.JSON() {
		return formatter.Success(result)
	}
	outputTraceText(formatter, result)
	return nil
}

// traceFilter builds the timeline filter from the flags, or nil when no
// filter flag is set.
func traceFilter(opts *TraceOptions) (queryir.Predicate, error) {
	var preds []queryir.Predicate
	if opts.Kind != "" {
		kind := ir.OpKind(opts.Kind)
		if !kind.Valid() {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown op kind %q", opts.Kind))
		}
		preds = append(preds, queryir.KindIs(kind))
	}
	if opts.Tag != "" {
		preds = append(preds, queryir.Equals{Field: queryir.FieldTag, Value: opts.Tag})
	}
	if opts.Target != "" {
		id, err := ir.ParseID(opts.Target)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "invalid --target", err)
		}
		preds = append(preds, queryir.TargetIs(id))
	}
	return queryir.Where(preds...), nil
}

func traceFinal(opts *TraceOptions, ops []ir.Op, replayable bool) TraceFinal {
	if !replayable {
		return TraceFinal{Error: "journal has missing ops"}
	}
	cat, err := LoadCatalog(opts.Defs)
	if err != nil {
		return TraceFinal{Error: err.Error()}
	}
	s, err := replayJournal(ops, cat, opts.Document, nil)
	if err != nil {
		return TraceFinal{Error: err.Error()}
	}

	final := TraceFinal{Entities: make(map[string]int, len(traceKinds))}
	for _, k := range traceKinds {
		final.Entities[k.String()] = s.Count(k)
	}
	if final.SnapshotHash, err = s.SnapshotHash(); err != nil {
		final.Error = err.Error()
	}
	return final
}

// describeOp renders the payload of an op on one line.
func describeOp(op ir.Op) string {
	var parts []string
	if op.Tag != "" {
		parts = append(parts, op.Tag)
	}
	if op.Text != "" {
		parts = append(parts, fmt.Sprintf("%q", op.Text))
	}
	if op.Kind.HasPosition() {
		parts = append(parts, fmt.Sprintf("at (%g, %g)", op.X, op.Y))
	}
	if op.Target != ir.NoID {
		parts = append(parts, "-> "+op.Target.String())
	}
	return strings.Join(parts, " ")
}

func outputTraceText(f *OutputFormatter, result TraceResult) {
	w := f.Writer

	fmt.Fprintf(w, "Document: %s\n", result.Document)
	if result.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", result.Title)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Timeline:")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no ops)")
	}
	for _, op := range result.Timeline {
		fmt.Fprintf(w, "  [%d] %-14s %s\n", op.Seq, op.Kind, describeOp(op))
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Stats: %d op(s), last seq %d\n", result.Stats.TotalOps, result.Stats.LastSeq)
	kinds := make([]string, 0, len(result.Stats.ByKind))
	for k := range result.Stats.ByKind {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(w, "  %s: %d\n", k, result.Stats.ByKind[k])
	}
	if len(result.Stats.Gaps) > 0 {
		fmt.Fprintf(w, "  missing seq: %v\n", result.Stats.Gaps)
	}
	fmt.Fprintln(w)

	if result.Final.Error != "" {
		fmt.Fprintf(w, "Final: replay failed: %s\n", result.Final.Error)
		return
	}
	fmt.Fprintln(w, "Final:")
	for _, k := range traceKinds {
		fmt.Fprintf(w, "  %s: %d\n", k, result.Final.Entities[k.String()])
	}
	if f.Verbose {
		fmt.Fprintf(w, "  snapshot: %s\n", result.Final.SnapshotHash)
	}
}
