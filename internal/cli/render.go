package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/connectlab/internal/harness"
	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/render"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Database string
	Document string
	Scenario string
	Output   string
	Scale    float64
}

// RenderResult describes a written image.
type RenderResult struct {
	Document string `json:"document"`
	Output   string `json:"output"`
	Ops      int    `json:"ops"`
	Bytes    int    `json:"bytes"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a document to PNG",
		Long: `Rebuild a document and draw it as a PNG image.

The document comes either from a journal (--db and --doc) or from running
a scenario file (--scenario).

Examples:
  connectlab render --db ./circuit.db --doc 6f1c... -o circuit.png
  connectlab render --scenario ./scenarios/half_adder.yaml -o adder.png --scale 2`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().StringVar(&opts.Document, "doc", "", "document id to render")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario file to run and render")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output PNG file (required)")
	_ = cmd.MarkFlagRequired("output")
	cmd.Flags().Float64Var(&opts.Scale, "scale", 1, "pixels per surface unit")
	cmd.MarkFlagsMutuallyExclusive("scenario", "db")
	cmd.MarkFlagsRequiredTogether("db", "doc")

	return cmd
}

func runRender(opts *RenderOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	if opts.Scale <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid scale %g", opts.Scale))
	}

	var (
		ops  []ir.Op
		defs = opts.Defs
		doc  string
		err  error
	)
	switch {
	case opts.Scenario != "":
		ops, doc, defs, err = scenarioOps(opts)
	case opts.Database != "":
		ops, doc, err = journalOps(opts)
	default:
		return NewExitError(ExitCommandError, "either --scenario or --db and --doc is required")
	}
	if err != nil {
		return err
	}

	cat, err := LoadCatalog(defs)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	s, err := replayJournal(ops, cat, doc, nil)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to rebuild document", err)
	}

	var buf bytes.Buffer
	if err := render.New(render.WithScale(opts.Scale)).Render(&buf, s.Scene()); err != nil {
		return WrapExitError(ExitFailure, "failed to render", err)
	}
	if err := os.WriteFile(opts.Output, buf.Bytes(), 0644); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to write output", err)
	}

	result := RenderResult{Document: doc, Output: opts.Output, Ops: len(ops), Bytes: buf.Len()}
	if formatter.JSON() {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Rendered %s (%d ops) to %s\n", doc, len(ops), opts.Output)
	return nil
}

// scenarioOps runs a scenario and returns its journal and the definition
// directories it was run with.
func scenarioOps(opts *RenderOptions) ([]ir.Op, string, []string, error) {
	scenario, err := harness.LoadScenario(opts.Scenario)
	if err != nil {
		return nil, "", nil, WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	scenario.Defs = append(append([]string{}, opts.Defs...), scenario.Defs...)

	result, err := harness.Run(scenario)
	if err != nil {
		return nil, "", nil, WrapExitError(ExitCommandError, "failed to run scenario", err)
	}
	return result.Ops, result.Document, scenario.Defs, nil
}

func journalOps(opts *RenderOptions) ([]ir.Op, string, error) {
	ctx := context.Background()
	st, err := openJournal(opts.Database)
	if err != nil {
		return nil, "", err
	}
	defer st.Close()

	if _, err := documentIDs(ctx, st, opts.Document); err != nil {
		return nil, "", err
	}
	ops, err := st.ReadOps(ctx, opts.Document)
	if err != nil {
		return nil, "", WrapExitError(ExitCommandError, "failed to read ops", err)
	}
	return ops, opts.Document, nil
}
