package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/ir"
)

// CatalogOptions holds flags for the catalog command.
type CatalogOptions struct {
	*RootOptions
	Output string // canonical JSON output file
}

// CatalogEntry describes one node type.
type CatalogEntry struct {
	Tag    string      `json:"tag"`
	Kind   string      `json:"kind"`
	Width  float64     `json:"width"`
	Height float64     `json:"height"`
	Slots  []SlotEntry `json:"slots"`
	Truth  []bool      `json:"truth,omitempty"` // gates only, first in slot is the most significant bit
}

// SlotEntry describes one slot of a node type.
type SlotEntry struct {
	Name string  `json:"name"`
	Dir  string  `json:"dir"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CatalogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "List available node types",
		Long: `List every node type: the builtin gates, switches and lights plus the
gates defined in the --defs directories.

With -o the catalog is also written as canonical JSON, suitable for
diffing between builds.

Examples:
  connectlab catalog
  connectlab catalog --defs ./gates
  connectlab catalog --defs ./gates -o catalog.json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCatalog(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write canonical JSON to file")

	return cmd
}

func runCatalog(opts *CatalogOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	cat, err := LoadCatalog(opts.Defs)
	if err != nil {
		return reportLoadError(formatter, err)
	}
	entries := catalogEntries(cat)

	if opts.Output != "" {
		data, err := ir.MarshalCanonical(canonicalCatalog(entries))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to marshal catalog", err)
		}
		if err := os.WriteFile(opts.Output, data, 0644); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		formatter.VerboseLog("Wrote %s", opts.Output)
	}

	if formatter.JSON() {
		return formatter.Success(entries)
	}
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "%-10s %-7s %s\n", e.Tag, e.Kind, describeSlots(e.Slots))
	}
	fmt.Fprintf(formatter.Writer, "\n%d node type(s)\n", len(entries))
	return nil
}

// catalogEntries lists cat in registration order.
func catalogEntries(cat *catalog.Catalog) []CatalogEntry {
	tags := cat.Tags()
	entries := make([]CatalogEntry, 0, len(tags))
	for _, tag := range tags {
		d, err := cat.Lookup(tag)
		if err != nil {
			continue
		}
		e := CatalogEntry{
			Tag:    string(d.Tag),
			Kind:   d.Kind.String(),
			Width:  d.Width,
			Height: d.Height,
		}
		for _, s := range d.Slots() {
			e.Slots = append(e.Slots, SlotEntry{Name: s.Name, Dir: s.Dir.String(), X: s.Offset.X, Y: s.Offset.Y})
		}
		if d.Kind == ir.KindGate {
			e.Truth = truthTable(d)
		}
		entries = append(entries, e)
	}
	return entries
}

// truthTable evaluates d for every combination of its inputs.
func truthTable(d catalog.Descriptor) []bool {
	n := d.NumIn()
	table := make([]bool, 1<<n)
	in := make([]bool, n)
	for i := range table {
		for k := range in {
			in[k] = i&(1<<(n-1-k)) != 0
		}
		table[i] = d.Eval(in)
	}
	return table
}

func describeSlots(slots []SlotEntry) string {
	var ins, outs []string
	for _, s := range slots {
		if s.Dir == ir.DirIn.String() {
			ins = append(ins, s.Name)
		} else {
			outs = append(outs, s.Name)
		}
	}
	return fmt.Sprintf("in[%s] out[%s]", strings.Join(ins, ","), strings.Join(outs, ","))
}

// canonicalCatalog converts entries to the types ir.MarshalCanonical
// accepts.
func canonicalCatalog(entries []CatalogEntry) map[string]any {
	gates := make([]any, len(entries))
	for i, e := range entries {
		slots := make([]any, len(e.Slots))
		for j, s := range e.Slots {
			slots[j] = map[string]any{"name": s.Name, "dir": s.Dir, "x": s.X, "y": s.Y}
		}
		m := map[string]any{
			"tag":    e.Tag,
			"kind":   e.Kind,
			"width":  e.Width,
			"height": e.Height,
			"slots":  slots,
		}
		if e.Truth != nil {
			truth := make([]any, len(e.Truth))
			for j, v := range e.Truth {
				truth[j] = v
			}
			m["truth"] = truth
		}
		gates[i] = m
	}
	return map[string]any{"version": ir.EngineVersion, "types": gates}
}
