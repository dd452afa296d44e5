package harness

import "github.com/roach88/connectlab/internal/ir"

// TraceEvent records the outcome of one scenario step.
type TraceEvent struct {
	// Step is the 1-based step index.
	Step int `json:"step"`

	// Op is the step action, e.g. "connect".
	Op string `json:"op"`

	// Seq is the session's last op sequence number after the step.
	Seq int64 `json:"seq"`

	// ID is the entity the step created or acted on, if any.
	ID ir.ID `json:"id,omitempty"`

	// Error is the step's error message when it failed.
	Error string `json:"error,omitempty"`

	// Outputs holds the value of every live aliased output after the step.
	Outputs map[string]bool `json:"outputs,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step behaved as expected,
	// every assertion held and the journal replayed to the same document.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Document is the journal document id.
	Document string `json:"document"`

	// Ops is the journal the session recorded, read back from the store.
	Ops []ir.Op `json:"ops"`

	// SnapshotHash is the hash of the final document.
	SnapshotHash string `json:"snapshot_hash"`
}

// NewResult creates a new passing result.
// Used as the starting point for scenario execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Ops:    []ir.Op{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
