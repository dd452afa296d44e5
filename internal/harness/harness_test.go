package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/testutil"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func requirePass(t *testing.T, r *Result) {
	t.Helper()
	require.True(t, r.Pass, "scenario failed: %v", r.Errors)
}

// =============================================================================
// Scenario files
// =============================================================================

func TestRun_ScenarioFiles(t *testing.T) {
	for _, name := range []string{"not_gate", "half_adder", "gestures", "majority"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario("testdata/scenarios/" + name + ".yaml")
			require.NoError(t, err)

			r, err := Run(s)
			require.NoError(t, err)
			requirePass(t, r)
			assert.Len(t, r.Trace, len(s.Steps))
			assert.NotEmpty(t, r.SnapshotHash)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/half_adder.yaml")
	require.NoError(t, err)

	r1, err := Run(s)
	require.NoError(t, err)
	r2, err := Run(s)
	require.NoError(t, err)

	assert.Equal(t, r1.SnapshotHash, r2.SnapshotHash)
	assert.Equal(t, r1.Ops, r2.Ops)
	assert.Equal(t, r1.Trace, r2.Trace)
}

func TestRun_JournalsEveryOp(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/not_gate.yaml")
	require.NoError(t, err)

	r, err := Run(s)
	require.NoError(t, err)
	requirePass(t, r)

	assert.Equal(t, testutil.DefaultDocumentID, r.Document)
	require.Len(t, r.Ops, 10)
	assert.Equal(t, ir.OpCreateInput, r.Ops[0].Kind)
	assert.Equal(t, ir.OpPointerDown, r.Ops[3].Kind)
	assert.Equal(t, ir.OpPointerMove, r.Ops[4].Kind)
	assert.Equal(t, ir.OpPointerUp, r.Ops[5].Kind)
	assert.Equal(t, ir.Op{Seq: 10, Kind: ir.OpToggle, Target: 1}, r.Ops[9])
}

func TestRun_GestureTrace(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/gestures.yaml")
	require.NoError(t, err)

	r, err := Run(s)
	require.NoError(t, err)
	requirePass(t, r)

	byOp := map[string]TraceEvent{}
	for _, ev := range r.Trace {
		byOp[ev.Op] = ev
	}
	assert.Equal(t, ir.ID(7), byOp[StepConnect].ID)
	assert.Equal(t, ir.ID(1), byOp[StepKey].ID, "Delete removed the gate")

	var abandons int
	for _, op := range r.Ops {
		if op.Kind == ir.OpAbandon {
			abandons++
		}
	}
	assert.Equal(t, 1, abandons, "timeout is journaled as an abandon")
}

// =============================================================================
// Step outcomes
// =============================================================================

func TestRun_ExpectedErrorsPass(t *testing.T) {
	s := mustParse(t, `
name: errors
steps:
  - create_gate: {tag: WIDGET, at: [0, 0]}
    expect_error: true
  - create_input: {tag: SWITCH, at: [100, 100], as: a}
  - create_input: {tag: SWITCH, at: [100, 300], as: b}
  - connect: {from: a.A, to: b.A}
    expect_error: true
  - toggle: ghost
    expect_error: true
assertions:
  - {type: connection_count, count: 0}
`)

	r, err := Run(s)
	require.NoError(t, err)
	requirePass(t, r)

	assert.Contains(t, r.Trace[0].Error, "UNKNOWN_GATE_TYPE")
	assert.Contains(t, r.Trace[3].Error, "connection rejected")
	assert.Contains(t, r.Trace[4].Error, "unknown alias")
}

func TestRun_UnexpectedErrorFails(t *testing.T) {
	s := mustParse(t, `
name: broken
steps:
  - create_gate: {tag: WIDGET, at: [0, 0]}
`)

	r, err := Run(s)
	require.NoError(t, err)
	assert.False(t, r.Pass)
	require.Len(t, r.Errors, 1)
	assert.Contains(t, r.Errors[0], "step 1 (create_gate)")
}

func TestRun_MissingExpectedErrorFails(t *testing.T) {
	s := mustParse(t, `
name: too_easy
steps:
  - create_gate: {tag: AND, at: [0, 0]}
    expect_error: true
`)

	r, err := Run(s)
	require.NoError(t, err)
	assert.False(t, r.Pass)
	assert.Contains(t, r.Errors[0], "expected an error")
}

func TestRun_FailedAssertion(t *testing.T) {
	s := mustParse(t, `
name: wrong
steps:
  - create_gate: {tag: NAND, at: [200, 200], as: g}
assertions:
  - {type: value, target: g, want: false}
  - {type: entity_count, kind: gate, count: 2}
  - {type: exists, target: g, want: false}
`)

	r, err := Run(s)
	require.NoError(t, err)
	assert.False(t, r.Pass)
	require.Len(t, r.Errors, 3)
	assert.Contains(t, r.Errors[0], "g = true")
	assert.Contains(t, r.Errors[1], "1 gate entities")
	assert.Contains(t, r.Errors[2], "exists = true")
}

func TestRun_RebindReplacesConnection(t *testing.T) {
	s := mustParse(t, `
name: rebind
steps:
  - create_input: {tag: SWITCH, at: [100, 100], as: a}
  - create_input: {tag: SWITCH, at: [100, 300], as: b}
  - create_output: {tag: LED_RED, at: [400, 200], as: led}
  - connect: {from: a.A, to: led.A}
  - connect: {from: led.A, to: b.A}
  - toggle: b
assertions:
  - {type: bound, from: a.A, to: led.A, want: false}
  - {type: bound, from: b.A, to: led.A}
  - {type: connection_count, target: led.A, count: 1}
  - {type: value, target: led, want: true}
`)

	r, err := Run(s)
	require.NoError(t, err)
	requirePass(t, r)
}

func TestRun_UnsettledCycle(t *testing.T) {
	s := mustParse(t, `
name: ring
steps:
  - create_gate: {tag: NOT, at: [300, 200], as: n}
  - connect: {from: n.Out, to: n.In}
assertions:
  - {type: stable, want: false}
`)

	r, err := Run(s)
	require.NoError(t, err)
	requirePass(t, r)
}

func TestRun_BadDefsDirectory(t *testing.T) {
	s := mustParse(t, `
name: nodefs
defs: [does/not/exist]
steps:
  - toggle: a
`)

	_, err := Run(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gate definitions")
}

func TestRunAll(t *testing.T) {
	summary, err := RunAll("testdata/scenarios")
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 4, summary.Passed)
	assert.Empty(t, summary.Failures)
}
