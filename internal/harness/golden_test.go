package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_NotGate(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/not_gate.yaml")
	require.NoError(t, err)

	// First run with -update to create golden file:
	//   go test ./internal/harness -run TestRunWithGolden_NotGate -update
	r, err := RunWithGolden(t, s)
	require.NoError(t, err)
	assert.True(t, r.Pass, "scenario failed: %v", r.Errors)
}

func TestMarshalTrace_OmitsEmptyFields(t *testing.T) {
	r := NewResult()
	r.Document = "doc"
	r.Trace = append(r.Trace,
		TraceEvent{Step: 1, Op: StepMove, Seq: 1},
		TraceEvent{Step: 2, Op: StepToggle, Seq: 1, ID: 4, Error: "NOT_FOUND: gone", Outputs: map[string]bool{"led": true}},
	)

	got, err := MarshalTrace("demo", r)
	require.NoError(t, err)
	assert.Equal(t,
		`{"document":"doc","scenario_name":"demo","trace":[`+
			`{"op":"move","seq":1,"step":1},`+
			`{"error":"NOT_FOUND: gone","id":4,"op":"toggle","outputs":{"led":true},"seq":1,"step":2}]}`,
		string(got))
}
