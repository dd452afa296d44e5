package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var scenariosDir = filepath.Join("testdata", "scenarios")

// copyScenario copies one scenario file into a fresh directory.
func copyScenario(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join(scenariosDir, name+".yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name+".yaml"), data, 0644))
	return dir
}

func TestTest_FailingScenarioFailsRun(t *testing.T) {
	out, err := execute(t, "test", scenariosDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	assert.Contains(t, out, "✓ not_gate")
	assert.Contains(t, out, "✓ majority")
	assert.Contains(t, out, "✗ broken_assertion")
	assert.Contains(t, out, "Test Summary: 2 passed, 1 failed, 3 total")
}

func TestTest_Filter(t *testing.T) {
	out, err := execute(t, "test", scenariosDir, "--filter", "not_*")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ not_gate")
	assert.NotContains(t, out, "majority")
	assert.Contains(t, out, "✓ All scenarios passed")
}

func TestTest_InvalidFilter(t *testing.T) {
	_, err := execute(t, "test", scenariosDir, "--filter", "[")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTest_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "test", scenariosDir)
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	assert.Equal(t, 3, resp.Data.Total)
	assert.Equal(t, 1, resp.Data.Failed)

	for _, s := range resp.Data.Scenarios {
		if s.Name == "broken_assertion" {
			assert.False(t, s.Pass)
			assert.NotEmpty(t, s.Errors)
		}
	}
}

func TestTest_UpdateWritesGolden(t *testing.T) {
	dir := copyScenario(t, "not_gate")

	_, err := execute(t, "test", dir, "--update")
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(dir, "golden", "not_gate.golden"))
	require.NoError(t, err)
	want, err := os.ReadFile(filepath.Join(scenariosDir, "golden", "not_gate.golden"))
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))

	_, err = execute(t, "test", dir)
	assert.NoError(t, err, "a freshly written golden file matches")
}

func TestTest_GoldenMismatch(t *testing.T) {
	dir := copyScenario(t, "not_gate")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "not_gate.golden"), []byte("{}"), 0644))

	out, err := execute(t, "test", dir)
	require.Error(t, err)
	assert.Contains(t, out, "trace does not match golden file")
}

func TestTest_DefsFlagAppliesToScenarios(t *testing.T) {
	dir := t.TempDir()
	scenario := `name: uses_defs
description: Places a gate that only the --defs directory defines.
steps:
  - create_gate: {tag: MAJ3, at: [400, 200], as: maj}
assertions:
  - {type: exists, target: maj}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "uses_defs.yaml"), []byte(scenario), 0644))

	_, err := execute(t, "test", dir)
	require.Error(t, err, "MAJ3 is not builtin")

	out, err := execute(t, "--defs", defsDir, "test", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ uses_defs")
}

func TestTest_NoScenarios(t *testing.T) {
	out, err := execute(t, "test", t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, out, "No scenarios found.")
}

func TestTest_MissingDirectory(t *testing.T) {
	_, err := execute(t, "test", "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t, filepath.Join("a", "golden", "b.golden"), goldenFilePath(filepath.Join("a", "b.yaml")))
}
