package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/connectlab/internal/compiler"
)

var (
	defsDir = filepath.Join("testdata", "defs")
	badDir  = filepath.Join("testdata", "bad")
)

func TestValidate_Valid(t *testing.T) {
	out, err := execute(t, "validate", defsDir)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ 1 definition(s) valid")
}

func TestValidate_ValidJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", defsDir)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 1, resp.Data.Definitions)
}

func TestValidate_FallsBackToDefsFlag(t *testing.T) {
	out, err := execute(t, "--defs", defsDir, "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "1 definition(s) valid")
}

func TestValidate_NoDirectory(t *testing.T) {
	_, err := execute(t, "validate")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidate_ReportsEveryError(t *testing.T) {
	out, err := execute(t, "validate", badDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 error(s)")

	assert.Contains(t, out, "✗ Validation failed")
	assert.Contains(t, out, compiler.ErrTruthLength)
	assert.Contains(t, out, compiler.ErrTagConflict)
	assert.Contains(t, out, "gate.AND")
}

func TestValidate_ErrorsJSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "validate", badDir)
	require.Error(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)

	codes := []string{resp.Data.Errors[0].Code, resp.Data.Errors[1].Code}
	assert.ElementsMatch(t, []string{compiler.ErrTruthLength, compiler.ErrTagConflict}, codes)
}

func TestValidate_ConflictsAcrossDirectories(t *testing.T) {
	out, err := execute(t, "validate", defsDir, defsDir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, compiler.ErrTagConflict)
	assert.Contains(t, out, "gate.MAJ3")
}

func TestValidate_NonExistentDirectory(t *testing.T) {
	out, err := execute(t, "validate", "/nonexistent/directory/path")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, out, "not found")
}

func TestValidate_EmptyDirectory(t *testing.T) {
	out, err := execute(t, "validate", t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNoFiles)
	assert.Contains(t, out, "no CUE files found")
}

func TestValidate_NoGates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.cue"), []byte("other: 1\n"), 0644))

	out, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "no gate definitions found")
}

func TestValidate_SyntaxError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.cue"), []byte("gate: {\n"), 0644))

	_, err := execute(t, "validate", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeBuildFailed)
}

func TestMapFieldToErrorCode(t *testing.T) {
	tests := map[string]string{
		"cue":     ErrCodeBuildFailed,
		"kind":    compiler.ErrKindInvalid,
		"width":   compiler.ErrSizeInvalid,
		"slots":   compiler.ErrSlotInvalid,
		"truth":   compiler.ErrTruthLength,
		"unknown": ErrCodeGeneric,
	}
	for field, want := range tests {
		assert.Equal(t, want, MapFieldToErrorCode(field), field)
	}
}
