package cli

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePNG(t *testing.T, path string) (int, int) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestRender_Journal(t *testing.T) {
	db := seedJournal(t)
	out := filepath.Join(t.TempDir(), "inverter.png")

	stdout, err := execute(t, "render", "--db", db, "--doc", seedDoc, "-o", out)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Rendered "+seedDoc+" (10 ops)")

	w, h := decodePNG(t, out)
	// Nodes span x 56..744 and y 75..125, plus 16 padding each side.
	assert.Equal(t, 720, w)
	assert.Equal(t, 82, h)
}

func TestRender_ScenarioScaled(t *testing.T) {
	out := filepath.Join(t.TempDir(), "not_gate.png")

	stdout, err := execute(t, "--format", "json", "render",
		"--scenario", filepath.Join(scenariosDir, "not_gate.yaml"), "-o", out, "--scale", "2")
	require.NoError(t, err)

	var resp struct {
		Data RenderResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "test-doc-default", resp.Data.Document)
	assert.Equal(t, 10, resp.Data.Ops)
	assert.Positive(t, resp.Data.Bytes)

	w, h := decodePNG(t, out)
	// Nodes span x 56..544 and y 75..125.
	assert.Equal(t, 2*(488+32), w)
	assert.Equal(t, 2*82, h)
}

func TestRender_ScenarioWithDefs(t *testing.T) {
	out := filepath.Join(t.TempDir(), "majority.png")
	_, err := execute(t, "render", "--scenario", filepath.Join(scenariosDir, "majority.yaml"), "-o", out)
	require.NoError(t, err)
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestRender_Errors(t *testing.T) {
	db := seedJournal(t)
	out := filepath.Join(t.TempDir(), "x.png")

	tests := []struct {
		name string
		args []string
	}{
		{"no_source", []string{"render", "-o", out}},
		{"bad_scale", []string{"render", "--db", db, "--doc", seedDoc, "-o", out, "--scale", "0"}},
		{"unknown_doc", []string{"render", "--db", db, "--doc", "nope", "-o", out}},
		{"both_sources", []string{"render", "--db", db, "--doc", seedDoc, "--scenario", "x.yaml", "-o", out}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
		})
	}
}
