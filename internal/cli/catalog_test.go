package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
)

func TestCatalog_Builtin(t *testing.T) {
	out, err := execute(t, "catalog")
	require.NoError(t, err)

	assert.Contains(t, out, "AND        gate    in[A,B] out[C]")
	assert.Contains(t, out, "NOT        gate    in[In] out[Out]")
	assert.Contains(t, out, "SWITCH     input   in[] out[A]")
	assert.Contains(t, out, "LED_RED    output  in[A] out[]")
	assert.Contains(t, out, "9 node type(s)")
}

func TestCatalog_WithDefs(t *testing.T) {
	out, err := execute(t, "--defs", defsDir, "catalog")
	require.NoError(t, err)
	assert.Contains(t, out, "MAJ3       gate    in[A,B,C] out[Q]")
	assert.Contains(t, out, "10 node type(s)")
}

func TestCatalog_JSON(t *testing.T) {
	out, err := execute(t, "--format", "json", "--defs", defsDir, "catalog")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   []CatalogEntry `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 10)

	byTag := map[string]CatalogEntry{}
	for _, e := range resp.Data {
		byTag[e.Tag] = e
	}
	assert.Equal(t, []bool{false, false, false, true}, byTag["AND"].Truth)
	assert.Equal(t, []bool{true, false}, byTag["NOT"].Truth)
	assert.Equal(t, []bool{false, false, false, true, false, true, true, true}, byTag["MAJ3"].Truth)
	assert.Nil(t, byTag["SWITCH"].Truth)
	assert.Equal(t, float64(60), byTag["MAJ3"].Height)
}

func TestCatalog_CanonicalOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")

	_, err := execute(t, "catalog", "-o", path)
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, err = execute(t, "catalog", "-o", path)
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(first, &doc))
	assert.Len(t, doc["types"], 9)
}

func TestCatalog_BadDefs(t *testing.T) {
	_, err := execute(t, "--defs", badDir, "catalog")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "--defs", "/nonexistent/defs", "catalog")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTruthTable_MostSignificantFirst(t *testing.T) {
	d, err := catalog.NewDescriptor("A_AND_NOT_B", ir.KindGate, 88, 50, []catalog.SlotTemplate{
		{Name: "A", Offset: geom.Pt(0, 15), Dir: ir.DirIn},
		{Name: "B", Offset: geom.Pt(0, 35), Dir: ir.DirIn},
		{Name: "Q", Offset: geom.Pt(88, 25), Dir: ir.DirOut},
	}, func(in []bool) bool { return in[0] && !in[1] })
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, false}, truthTable(d))
}
