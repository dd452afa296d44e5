package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/store"
)

func TestReplay_Deterministic(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Replay Summary: 1 document(s)")
	assert.Contains(t, out, "✓ Document: "+seedDoc)
	assert.Contains(t, out, "Ops: 10 (last seq 10)")
	assert.Contains(t, out, "✓ All documents verified deterministic")
}

func TestReplay_JSON(t *testing.T) {
	db := seedJournal(t)

	out, err := execute(t, "--format", "json", "replay", "--db", db, "--doc", seedDoc)
	require.NoError(t, err)

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.AllDeterministic)
	require.Len(t, resp.Data.Documents, 1)
	assert.Equal(t, 10, resp.Data.Documents[0].Ops)
	assert.NotEmpty(t, resp.Data.Documents[0].SnapshotHash)
}

func TestReplay_Checkpoint(t *testing.T) {
	db := seedJournal(t)

	_, err := execute(t, "replay", "--db", db, "--checkpoint")
	require.NoError(t, err)

	st, err := store.Open(db)
	require.NoError(t, err)
	cps, err := st.ReadCheckpoints(context.Background(), seedDoc)
	require.NoError(t, err)
	require.NoError(t, st.Close())
	require.Len(t, cps, 1)
	assert.Equal(t, int64(10), cps[0].Seq)

	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Checkpoint: match")
}

func TestReplay_CheckpointMismatchFails(t *testing.T) {
	db := seedJournal(t)

	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.WriteCheckpoint(context.Background(), seedDoc, 10, "not-the-hash"))
	require.NoError(t, st.Close())

	out, err := execute(t, "replay", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "Checkpoint: mismatch")
	assert.Contains(t, out, "✗ Determinism verification failed")
}

func TestReplay_GapsFail(t *testing.T) {
	db := filepath.Join(t.TempDir(), "gappy.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, st.CreateDocument(ctx, store.Document{ID: "gappy"}))
	require.NoError(t, st.WriteOp(ctx, "gappy", ir.Op{Seq: 1, Kind: ir.OpCreateInput, Tag: "SWITCH", X: 100, Y: 100, Target: 1}))
	require.NoError(t, st.WriteOp(ctx, "gappy", ir.Op{Seq: 3, Kind: ir.OpToggle, Target: 1}))
	require.NoError(t, st.Close())

	out, err := execute(t, "replay", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "journal has 1 missing op(s)")
}

func TestReplay_DivergedFails(t *testing.T) {
	db := filepath.Join(t.TempDir(), "diverged.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, st.CreateDocument(ctx, store.Document{ID: "diverged"}))
	// The first entity of a document always gets id 1.
	require.NoError(t, st.WriteOp(ctx, "diverged", ir.Op{Seq: 1, Kind: ir.OpCreateInput, Tag: "SWITCH", X: 100, Y: 100, Target: 5}))
	require.NoError(t, st.Close())

	out, err := execute(t, "replay", "--db", db)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "replay diverged")
}

func TestReplay_EmptyDatabase(t *testing.T) {
	db := filepath.Join(t.TempDir(), "empty.db")
	st, err := store.Open(db)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	out, err := execute(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "No documents found in database.")
}

func TestReplay_Errors(t *testing.T) {
	db := seedJournal(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing_db", []string{"replay", "--db", filepath.Join(t.TempDir(), "none.db")}},
		{"unknown_doc", []string{"replay", "--db", db, "--doc", "nope"}},
		{"bad_defs", []string{"--defs", "/nonexistent/defs", "replay", "--db", db}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
		})
	}
}
