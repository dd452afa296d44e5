package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/connectlab/internal/catalog"
	"github.com/roach88/connectlab/internal/engine"
	"github.com/roach88/connectlab/internal/geom"
	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/queryir"
)

func sampleOps() []ir.Op {
	return []ir.Op{
		{Seq: 1, Kind: ir.OpCreateInput, Tag: "SWITCH", X: 100, Y: 100, Target: 1},
		{Seq: 2, Kind: ir.OpCreateOutput, Tag: "LED_RED", X: 300, Y: 100, Target: 3},
		{Seq: 3, Kind: ir.OpPointerDown, X: 126, Y: 100},
		{Seq: 4, Kind: ir.OpPointerUp, X: 256, Y: 100},
		{Seq: 5, Kind: ir.OpToggle, Target: 1},
		{Seq: 6, Kind: ir.OpAnnotate, Text: "caf\u00e9", Style: "12px sans-serif", X: 0, Y: 0, Target: 6},
	}
}

func newDocument(t *testing.T, s *Store, id string) {
	t.Helper()
	require.NoError(t, s.CreateDocument(context.Background(), Document{ID: id}))
}

// =============================================================================
// Documents
// =============================================================================

func TestCreateDocument_DefaultsVersions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDocument(ctx, Document{ID: "doc-1", Title: "half adder"}))

	doc, err := s.ReadDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, Document{
		ID:             "doc-1",
		JournalVersion: ir.JournalVersion,
		EngineVersion:  ir.EngineVersion,
		Title:          "half adder",
	}, doc)
}

func TestCreateDocument_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateDocument(ctx, Document{ID: "doc-1", EngineVersion: "0.0.1"}))
	require.NoError(t, s.CreateDocument(ctx, Document{ID: "doc-1", EngineVersion: "9.9.9"}))

	doc, err := s.ReadDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "0.0.1", doc.EngineVersion, "first write wins")
}

func TestCreateDocument_EmptyID(t *testing.T) {
	s := createTestStore(t)
	assert.Error(t, s.CreateDocument(context.Background(), Document{}))
}

func TestReadDocument_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadDocument(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrDocumentNotFound))
}

func TestListDocuments_OrderedByID(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	for _, id := range []string{"c", "a", "b"} {
		newDocument(t, s, id)
	}

	docs, err = s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "c", docs[2].ID)
}

// =============================================================================
// Ops
// =============================================================================

func TestWriteOp_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")

	for _, op := range sampleOps() {
		require.NoError(t, s.WriteOp(ctx, "doc", op))
	}

	got, err := s.ReadOps(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, sampleOps(), got)
}

func TestWriteOp_StoresCanonicalPayload(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")

	require.NoError(t, s.WriteOp(ctx, "doc", ir.Op{Seq: 1, Kind: ir.OpCreateGate, Tag: "AND", X: 100, Y: 40.5, Target: 4}))

	var payload string
	require.NoError(t, s.db.QueryRow(`SELECT payload FROM ops WHERE seq = 1`).Scan(&payload))
	assert.Equal(t, `{"tag":"AND","target":4,"x":100,"y":40.5}`, payload)
}

func TestWriteOp_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")
	op := sampleOps()[0]

	require.NoError(t, s.WriteOp(ctx, "doc", op))
	require.NoError(t, s.WriteOp(ctx, "doc", op))

	got, err := s.ReadOps(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestWriteOp_ConflictingSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")

	require.NoError(t, s.WriteOp(ctx, "doc", ir.Op{Seq: 1, Kind: ir.OpToggle, Target: 1}))
	err := s.WriteOp(ctx, "doc", ir.Op{Seq: 1, Kind: ir.OpToggle, Target: 2})
	assert.True(t, errors.Is(err, ErrSeqConflict))
}

func TestWriteOp_Validation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")

	assert.Error(t, s.WriteOp(ctx, "doc", ir.Op{Seq: 0, Kind: ir.OpToggle}), "seq starts at 1")
	assert.Error(t, s.WriteOp(ctx, "doc", ir.Op{Seq: 1, Kind: "warp"}), "unknown kind")
	assert.Error(t, s.WriteOp(ctx, "ghost", ir.Op{Seq: 1, Kind: ir.OpToggle}), "unknown document")
}

func TestWriteOps_AllOrNothing(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")

	bad := append(sampleOps(), ir.Op{Seq: 3, Kind: ir.OpAbandon})
	require.Error(t, s.WriteOps(ctx, "doc", bad))

	got, err := s.ReadOps(ctx, "doc")
	require.NoError(t, err)
	assert.Empty(t, got, "failed batch leaves nothing behind")

	require.NoError(t, s.WriteOps(ctx, "doc", sampleOps()))
	got, err = s.ReadOps(ctx, "doc")
	require.NoError(t, err)
	assert.Len(t, got, len(sampleOps()))
}

func TestReadOpsAfter(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")
	require.NoError(t, s.WriteOps(ctx, "doc", sampleOps()))

	got, err := s.ReadOpsAfter(ctx, "doc", 4)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(5), got[0].Seq)
	assert.Equal(t, int64(6), got[1].Seq)
}

func TestReadOps_IsolatedPerDocument(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "a")
	newDocument(t, s, "b")

	require.NoError(t, s.WriteOp(ctx, "a", ir.Op{Seq: 1, Kind: ir.OpToggle, Target: 1}))
	require.NoError(t, s.WriteOp(ctx, "b", ir.Op{Seq: 1, Kind: ir.OpRemove, Target: 7}))

	got, err := s.ReadOps(ctx, "b")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ir.OpRemove, got[0].Kind)
}

func TestQueryOps_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")
	require.NoError(t, s.WriteOps(ctx, "doc", sampleOps()))

	tests := []struct {
		name    string
		filter  queryir.Predicate
		wantSeq []int64
	}{
		{"no filter", nil, []int64{1, 2, 3, 4, 5, 6}},
		{"kind", queryir.KindIs(ir.OpPointerUp), []int64{4}},
		{"tag", queryir.Equals{Field: queryir.FieldTag, Value: "LED_RED"}, []int64{2}},
		{"target", queryir.TargetIs(1), []int64{1, 5}},
		{"text", queryir.Equals{Field: queryir.FieldText, Value: "caf\u00e9"}, []int64{6}},
		{"kind and target", queryir.Where(queryir.KindIs(ir.OpToggle), queryir.TargetIs(1)), []int64{5}},
		{"after", queryir.Where(queryir.After{Seq: 2}, queryir.TargetIs(1)), []int64{5}},
		{"no match", queryir.TargetIs(99), []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.QueryOps(ctx, queryir.Select{Document: "doc", Filter: tt.filter})
			require.NoError(t, err)
			seqs := make([]int64, 0, len(got))
			for _, op := range got {
				seqs = append(seqs, op.Seq)
			}
			assert.Equal(t, tt.wantSeq, seqs)
		})
	}
}

func TestQueryOps_Limit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")
	require.NoError(t, s.WriteOps(ctx, "doc", sampleOps()))

	got, err := s.QueryOps(ctx, queryir.Select{Document: "doc", Filter: queryir.After{Seq: 1}, Limit: 2})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].Seq)
}

func TestQueryOps_InvalidQuery(t *testing.T) {
	s := createTestStore(t)

	_, err := s.QueryOps(context.Background(), queryir.Select{Document: "doc", Filter: queryir.Equals{Field: "payload", Value: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

// =============================================================================
// Checkpoints and state
// =============================================================================

func TestWriteCheckpoint(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")

	require.NoError(t, s.WriteCheckpoint(ctx, "doc", 4, "hash-4"))
	require.NoError(t, s.WriteCheckpoint(ctx, "doc", 4, "hash-4"))
	require.NoError(t, s.WriteCheckpoint(ctx, "doc", 2, "hash-2"))

	err := s.WriteCheckpoint(ctx, "doc", 4, "other")
	assert.True(t, errors.Is(err, ErrSeqConflict))

	cps, err := s.ReadCheckpoints(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []Checkpoint{{Seq: 2, SnapshotHash: "hash-2"}, {Seq: 4, SnapshotHash: "hash-4"}}, cps)
}

func TestGetDocumentState(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")
	require.NoError(t, s.WriteOps(ctx, "doc", sampleOps()))
	require.NoError(t, s.WriteCheckpoint(ctx, "doc", 6, "h6"))

	state, err := s.GetDocumentState(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 6, state.OpCount)
	assert.Equal(t, int64(6), state.LastSeq)
	assert.Equal(t, 1, state.Kinds[ir.OpToggle])
	assert.Equal(t, 1, state.Kinds[ir.OpCreateInput])
	assert.True(t, state.Replayable())
	require.NotNil(t, state.LastCheckpoint)
	assert.Equal(t, "h6", state.LastCheckpoint.SnapshotHash)
}

func TestGetDocumentState_Gaps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	newDocument(t, s, "doc")
	require.NoError(t, s.WriteOp(ctx, "doc", ir.Op{Seq: 2, Kind: ir.OpToggle, Target: 1}))
	require.NoError(t, s.WriteOp(ctx, "doc", ir.Op{Seq: 5, Kind: ir.OpToggle, Target: 1}))

	state, err := s.GetDocumentState(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 4}, state.Gaps)
	assert.False(t, state.Replayable())
	assert.Nil(t, state.LastCheckpoint)
}

func TestGetDocumentState_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.GetDocumentState(context.Background(), "nope")
	assert.True(t, errors.Is(err, ErrDocumentNotFound))
}

// =============================================================================
// Recorder
// =============================================================================

func TestRecorder_JournalsSessionForReplay(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec, err := NewRecorder(ctx, s, Document{ID: "doc-1"})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", rec.DocumentID())

	live := engine.New(engine.WithRecorder(rec), engine.WithDocumentID("doc-1"))
	sw, err := live.CreateInput(catalog.Switch, geom.Pt(100, 100))
	require.NoError(t, err)
	not, err := live.CreateGate(catalog.NOT, geom.Pt(400, 100))
	require.NoError(t, err)

	// Wire switch out (126,100) to NOT in (356,100).
	live.PointerDown(geom.Pt(126, 100))
	live.PointerMove(geom.Pt(356, 100))
	live.PointerUp(geom.Pt(356, 100))
	_, err = live.ToggleInput(sw)
	require.NoError(t, err)

	v, err := live.QueryValue(not)
	require.NoError(t, err)
	require.False(t, v)

	ops, err := s.ReadOps(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, ops, 6)

	replayed, err := engine.Replay(ops)
	require.NoError(t, err)

	want, err := live.SnapshotHash()
	require.NoError(t, err)
	got, err := replayed.SnapshotHash()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
