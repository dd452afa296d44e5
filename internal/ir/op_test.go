package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpPayload(t *testing.T) {
	op := Op{Seq: 3, Kind: OpCreateGate, Tag: "AND", X: 100, Y: 40.5, Target: 4}

	b, err := op.MarshalPayload()
	require.NoError(t, err)
	assert.Equal(t, `{"tag":"AND","target":4,"x":100,"y":40.5}`, string(b))

	got, err := DecodeOp(3, string(OpCreateGate), b)
	require.NoError(t, err)
	assert.Equal(t, op, got)
}

func TestOpPayloadKeepsZeroPosition(t *testing.T) {
	b, err := Op{Kind: OpPointerDown}.MarshalPayload()
	require.NoError(t, err)
	assert.Equal(t, `{"x":0,"y":0}`, string(b))

	b, err = Op{Kind: OpRemove, Target: 2}.MarshalPayload()
	require.NoError(t, err)
	assert.Equal(t, `{"target":2}`, string(b))
}

func TestDecodeOpRejectsUnknownKind(t *testing.T) {
	_, err := DecodeOp(1, "teleport", nil)
	assert.Error(t, err)
}

func TestOpHashIncludesSeq(t *testing.T) {
	a, err := OpHash(Op{Seq: 1, Kind: OpToggle, Target: 2})
	require.NoError(t, err)
	b, err := OpHash(Op{Seq: 2, Kind: OpToggle, Target: 2})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseHelpers(t *testing.T) {
	id, err := ParseID("42")
	require.NoError(t, err)
	assert.Equal(t, ID(42), id)
	_, err = ParseID("0")
	assert.Error(t, err)
	_, err = ParseID("x")
	assert.Error(t, err)

	d, err := ParseDirection("OUT")
	require.NoError(t, err)
	assert.Equal(t, DirOut, d)
	assert.Equal(t, DirIn, d.Opposite())
	_, err = ParseDirection("sideways")
	assert.Error(t, err)

	k, err := ParseKind("connection")
	require.NoError(t, err)
	assert.Equal(t, KindConnection, k)
	assert.True(t, KindInput.IsNode())
	assert.False(t, KindAnnotation.IsNode())
}
