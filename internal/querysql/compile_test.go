package querysql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/connectlab/internal/ir"
	"github.com/roach88/connectlab/internal/queryir"
)

func TestCompile_GoldenSQL(t *testing.T) {
	compiler := NewSQLCompiler()

	testCases := []struct {
		name       string
		query      queryir.Query
		wantSQL    string
		wantParams []any
	}{
		{
			name:       "whole journal",
			query:      queryir.Select{Document: "doc"},
			wantSQL:    "SELECT seq, kind, payload, op_hash FROM ops WHERE document_id = ? ORDER BY seq ASC",
			wantParams: []any{"doc"},
		},
		{
			name:       "after seq",
			query:      &queryir.Select{Document: "doc", Filter: queryir.After{Seq: 4}},
			wantSQL:    "SELECT seq, kind, payload, op_hash FROM ops WHERE document_id = ? AND seq > ? ORDER BY seq ASC",
			wantParams: []any{"doc", int64(4)},
		},
		{
			name:       "kind",
			query:      queryir.Select{Document: "doc", Filter: queryir.KindIs(ir.OpToggle)},
			wantSQL:    "SELECT seq, kind, payload, op_hash FROM ops WHERE document_id = ? AND kind = ? ORDER BY seq ASC",
			wantParams: []any{"doc", "toggle"},
		},
		{
			name:       "payload field",
			query:      queryir.Select{Document: "doc", Filter: &queryir.Equals{Field: queryir.FieldTag, Value: "NOT"}},
			wantSQL:    "SELECT seq, kind, payload, op_hash FROM ops WHERE document_id = ? AND json_extract(payload, '$.tag') = ? ORDER BY seq ASC",
			wantParams: []any{"doc", "NOT"},
		},
		{
			name: "and with limit",
			query: queryir.Select{
				Document: "doc",
				Filter:   queryir.Where(queryir.KindIs(ir.OpRemove), queryir.TargetIs(3)),
				Limit:    1,
			},
			wantSQL:    "SELECT seq, kind, payload, op_hash FROM ops WHERE document_id = ? AND (kind = ? AND json_extract(payload, '$.target') = ?) ORDER BY seq ASC LIMIT ?",
			wantParams: []any{"doc", "remove", int64(3), 1},
		},
		{
			name:       "empty and",
			query:      queryir.Select{Document: "doc", Filter: queryir.And{}},
			wantSQL:    "SELECT seq, kind, payload, op_hash FROM ops WHERE document_id = ? AND 1 = 1 ORDER BY seq ASC",
			wantParams: []any{"doc"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, params, err := compiler.Compile(tc.query)
			require.NoError(t, err)

			assert.Equal(t, tc.wantSQL, sql, "SQL mismatch")
			assert.Equal(t, tc.wantParams, params, "Parameters mismatch")
		})
	}
}

func TestCompile_NoStringInterpolation(t *testing.T) {
	malicious := "'; DROP TABLE ops; --"
	sql, params, err := NewSQLCompiler().Compile(queryir.Select{
		Document: "doc",
		Filter:   queryir.Equals{Field: queryir.FieldText, Value: malicious},
	})
	require.NoError(t, err)

	assert.NotContains(t, sql, "DROP")
	assert.Contains(t, params, malicious)
}

func TestCompile_RejectsInvalidQueries(t *testing.T) {
	compiler := NewSQLCompiler()

	_, _, err := compiler.Compile(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nil query")

	_, _, err = compiler.Compile(queryir.Select{Document: "doc", Filter: queryir.Equals{Field: "payload", Value: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid query")
}

func TestValueToParam(t *testing.T) {
	tests := []struct {
		in   any
		want any
	}{
		{"x", "x"},
		{int64(9), int64(9)},
		{ir.OpPointerDown, "pointer_down"},
		{ir.ID(5), int64(5)},
	}
	for _, tt := range tests {
		got, err := valueToParam(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := valueToParam(1.5)
	assert.Error(t, err)
}
