package store

import (
	"bytes"
	"database/sql"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestStore opens a fresh file journal in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// =============================================================================
// Open and Close
// =============================================================================

func TestOpen_ReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open #%d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"documents", "ops", "checkpoints"} {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	// Several statements must see the same in-memory database.
	newDocument(t, s, "mem")
	docs, err := s.ListDocuments(t.Context())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "mem", docs[0].ID)
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "journal.db"))
	assert.Error(t, err)
}

func TestClose(t *testing.T) {
	assert.NoError(t, (&Store{}).Close(), "nil db")

	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.NotPanics(t, func() { _ = s.Close() })
}

func TestDB_Usable(t *testing.T) {
	s := createTestStore(t)
	require.NotNil(t, s.DB())
	assert.NoError(t, s.DB().Ping())
}

// =============================================================================
// Pragmas
// =============================================================================

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name string
		want string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.pragma(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithBusyTimeout(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"), WithBusyTimeout(250*time.Millisecond))
	require.NoError(t, err)
	defer s.Close()

	got, err := s.pragma("busy_timeout")
	require.NoError(t, err)
	assert.Equal(t, "250", got)
}

// =============================================================================
// Schema and constraints
// =============================================================================

func TestSchema_Columns(t *testing.T) {
	s := createTestStore(t)

	tests := map[string][]string{
		"documents":   {"id", "journal_version", "engine_version", "title"},
		"ops":         {"document_id", "seq", "kind", "payload", "op_hash"},
		"checkpoints": {"document_id", "seq", "snapshot_hash"},
	}
	for table, want := range tests {
		assert.Equal(t, want, tableColumns(t, s.db, table), table)
	}
}

func TestSchema_OpNeedsDocument(t *testing.T) {
	s := createTestStore(t)

	_, err := s.db.Exec(`INSERT INTO ops (document_id, seq, kind, payload, op_hash)
		VALUES ('missing', 1, 'toggle', '{}', 'h')`)
	assert.Error(t, err, "foreign key on documents(id)")
}

func TestSchema_SeqUniquePerDocument(t *testing.T) {
	s := createTestStore(t)
	newDocument(t, s, "a")
	newDocument(t, s, "b")

	insert := `INSERT INTO ops (document_id, seq, kind, payload, op_hash) VALUES (?, 1, 'toggle', '{}', 'h')`
	_, err := s.db.Exec(insert, "a")
	require.NoError(t, err)
	_, err = s.db.Exec(insert, "b")
	require.NoError(t, err, "same seq in another document")
	_, err = s.db.Exec(insert, "a")
	assert.Error(t, err, "UNIQUE(document_id, seq)")
}

// =============================================================================
// Migrations
// =============================================================================

func TestMigrations_Ordered(t *testing.T) {
	for i, m := range migrations {
		assert.Equal(t, i+1, m.version, m.name)
	}
	assert.Equal(t, len(migrations), currentSchemaVersion)
}

func TestMigrations_FreshJournal(t *testing.T) {
	s := createTestStore(t)

	version, err := s.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	indexes := tableIndexes(t, s.db, "ops")
	assert.Contains(t, indexes, "idx_ops_document_kind")
	assert.Contains(t, indexes, "idx_ops_document_target")
}

func TestMigrations_UpgradeFromV0(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	// A journal written before any migration existed.
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(schemaSQL)
	require.NoError(t, err)
	_, err = db.Exec("PRAGMA user_version = 0")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(path, WithLogger(logger))
	require.NoError(t, err)
	defer s.Close()

	version, err := s.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)
	assert.Contains(t, tableIndexes(t, s.db, "ops"), "idx_ops_document_target")
	assert.Contains(t, logs.String(), "journal migrated")
	assert.Contains(t, logs.String(), "migration=\"index ops by target\"")
}

func TestMigrations_ResumeFromV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("DROP INDEX idx_ops_document_target")
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 1")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.Contains(t, tableIndexes(t, s.db, "ops"), "idx_ops_document_target")
}

// =============================================================================
// Helpers
// =============================================================================

func tableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM pragma_table_info(?) ORDER BY cid", table)
	require.NoError(t, err)
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		columns = append(columns, name)
	}
	require.NoError(t, rows.Err())
	return columns
}

func tableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type = 'index' AND tbl_name = ?", table)
	require.NoError(t, err)
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		indexes = append(indexes, name)
	}
	require.NoError(t, rows.Err())
	return indexes
}
