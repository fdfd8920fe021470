package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"documents",
		"document_recipients",
		"endorsements",
		"registry_sequences",
		"blobs",
		"activity_log",
		"documents_fts",
		"api_keys",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

// TestMigrationsIdempotent verifies the schema can be applied twice
func TestMigrationsIdempotent(t *testing.T) {
	db := NewTestDB(t)
	require.NoError(t, db.RunMigrations())
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")

	_, err = db.Exec(`INSERT INTO document_recipients (document_id, person_id, position) VALUES (?, ?, ?)`, "missing", "p1", 0)
	require.Error(t, err, "should fail with unknown document")
}

// TestDocumentsTable verifies the status and category constraints
func TestDocumentsTable(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	insert := `INSERT INTO documents (id, tenant_id, category, title, status, scope_key, created_by, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`

	_, err := db.ExecContext(ctx, insert, "d1", "tenant1", "order", "Title", "DRAFT", "2568", "clerk")
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, insert, "d2", "tenant1", "order", "Title", "ARCHIVED", "2568", "clerk")
	require.Error(t, err, "should fail with invalid status")

	_, err = db.ExecContext(ctx, insert, "d3", "tenant1", "memo", "Title", "DRAFT", "2568", "clerk")
	require.Error(t, err, "should fail with invalid category")
}

// TestFTSIndex verifies the full-text search index is synchronized
func TestFTSIndex(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	_, err := db.ExecContext(ctx,
		`INSERT INTO documents (id, tenant_id, category, title, status, scope_key, created_by, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
		"d1", "tenant1", "incoming_letter", "Unique Letter Title", "DRAFT", "2568", "clerk")
	require.NoError(t, err)

	var count int
	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents_fts WHERE documents_fts MATCH ?`, "unique").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count, "should find 1 document matching 'unique'")

	_, err = db.ExecContext(ctx, `UPDATE documents SET title = ? WHERE id = ?`, "Updated Title", "d1")
	require.NoError(t, err)

	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents_fts WHERE documents_fts MATCH ?`, "updated").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 1, count, "should find 1 document matching 'updated' after update")

	err = db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents_fts WHERE documents_fts MATCH ?`, "unique").Scan(&count)
	require.NoError(t, err)
	require.Equal(t, 0, count, "should find 0 documents matching 'unique' after update")
}
