// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmehdipour/agenthub/internal/db"
	"github.com/jmehdipour/agenthub/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// NewSQLite returns a migrated SQLite database living in the test's temp dir.
func NewSQLite(t *testing.T) *sqlx.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "agenthub.db")
	dbx, err := db.NewSQLiteConnection(path, db.SQLiteOpts{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = dbx.Close() })

	require.NoError(t, migrations.Up(context.Background(), dbx, db.DriverSQLite))
	return dbx
}
