// Package migrations embeds the schema for each supported SQL dialect and
// the ClickHouse analytics tables.
package migrations

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jmoiron/sqlx"
)

//go:embed mysql/*.sql sqlite/*.sql clickhouse/*.sql
var files embed.FS

// ClickHouse names the analytics migration set. Its files hold one
// statement each because the driver rejects multi-statement exec.
const ClickHouse = "clickhouse"

// Migration is one embedded schema file.
type Migration struct {
	Name string
	SQL  string
}

// Tables lists every table the schema creates, in drop-safe order.
var Tables = []string{
	"library_bias",
	"quiz_attempt",
	"library_rating",
	"library_progress",
	"library_view",
	"library_item",
	"team_member",
	"users",
}

// List returns the migrations of a dialect in file-name order.
func List(dialect string) ([]Migration, error) {
	names, err := fs.Glob(files, dialect+"/*.sql")
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no migrations for dialect %q", dialect)
	}
	sort.Strings(names)

	out := make([]Migration, 0, len(names))
	for _, name := range names {
		body, err := files.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		out = append(out, Migration{Name: name, SQL: string(body)})
	}
	return out, nil
}

// Up applies every migration of the dialect in file-name order. Statements
// are idempotent (IF NOT EXISTS), so Up can run on every deploy.
func Up(ctx context.Context, db *sqlx.DB, dialect string) error {
	ms, err := List(dialect)
	if err != nil {
		return err
	}
	for _, m := range ms {
		if _, err := db.ExecContext(ctx, m.SQL); err != nil {
			return fmt.Errorf("exec %s: %w", m.Name, err)
		}
	}
	return nil
}

// Reset drops every table (dev only).
func Reset(ctx context.Context, db *sqlx.DB) error {
	for _, t := range Tables {
		if _, err := db.ExecContext(ctx, "DROP TABLE IF EXISTS "+t); err != nil {
			return fmt.Errorf("drop %s: %w", t, err)
		}
	}
	return nil
}
