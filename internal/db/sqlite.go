package db

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteOpts struct {
	PoolOpts
	BusyTimeout time.Duration // writers wait this long for the lock before SQLITE_BUSY; default 5s
}

// NewSQLiteConnection opens a SQLite database in WAL mode. Concurrent writers
// are serialized by the engine with a bounded busy wait, and the commit retry
// loop in the repository layer picks up whatever still times out.
func NewSQLiteConnection(path string, opts SQLiteOpts) (*sqlx.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty SQLite path")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	db, err := sqlx.Open("sqlite3", sqliteDSN(path, opts.BusyTimeout))
	if err != nil {
		return nil, err
	}
	applyPool(db, opts.PoolOpts)

	if err := ping(db, opts.PingTimeout); err != nil {
		return nil, err
	}
	return db, nil
}

func sqliteDSN(path string, busy time.Duration) string {
	q := url.Values{}
	q.Set("_busy_timeout", strconv.FormatInt(busy.Milliseconds(), 10))
	q.Set("_journal_mode", "WAL")
	q.Set("_foreign_keys", "on")

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + sep + q.Encode()
}
