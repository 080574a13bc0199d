package repository

import "fmt"

// Dialect selects the SQL flavour for statements that differ between the
// supported stores (upserts and duplicate-tolerant inserts).
type Dialect string

const (
	DialectMySQL  Dialect = "mysql"
	DialectSQLite Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case DialectMySQL, DialectSQLite:
		return Dialect(s), nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", s)
	}
}
