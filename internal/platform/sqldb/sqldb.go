package sqldb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

//go:embed migrations/001_ingest_runs.sql
var migration string

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

type DB struct {
	*sql.DB
	Dialect Dialect
}

// Open connects to the store selected by driver ("sqlite" or "postgres").
func Open(driver, dsn string) (*DB, error) {
	switch Dialect(driver) {
	case SQLite, "":
		return OpenSQLite(dsn)
	case Postgres:
		return OpenPostgres(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Builder returns a squirrel statement builder using the dialect's
// placeholder format.
func (db *DB) Builder() sq.StatementBuilderType {
	return Builder(db.Dialect)
}

func Builder(d Dialect) sq.StatementBuilderType {
	if d == Postgres {
		return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	}
	return sq.StatementBuilder.PlaceholderFormat(sq.Question)
}

// TableExists reports whether a table with the exact given name exists.
func (db *DB) TableExists(ctx context.Context, name string) (bool, error) {
	var query string
	switch db.Dialect {
	case Postgres:
		query = `SELECT COUNT(*) FROM information_schema.tables
			WHERE table_schema = current_schema() AND table_name = $1`
	default:
		query = `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	}

	var n int
	if err := db.QueryRowContext(ctx, query, name).Scan(&n); err != nil {
		return false, fmt.Errorf("table exists %s: %w", name, err)
	}
	return n > 0, nil
}

// QuoteIdent quotes a table or column name. Series tables are named after
// catalog symbols, so every dynamic identifier goes through here.
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(migration)
	return err
}
