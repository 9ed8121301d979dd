// Package schema creates the store layout derived from the catalog: one
// table per tracked series keyed by date_id, plus the shared dates registry.
package schema

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/platform/sqldb"
)

type Table struct {
	Name    string
	Columns []catalog.Column
}

// Tables derives the series table definitions from the catalog.
func Tables(c catalog.Catalog) []Table {
	names := c.Tables()
	tables := make([]Table, 0, len(names))
	for _, name := range names {
		cols, _ := c.Columns(name)
		tables = append(tables, Table{Name: name, Columns: cols})
	}
	return tables
}

// Statements returns the DDL creating the dates registry followed by every
// series table.
func Statements(d sqldb.Dialect, c catalog.Catalog) []string {
	stmts := []string{datesDDL(d)}
	for _, t := range Tables(c) {
		stmts = append(stmts, tableDDL(d, t))
	}
	return stmts
}

// InitializeIfAbsent creates the schema when the dates registry does not
// exist yet. It reports whether anything was created. An existing store is
// left untouched, including catalog entries added after it was created.
func InitializeIfAbsent(ctx context.Context, db *sqldb.DB, c catalog.Catalog) (bool, error) {
	if err := c.Validate(); err != nil {
		return false, err
	}

	exists, err := db.TableExists(ctx, catalog.DatesTable)
	if err != nil {
		return false, fmt.Errorf("initialize schema: %w", err)
	}
	if exists {
		return false, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("initialize schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmts := Statements(db.Dialect, c)
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return false, fmt.Errorf("initialize schema: %s: %w", firstLine(stmt), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("initialize schema: commit: %w", err)
	}

	slog.Info("schema initialized", "tables", len(stmts), "dialect", db.Dialect)
	return true, nil
}

func datesDDL(d sqldb.Dialect) string {
	if d == sqldb.Postgres {
		return `CREATE TABLE IF NOT EXISTS dates (
    date_id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    timestamp BIGINT NOT NULL UNIQUE
)`
	}
	return `CREATE TABLE IF NOT EXISTS dates (
    date_id INTEGER PRIMARY KEY,
    timestamp INTEGER NOT NULL UNIQUE
)`
}

func tableDDL(d sqldb.Dialect, t Table) string {
	idType := "INTEGER"
	if d == sqldb.Postgres {
		idType = "BIGINT"
	}

	lines := make([]string, 0, len(t.Columns)+1)
	lines = append(lines, fmt.Sprintf("    date_id %s PRIMARY KEY REFERENCES dates(date_id)", idType))
	for _, col := range t.Columns {
		lines = append(lines, fmt.Sprintf("    %s %s", sqldb.QuoteIdent(col.Name), columnType(d, col.Kind)))
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", sqldb.QuoteIdent(t.Name), strings.Join(lines, ",\n"))
}

func columnType(d sqldb.Dialect, k catalog.Kind) string {
	switch {
	case k == catalog.Integer && d == sqldb.Postgres:
		return "BIGINT"
	case k == catalog.Integer:
		return "INTEGER"
	case d == sqldb.Postgres:
		return "DOUBLE PRECISION"
	default:
		return "REAL"
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
