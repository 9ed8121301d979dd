package sqldb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenSQLite_MigratesRunsTable(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ok, err := db.TableExists(context.Background(), "ingest_runs")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = db.TableExists(context.Background(), "dates")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("mysql", "whatever")
	assert.Error(t, err)
}

func TestBuilder_Placeholders(t *testing.T) {
	q, _, err := Builder(Postgres).Select("a").From("t").Where("b = ?", 1).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE b = $1", q)

	q, _, err = Builder(SQLite).Select("a").From("t").Where("b = ?", 1).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "SELECT a FROM t WHERE b = ?", q)
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, `"BTC"`, QuoteIdent("BTC"))
	assert.Equal(t, `"a""b"`, QuoteIdent(`a"b`))
}

func TestOpenSQLite_PragmasOnEveryConnection(t *testing.T) {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "db.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	// Hold two connections at once so the pool cannot hand back the same one.
	first, err := db.Conn(ctx)
	require.NoError(t, err)
	defer func() { _ = first.Close() }()
	second, err := db.Conn(ctx)
	require.NoError(t, err)
	defer func() { _ = second.Close() }()

	for _, conn := range []interface {
		QueryRowContext(context.Context, string, ...any) *sql.Row
	}{first, second} {
		var fk, timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 1, fk)
		assert.Equal(t, 5000, timeout)
	}
}

func TestWithPragmas(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"db.sqlite", "db.sqlite?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"file:db.sqlite?mode=rwc", "file:db.sqlite?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"},
		{"db.sqlite?_pragma=busy_timeout(100)", "db.sqlite?_pragma=busy_timeout(100)&_pragma=foreign_keys(1)"},
	}
	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, withPragmas(tt.dsn))
		})
	}
}
