// Package dates is the date registry: it maps a UTC day to the surrogate
// date_id every series table is keyed by.
package dates

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/platform/sqldb"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so a resolve can join
// the transaction that writes the series row.
type Querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Registry struct {
	builder sq.StatementBuilderType
}

func NewRegistry(d sqldb.Dialect) *Registry {
	return &Registry{builder: sqldb.Builder(d)}
}

// Resolve returns the date id of the day ts falls in, creating the entry if
// it does not exist. Concurrent resolves of one day return the same id.
func (r *Registry) Resolve(ctx context.Context, q Querier, ts time.Time) (int64, error) {
	query, args, err := r.builder.
		Insert(catalog.DatesTable).
		Columns("timestamp").
		Values(Unix(ts)).
		Suffix("ON CONFLICT (timestamp) DO UPDATE SET timestamp = excluded.timestamp RETURNING date_id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("resolve date: build query: %w", err)
	}

	var id int64
	if err := q.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("resolve date %s: %w", ts.UTC().Format(time.DateOnly), err)
	}
	return id, nil
}

// Lookup returns the date id of ts without creating it.
func (r *Registry) Lookup(ctx context.Context, q Querier, ts time.Time) (int64, bool, error) {
	query, args, err := r.builder.
		Select("date_id").
		From(catalog.DatesTable).
		Where(sq.Eq{"timestamp": Unix(ts)}).
		ToSql()
	if err != nil {
		return 0, false, fmt.Errorf("lookup date: build query: %w", err)
	}

	var id int64
	err = q.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup date %s: %w", ts.UTC().Format(time.DateOnly), err)
	}
	return id, true, nil
}

// Unix is the stored form of a day: seconds since the epoch at UTC midnight.
func Unix(ts time.Time) int64 {
	return ts.UTC().Truncate(24 * time.Hour).Unix()
}

// FromUnix is the inverse of Unix.
func FromUnix(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}
