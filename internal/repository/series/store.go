package series

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/platform/sqldb"
	"github.com/ahmethakanbesel/dailystats/internal/repository/dates"
	domain "github.com/ahmethakanbesel/dailystats/internal/series"
)

type Repository struct {
	db      *sqldb.DB
	catalog catalog.Catalog
	dates   *dates.Registry
}

func NewRepository(db *sqldb.DB, c catalog.Catalog) *Repository {
	return &Repository{
		db:      db,
		catalog: c,
		dates:   dates.NewRegistry(db.Dialect),
	}
}

func (r *Repository) NewestTimestamp(ctx context.Context, table string) (time.Time, bool, error) {
	if _, ok := r.catalog.Columns(table); !ok {
		return time.Time{}, false, fmt.Errorf("newest timestamp: unknown table %q", table)
	}

	query, args, err := r.db.Builder().
		Select("MAX(d.timestamp)").
		From(sqldb.QuoteIdent(table) + " s").
		Join(catalog.DatesTable + " d ON d.date_id = s.date_id").
		ToSql()
	if err != nil {
		return time.Time{}, false, fmt.Errorf("newest timestamp: build query: %w", err)
	}

	var newest sql.NullInt64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&newest); err != nil {
		return time.Time{}, false, fmt.Errorf("newest timestamp %s: %w", table, err)
	}
	if !newest.Valid {
		return time.Time{}, false, nil
	}
	return dates.FromUnix(newest.Int64), true, nil
}

// Insert writes one row, resolving its date id in the same transaction so a
// failed write never leaves a dangling registry entry behind.
func (r *Repository) Insert(ctx context.Context, table string, rec domain.Record) error {
	cols, ok := r.catalog.Columns(table)
	if !ok {
		return fmt.Errorf("insert: unknown table %q", table)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	dateID, err := r.dates.Resolve(ctx, tx, rec.Timestamp)
	if err != nil {
		return err
	}

	names := []string{"date_id"}
	values := []any{dateID}
	for _, col := range cols {
		v, ok := rec.Fields[col.Name]
		if !ok {
			continue
		}
		names = append(names, sqldb.QuoteIdent(col.Name))
		if col.Kind == catalog.Integer {
			values = append(values, int64(math.Round(v)))
		} else {
			values = append(values, v)
		}
	}

	query, args, err := r.db.Builder().
		Insert(sqldb.QuoteIdent(table)).
		Columns(names...).
		Values(values...).
		ToSql()
	if err != nil {
		return fmt.Errorf("insert: build query: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}

	return tx.Commit()
}

func (r *Repository) Range(ctx context.Context, table string, fields []string, from, to time.Time) ([]domain.Point, error) {
	cols, ok := r.catalog.Columns(table)
	if !ok {
		return nil, fmt.Errorf("range: unknown table %q", table)
	}
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c.Name] = true
	}

	selects := []string{"d.timestamp"}
	for _, f := range fields {
		if !known[f] {
			return nil, fmt.Errorf("range: unknown field %q in %s", f, table)
		}
		selects = append(selects, "s."+sqldb.QuoteIdent(f))
	}

	query, args, err := r.db.Builder().
		Select(selects...).
		From(sqldb.QuoteIdent(table) + " s").
		Join(catalog.DatesTable + " d ON d.date_id = s.date_id").
		Where(sq.And{
			sq.GtOrEq{"d.timestamp": dates.Unix(from)},
			sq.LtOrEq{"d.timestamp": dates.Unix(to)},
		}).
		OrderBy("d.timestamp ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("range: build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var points []domain.Point
	for rows.Next() {
		var ts int64
		raw := make([]sql.NullFloat64, len(fields))
		dest := make([]any, 0, len(fields)+1)
		dest = append(dest, &ts)
		for i := range raw {
			dest = append(dest, &raw[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}

		p := domain.Point{
			Timestamp: dates.FromUnix(ts),
			Values:    make(map[string]*float64, len(fields)),
		}
		for i, f := range fields {
			if raw[i].Valid {
				v := raw[i].Float64
				p.Values[f] = &v
			} else {
				p.Values[f] = nil
			}
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
