package run

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/ahmethakanbesel/dailystats/internal/apperror"
	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/platform/sqldb"
	domain "github.com/ahmethakanbesel/dailystats/internal/run"
)

var columns = []string{
	"id", "trigger_kind", "status", "max_inserts_per_table", "max_inserts_per_run",
	"inserted", "failures", "error", "created_at", "updated_at",
}

type Repository struct {
	db *sqldb.DB
}

func NewRepository(db *sqldb.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, run *domain.Run) error {
	failures, err := encodeFailures(run.Failures)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if run.CreatedAt.IsZero() {
		run.CreatedAt = now
	}
	run.UpdatedAt = now

	query, args, err := r.db.Builder().
		Insert(catalog.RunsTable).
		Columns(columns...).
		Values(
			run.ID, string(run.Trigger), string(run.Status), run.MaxInsertsPerTable, run.MaxInsertsPerRun,
			run.Inserted, failures, nullString(run.Error),
			run.CreatedAt.Format(time.RFC3339), run.UpdatedAt.Format(time.RFC3339),
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("create run: build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, run *domain.Run) error {
	failures, err := encodeFailures(run.Failures)
	if err != nil {
		return err
	}
	run.UpdatedAt = time.Now().UTC()

	query, args, err := r.db.Builder().
		Update(catalog.RunsTable).
		Set("status", string(run.Status)).
		Set("inserted", run.Inserted).
		Set("failures", failures).
		Set("error", nullString(run.Error)).
		Set("updated_at", run.UpdatedAt.Format(time.RFC3339)).
		Where(sq.Eq{"id": run.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("update run: build query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.Run, error) {
	query, args, err := r.db.Builder().
		Select(columns...).
		From(catalog.RunsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("get run: build query: %w", err)
	}

	run, err := scanRun(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns the newest runs first, optionally filtered by status.
func (r *Repository) List(ctx context.Context, status domain.Status, limit int) ([]domain.Run, error) {
	b := r.db.Builder().
		Select(columns...).
		From(catalog.RunsTable).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(max(limit, 0)))
	if status != "" {
		b = b.Where(sq.Eq{"status": string(status)})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("list runs: build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func (r *Repository) ClaimPending(ctx context.Context) (*domain.Run, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("claim pending: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := r.db.Builder().
		Select("id").
		From(catalog.RunsTable).
		Where(sq.Eq{"status": string(domain.StatusPending)}).
		OrderBy("created_at ASC", "id ASC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("claim pending: build select: %w", err)
	}

	var id string
	err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim pending: select: %w", err)
	}

	query, args, err = r.db.Builder().
		Update(catalog.RunsTable).
		Set("status", string(domain.StatusRunning)).
		Set("updated_at", time.Now().UTC().Format(time.RFC3339)).
		Where(sq.Eq{"id": id, "status": string(domain.StatusPending)}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("claim pending: build update: %w", err)
	}
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("claim pending: update: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("claim pending: commit: %w", err)
	}

	return r.Get(ctx, id)
}

// RecoverStale puts runs left running by a previous process back in the
// queue.
func (r *Repository) RecoverStale(ctx context.Context) (int64, error) {
	query, args, err := r.db.Builder().
		Update(catalog.RunsTable).
		Set("status", string(domain.StatusPending)).
		Set("error", nil).
		Set("updated_at", time.Now().UTC().Format(time.RFC3339)).
		Where(sq.Eq{"status": string(domain.StatusRunning)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("recover stale runs: build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("recover stale runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.Run, error) {
	run := &domain.Run{}
	var trigger, status, createdStr, updatedStr string
	var failures, dbErr sql.NullString

	if err := s.Scan(
		&run.ID, &trigger, &status, &run.MaxInsertsPerTable, &run.MaxInsertsPerRun,
		&run.Inserted, &failures, &dbErr, &createdStr, &updatedStr,
	); err != nil {
		return nil, err
	}

	run.Trigger = domain.Trigger(trigger)
	run.Status = domain.Status(status)
	if dbErr.Valid {
		run.Error = dbErr.String
	}
	if failures.Valid && failures.String != "" {
		if err := json.Unmarshal([]byte(failures.String), &run.Failures); err != nil {
			return nil, fmt.Errorf("decode failures: %w", err)
		}
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
	run.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
	return run, nil
}

func encodeFailures(f []domain.Failure) (sql.NullString, error) {
	if len(f) == 0 {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(f)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode failures: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
