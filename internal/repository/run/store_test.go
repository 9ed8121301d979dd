package run

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/dailystats/internal/apperror"
	"github.com/ahmethakanbesel/dailystats/internal/platform/sqldb"
	domain "github.com/ahmethakanbesel/dailystats/internal/run"
)

func setupTestDB(t *testing.T) *sqldb.DB {
	t.Helper()
	db, err := sqldb.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRun(status domain.Status, created time.Time) *domain.Run {
	return &domain.Run{
		ID:                 uuid.New().String(),
		Trigger:            domain.TriggerAPI,
		Status:             status,
		MaxInsertsPerTable: 10,
		MaxInsertsPerRun:   100,
		CreatedAt:          created,
	}
}

func TestCreate_And_Get(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	r := newRun(domain.StatusPending, time.Time{})
	require.NoError(t, repo.Create(ctx, r))

	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TriggerAPI, got.Trigger)
	assert.Equal(t, domain.StatusPending, got.Status)
	assert.Equal(t, 10, got.MaxInsertsPerTable)
	assert.Equal(t, 100, got.MaxInsertsPerRun)
	assert.Empty(t, got.Failures)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestGet_NotFound(t *testing.T) {
	repo := NewRepository(setupTestDB(t))

	_, err := repo.Get(context.Background(), uuid.New().String())
	ae, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.NotFound, ae.Code())
}

func TestUpdate(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	r := newRun(domain.StatusRunning, time.Time{})
	require.NoError(t, repo.Create(ctx, r))

	r.Status = domain.StatusFailed
	r.Inserted = 42
	r.Failures = []domain.Failure{{Table: "AAPL", Code: apperror.Upstream, Error: "alphavantage: parse error: throttled"}}
	r.Error = "1 series failed"
	require.NoError(t, repo.Update(ctx, r))

	got, err := repo.Get(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, got.Status)
	assert.Equal(t, 42, got.Inserted)
	assert.Equal(t, r.Failures, got.Failures)
	assert.Equal(t, "1 series failed", got.Error)
}

func TestClaimPending_OldestFirst(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	newer := newRun(domain.StatusPending, base.Add(time.Hour))
	older := newRun(domain.StatusPending, base)
	require.NoError(t, repo.Create(ctx, newer))
	require.NoError(t, repo.Create(ctx, older))

	got, err := repo.ClaimPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, older.ID, got.ID)
	assert.Equal(t, domain.StatusRunning, got.Status)

	got, err = repo.ClaimPending(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, newer.ID, got.ID)

	got, err = repo.ClaimPending(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecoverStale(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	stale := newRun(domain.StatusRunning, time.Time{})
	done := newRun(domain.StatusCompleted, time.Time{})
	require.NoError(t, repo.Create(ctx, stale))
	require.NoError(t, repo.Create(ctx, done))

	n, err := repo.RecoverStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestList(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, st := range []domain.Status{domain.StatusCompleted, domain.StatusFailed, domain.StatusCompleted} {
		require.NoError(t, repo.Create(ctx, newRun(st, base.Add(time.Duration(i)*time.Hour))))
	}

	all, err := repo.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[2].CreatedAt), "newest first")

	completed, err := repo.List(ctx, domain.StatusCompleted, 10)
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	limited, err := repo.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
