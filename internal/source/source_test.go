package source

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/series"
)

type fakeAdapter struct {
	name     string
	failures int
	calls    int
	err      error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(_ context.Context, _ Request) ([]series.Record, error) {
	f.calls++
	if f.calls <= f.failures {
		if f.err != nil {
			return nil, f.err
		}
		return nil, Status(f.name, 503)
	}
	return []series.Record{{Timestamp: date(1, 1), Fields: map[string]float64{"close": 1}}}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	crypto := &fakeAdapter{name: "cryptocompare"}
	r.Register(catalog.Crypto, crypto)
	r.Register(catalog.Covid, &fakeAdapter{name: "covidtracking"})

	got, err := r.Get(catalog.Crypto)
	require.NoError(t, err)
	assert.Equal(t, "cryptocompare", got.Name())

	_, err = r.Get(catalog.Stock)
	assert.Error(t, err)

	assert.Equal(t, []catalog.Category{catalog.Covid, catalog.Crypto}, r.Categories())
}

func TestFetchError(t *testing.T) {
	err := fmt.Errorf("fetch BTC: %w", Parse("cryptocompare", errors.New("rate limit")))

	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindParse, fe.Kind)
	assert.Equal(t, "cryptocompare", fe.Adapter)
	assert.Contains(t, err.Error(), "rate limit")

	_, ok = AsFetchError(errors.New("plain"))
	assert.False(t, ok)
}

func TestWithRetry_SucceedsAfterFailures(t *testing.T) {
	inner := &fakeAdapter{name: "x", failures: 2}
	a := WithRetry(inner, RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond})

	recs, err := a.Fetch(context.Background(), Request{Symbol: "BTC"})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "x", a.Name())
}

func TestWithRetry_ExhaustedReturnsLastError(t *testing.T) {
	inner := &fakeAdapter{name: "x", failures: 5}
	a := WithRetry(inner, RetryPolicy{MaxAttempts: 2, Delay: time.Millisecond, Multiplier: 2})

	_, err := a.Fetch(context.Background(), Request{})
	require.Error(t, err)
	fe, ok := AsFetchError(err)
	require.True(t, ok)
	assert.Equal(t, KindStatus, fe.Kind)
	assert.Equal(t, 2, inner.calls)
}

func TestWithRetry_StopsOnCancel(t *testing.T) {
	inner := &fakeAdapter{name: "x", failures: 5}
	a := WithRetry(inner, RetryPolicy{MaxAttempts: 5, Delay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Fetch(ctx, Request{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, inner.calls)
}

func TestWithRetry_ZeroAttemptsStillTriesOnce(t *testing.T) {
	inner := &fakeAdapter{name: "x"}
	a := WithRetry(inner, RetryPolicy{})

	_, err := a.Fetch(context.Background(), Request{})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestRetryPolicy_BackOffSchedule(t *testing.T) {
	b := RetryPolicy{MaxAttempts: 4, Delay: time.Second, Multiplier: 2}.backOff(context.Background())
	b.Reset()

	assert.Equal(t, time.Second, b.NextBackOff())
	assert.Equal(t, 2*time.Second, b.NextBackOff())
	assert.Equal(t, 4*time.Second, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}

func TestWithRetry_SingleAttemptDoesNotRetry(t *testing.T) {
	inner := &fakeAdapter{name: "x", failures: 5}
	a := WithRetry(inner, RetryPolicy{MaxAttempts: 1, Delay: time.Millisecond})

	_, err := a.Fetch(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, inner.calls)
}
