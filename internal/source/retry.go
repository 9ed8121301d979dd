package source

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ahmethakanbesel/dailystats/internal/series"
)

type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64
}

// DefaultRetryPolicy waits 10s between three attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: 10 * time.Second, Multiplier: 1}
}

// backOff builds a fresh schedule for one Fetch; ExponentialBackOff is not
// safe for concurrent use.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOffContext {
	if p.MaxAttempts <= 1 {
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Delay
	b.Multiplier = p.Multiplier
	b.RandomizationFactor = 0
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.MaxAttempts-1)), ctx)
}

type retrying struct {
	next   Adapter
	policy RetryPolicy
}

// WithRetry re-issues failed fetches of next according to policy. The last
// error is returned once attempts run out.
func WithRetry(next Adapter, policy RetryPolicy) Adapter {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.Multiplier < 1 {
		policy.Multiplier = 1
	}
	return &retrying{next: next, policy: policy}
}

func (r *retrying) Name() string { return r.next.Name() }

func (r *retrying) Fetch(ctx context.Context, req Request) ([]series.Record, error) {
	attempt := 0
	fetch := func() ([]series.Record, error) {
		attempt++
		return r.next.Fetch(ctx, req)
	}
	notify := func(err error, delay time.Duration) {
		slog.Warn("fetch failed, retrying", "adapter", r.next.Name(), "symbol", req.Symbol,
			"attempt", attempt, "delay", delay, "error", err)
	}

	recs, err := backoff.RetryNotifyWithData(fetch, r.policy.backOff(ctx), notify)
	if err != nil {
		return nil, err
	}
	return recs, nil
}
