// Package ingest drives one ingestion pass: for every catalog series it
// fetches provider history and commits the days not yet stored, within the
// per-table and per-run insert caps.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmethakanbesel/dailystats/internal/apperror"
	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/run"
	"github.com/ahmethakanbesel/dailystats/internal/series"
	"github.com/ahmethakanbesel/dailystats/internal/source"
)

type Caps struct {
	PerTable int
	PerRun   int
}

type Summary struct {
	Inserted int
	Failures []run.Failure
}

type Runner struct {
	series      *series.Service
	adapters    *source.Registry
	cryptoLimit int
}

type Option func(*Runner)

// WithCryptoLimit sets the lookback in days requested from the crypto
// adapter.
func WithCryptoLimit(days int) Option {
	return func(r *Runner) { r.cryptoLimit = days }
}

func NewRunner(svc *series.Service, adapters *source.Registry, opts ...Option) *Runner {
	r := &Runner{
		series:      svc,
		adapters:    adapters,
		cryptoLimit: 365,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Pass ingests every catalog series in order. A series that fails to fetch
// or store is recorded in the summary and the pass moves on. The returned
// error is only set when ctx ends the pass early.
func (r *Runner) Pass(ctx context.Context, caps Caps) (Summary, error) {
	var sum Summary
	c := r.series.Catalog()
	start := time.Now()

	for _, table := range c.Tables() {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		remaining := caps.PerRun - sum.Inserted
		if remaining <= 0 {
			slog.Info("run cap reached, skipping remaining series", "table", table, "inserted", sum.Inserted)
			break
		}
		limit := min(caps.PerTable, remaining)

		n, err := r.ingestTable(ctx, c, table, limit)
		sum.Inserted += n
		if err != nil {
			if ctx.Err() != nil {
				return sum, ctx.Err()
			}
			slog.Error("series ingestion failed", "table", table, "inserted", n, "error", err)
			sum.Failures = append(sum.Failures, run.Failure{Table: table, Code: failureCode(err), Error: err.Error()})
			continue
		}
		slog.Info("series ingested", "table", table, "inserted", n)
	}

	slog.Info("ingestion pass finished", "inserted", sum.Inserted, "failures", len(sum.Failures),
		"duration", time.Since(start))
	return sum, nil
}

// failureCode classifies a series failure for the run record.
func failureCode(err error) apperror.Code {
	if _, ok := source.AsFetchError(err); ok {
		return apperror.Upstream
	}
	if ae, ok := apperror.As(err); ok {
		return ae.Code()
	}
	return apperror.Internal
}

func (r *Runner) ingestTable(ctx context.Context, c catalog.Catalog, table string, limit int) (int, error) {
	cat, ok := c.TableCategory(table)
	if !ok {
		return 0, fmt.Errorf("unknown table %q", table)
	}
	adapter, err := r.adapters.Get(cat)
	if err != nil {
		return 0, err
	}

	req := source.Request{Symbol: table}
	switch cat {
	case catalog.Covid:
		req.Symbol = ""
	case catalog.Crypto:
		req.Limit = r.cryptoLimit
	}

	records, err := adapter.Fetch(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("fetch %s: %w", table, err)
	}
	return r.series.IngestNewest(ctx, table, records, limit)
}

// Processor executes queued runs with the runner and records the outcome.
type Processor struct {
	runner *Runner
	runs   run.Repository
}

func NewProcessor(runner *Runner, runs run.Repository) *Processor {
	return &Processor{runner: runner, runs: runs}
}

func (p *Processor) Process(ctx context.Context, r *run.Run) error {
	r.Status = run.StatusRunning
	if err := p.runs.Update(ctx, r); err != nil {
		return err
	}

	sum, err := p.runner.Pass(ctx, Caps{PerTable: r.MaxInsertsPerTable, PerRun: r.MaxInsertsPerRun})
	r.Inserted = sum.Inserted
	r.Failures = sum.Failures

	switch {
	case err != nil:
		r.Status = run.StatusFailed
		r.Error = err.Error()
	case len(sum.Failures) > 0:
		r.Status = run.StatusFailed
		r.Error = fmt.Sprintf("%d series failed", len(sum.Failures))
	default:
		r.Status = run.StatusCompleted
	}

	// The run row must be written even when ctx was cancelled mid-pass.
	if uerr := p.runs.Update(context.WithoutCancel(ctx), r); uerr != nil {
		return uerr
	}
	if r.Status == run.StatusFailed {
		return fmt.Errorf("run %s: %s", r.ID, r.Error)
	}
	return nil
}
