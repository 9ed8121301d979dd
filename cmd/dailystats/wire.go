package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/config"
	"github.com/ahmethakanbesel/dailystats/internal/ingest"
	"github.com/ahmethakanbesel/dailystats/internal/platform/sqldb"
	"github.com/ahmethakanbesel/dailystats/internal/report"
	runrepo "github.com/ahmethakanbesel/dailystats/internal/repository/run"
	seriesrepo "github.com/ahmethakanbesel/dailystats/internal/repository/series"
	"github.com/ahmethakanbesel/dailystats/internal/run"
	"github.com/ahmethakanbesel/dailystats/internal/schema"
	"github.com/ahmethakanbesel/dailystats/internal/series"
	"github.com/ahmethakanbesel/dailystats/internal/source"
	"github.com/ahmethakanbesel/dailystats/internal/source/alphavantage"
	"github.com/ahmethakanbesel/dailystats/internal/source/covidtracking"
	"github.com/ahmethakanbesel/dailystats/internal/source/cryptocompare"
)

// app holds the wired services shared by every command.
type app struct {
	cfg       config.Config
	db        *sqldb.DB
	seriesSvc *series.Service
	runRepo   *runrepo.Repository
	runSvc    *run.Service
	runner    *ingest.Runner
}

func build(ctx context.Context, cfg config.Config) (*app, error) {
	db, err := sqldb.Open(cfg.DB.Driver, cfg.DB.DSN)
	if err != nil {
		return nil, err
	}

	created, err := schema.InitializeIfAbsent(ctx, db, cfg.Catalog)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if !created {
		slog.Debug("schema already present", "dsn", cfg.DB.DSN)
	}

	snapshots := report.NewWriter(cfg.Report.Dir, report.WithCompression(cfg.Report.Compress))
	seriesSvc := series.NewService(
		seriesrepo.NewRepository(db, cfg.Catalog),
		cfg.Catalog,
		series.WithSnapshotter(snapshots),
	)

	runRepo := runrepo.NewRepository(db)
	return &app{
		cfg:       cfg,
		db:        db,
		seriesSvc: seriesSvc,
		runRepo:   runRepo,
		runSvc:    run.NewService(runRepo, cfg.Ingest.MaxInsertsPerTable, cfg.Ingest.MaxInsertsPerRun),
		runner:    ingest.NewRunner(seriesSvc, adapters(cfg), ingest.WithCryptoLimit(cfg.Ingest.CryptoLimit)),
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

func adapters(cfg config.Config) *source.Registry {
	client := &http.Client{Timeout: cfg.HTTP.Timeout}
	policy := source.RetryPolicy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Delay:       cfg.Retry.Delay,
		Multiplier:  cfg.Retry.Multiplier,
	}
	p := cfg.Providers

	reg := source.NewRegistry()
	reg.Register(catalog.Covid, source.WithRetry(covidtracking.New(
		covidtracking.WithClient(client),
		covidtracking.WithEndpoint(p.CovidTracking.Endpoint),
		covidtracking.WithFields(cfg.Catalog.CovidFields()),
	), policy))
	reg.Register(catalog.Crypto, source.WithRetry(cryptocompare.New(
		cryptocompare.WithClient(client),
		cryptocompare.WithEndpoint(p.CryptoCompare.Endpoint),
		cryptocompare.WithCurrency(p.CryptoCompare.Currency),
		cryptocompare.WithExchange(p.CryptoCompare.Exchange),
		cryptocompare.WithWorkers(p.CryptoCompare.Workers),
	), policy))
	reg.Register(catalog.Stock, source.WithRetry(alphavantage.New(
		alphavantage.WithClient(client),
		alphavantage.WithEndpoint(p.AlphaVantage.Endpoint),
		alphavantage.WithAPIKey(p.AlphaVantage.APIKey),
		alphavantage.WithPrecision(p.AlphaVantage.Precision),
	), policy))
	return reg
}

func openApp(ctx context.Context, loader *config.Loader) (*app, error) {
	cfg, err := loader.Config()
	if err != nil {
		return nil, err
	}
	setupLogger(cfg.Log)

	a, err := build(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return a, nil
}
