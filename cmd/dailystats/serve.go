package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/ahmethakanbesel/dailystats/internal/config"
	"github.com/ahmethakanbesel/dailystats/internal/ingest"
	"github.com/ahmethakanbesel/dailystats/internal/run"
	"github.com/ahmethakanbesel/dailystats/internal/server"
)

func runServe(loader *config.Loader, args []string) error {
	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	port := fs.String("port", "", "HTTP port (overrides server.port)")
	noSchedule := fs.Bool("no-schedule", false, "do not queue runs on ingest.schedule")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.Changed("port") {
		loader.Override("server.port", *port)
	}

	// Root context: cancelled on SIGINT/SIGTERM so in-flight fetches stop
	// promptly during graceful shutdown.
	rootCtx, rootCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer rootCancel()

	a, err := openApp(rootCtx, loader)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// Worker pool: a single worker so passes never overlap.
	pool := run.NewWorkerPool(a.runRepo, ingest.NewProcessor(a.runner, a.runRepo), 1)
	a.runSvc.SetNotifier(pool)
	poolDone := make(chan struct{})
	go func() {
		pool.Run(rootCtx)
		close(poolDone)
	}()

	if err := a.runSvc.RecoverStaleRuns(rootCtx); err != nil {
		slog.Error("failed to recover stale runs", "error", err)
	}
	pool.Notify()

	if !*noSchedule && a.cfg.Ingest.Schedule != "" {
		sched, err := run.NewScheduler(rootCtx, a.cfg.Ingest.Schedule, a.runSvc)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
		slog.Info("ingest scheduled", "schedule", a.cfg.Ingest.Schedule)
	}

	loader.Watch(func(c config.Config) {
		a.runSvc.SetDefaultCaps(c.Ingest.MaxInsertsPerTable, c.Ingest.MaxInsertsPerRun)
		slog.Info("insert caps updated",
			"maxInsertsPerTable", c.Ingest.MaxInsertsPerTable, "maxInsertsPerRun", c.Ingest.MaxInsertsPerRun)
	})

	srv := server.New(rootCtx, a.cfg.Server.Port, a.seriesSvc, a.runSvc)
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	slog.Info("server started", "port", a.cfg.Server.Port)
	select {
	case <-rootCtx.Done():
	case err := <-serveErr:
		rootCancel()
		<-poolDone
		return err
	}

	// Wait for the worker to drain before shutting down HTTP.
	<-poolDone

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
