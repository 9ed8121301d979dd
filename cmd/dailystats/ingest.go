package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/ahmethakanbesel/dailystats/internal/config"
	"github.com/ahmethakanbesel/dailystats/internal/ingest"
	"github.com/ahmethakanbesel/dailystats/internal/run"
)

func runIngest(loader *config.Loader, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("ingest", pflag.ContinueOnError)
	dsn := fs.String("db", "", "database DSN (overrides db.dsn)")
	perTable := fs.Int("max-inserts-per-table", 0, "insert cap per series (overrides ingest.max_inserts_per_table)")
	perRun := fs.Int("max-inserts-per-run", 0, "insert cap for the whole pass (overrides ingest.max_inserts_per_run)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.Changed("db") {
		loader.Override("db.dsn", *dsn)
	}
	if fs.Changed("max-inserts-per-table") {
		loader.Override("ingest.max_inserts_per_table", *perTable)
	}
	if fs.Changed("max-inserts-per-run") {
		loader.Override("ingest.max_inserts_per_run", *perRun)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx, loader)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	r, err := a.runSvc.Execute(ctx, run.SubmitRequest{Trigger: run.TriggerCLI}, ingest.NewProcessor(a.runner, a.runRepo))
	if r != nil {
		_, _ = fmt.Fprintf(stdout, "SUCCESSFULLY INSERTED %d Items!\n", r.Inserted)
		if r.Inserted > r.MaxInsertsPerRun {
			return fmt.Errorf("inserted %d rows, above the run cap of %d", r.Inserted, r.MaxInsertsPerRun)
		}
	}
	return err
}
