package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/ahmethakanbesel/dailystats/internal/config"
)

const usage = `usage: dailystats [--config file] <command> [flags]

commands:
  ingest   fetch every catalog series once and store the new days
  serve    run the HTTP API, the run worker and the ingest schedule
  report   compute one time series, write its snapshot and print it
`

func main() {
	if err := runCLI(os.Args[1:], os.Stdout); err != nil {
		slog.Error("dailystats failed", "error", err)
		os.Exit(1)
	}
}

func runCLI(args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("dailystats", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.Usage = func() { _, _ = fmt.Fprint(os.Stderr, usage) }
	configPath := fs.String("config", "", "path to a YAML, TOML or JSON config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}

	loader, err := config.New(*configPath)
	if err != nil {
		return err
	}

	cmd, rest := fs.Arg(0), fs.Args()[1:]
	switch cmd {
	case "ingest":
		return runIngest(loader, rest, stdout)
	case "serve":
		return runServe(loader, rest)
	case "report":
		return runReport(loader, rest, stdout)
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// setupLogger installs the configured slog handler as the default logger.
func setupLogger(c config.LogConfig) {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	var h slog.Handler
	if c.Format == "json" {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}
