package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/ahmethakanbesel/dailystats/internal/config"
	"github.com/ahmethakanbesel/dailystats/internal/report"
	"github.com/ahmethakanbesel/dailystats/internal/series"
)

func runReport(loader *config.Loader, args []string, stdout io.Writer) error {
	fs := pflag.NewFlagSet("report", pflag.ContinueOnError)
	begin := fs.String("begin", "", "first day, YYYY-MM-DD (default: earliest)")
	end := fs.String("end", "", "last day, YYYY-MM-DD (default: today)")
	format := fs.String("format", "json", "output format: json or csv")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("report needs exactly one series name")
	}

	req := series.TimeseriesRequest{Name: fs.Arg(0), Format: *format}
	var err error
	if req.Begin, err = parseDay(*begin); err != nil {
		return fmt.Errorf("invalid --begin: %w", err)
	}
	if req.End, err = parseDay(*end); err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	ctx := context.Background()
	a, err := openApp(ctx, loader)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	ts, err := a.seriesSvc.Timeseries(ctx, req)
	if err != nil {
		return err
	}

	if req.Format == "csv" {
		return report.WriteCSV(stdout, ts)
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(ts)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}
