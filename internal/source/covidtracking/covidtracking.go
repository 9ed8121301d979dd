// Package covidtracking fetches the US daily epidemiological counters
// published by The COVID Tracking Project.
package covidtracking

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/series"
	"github.com/ahmethakanbesel/dailystats/internal/source"
)

const (
	name            = "covidtracking"
	defaultEndpoint = "https://covidtracking.com/api/v1/us/daily.json"
)

type Adapter struct {
	client   source.HTTPClient
	endpoint string
	fields   []string
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		client:   http.DefaultClient,
		endpoint: defaultEndpoint,
		fields:   catalog.Default().CovidFields(),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type Option func(*Adapter)

func WithClient(c source.HTTPClient) Option {
	return func(a *Adapter) { a.client = c }
}

func WithEndpoint(url string) Option {
	return func(a *Adapter) { a.endpoint = url }
}

// WithFields limits the kept counters to fields.
func WithFields(fields []string) Option {
	return func(a *Adapter) { a.fields = fields }
}

func (a *Adapter) Name() string { return name }

// Fetch returns one record per reported day. The request is ignored: the
// dataset is a single national series delivered in full.
func (a *Adapter) Fetch(ctx context.Context, _ source.Request) ([]series.Record, error) {
	body, err := source.Get(ctx, a.client, name, a.endpoint)
	if err != nil {
		return nil, err
	}

	var days []map[string]any
	if err := json.Unmarshal(body, &days); err != nil {
		return nil, source.Parse(name, fmt.Errorf("decode daily.json: %w", err))
	}

	records := make([]series.Record, 0, len(days))
	for _, d := range days {
		ts, ok := dateChecked(d["dateChecked"])
		if !ok {
			slog.Warn("skipping covid entry without usable dateChecked", "value", d["dateChecked"])
			continue
		}

		fields := make(map[string]float64, len(a.fields))
		for _, f := range a.fields {
			if v, ok := d[f].(float64); ok {
				fields[f] = v
			}
		}
		records = append(records, series.Record{Timestamp: ts, Fields: fields})
	}

	slog.Info("retrieved covidtracking data", "count", len(records))
	return records, nil
}

// dateChecked keeps the calendar day of an ISO timestamp. The provider emits
// values like "2021-03-07T24:00:00Z" that a strict RFC 3339 parse rejects.
func dateChecked(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || len(s) < len(time.DateOnly) {
		return time.Time{}, false
	}
	t, err := time.Parse(time.DateOnly, s[:len(time.DateOnly)])
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
