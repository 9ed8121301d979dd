// Package alphavantage fetches daily stock candles from the Alpha Vantage
// TIME_SERIES_DAILY function.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/series"
	"github.com/ahmethakanbesel/dailystats/internal/source"
)

const (
	name            = "alphavantage"
	defaultEndpoint = "https://www.alphavantage.co/query"
	seriesKey       = "Time Series (Daily)"

	// Alpha Vantage quotes prices with four decimal places.
	defaultPrecision = 4
)

type Adapter struct {
	client    source.HTTPClient
	endpoint  string
	apiKey    string
	precision int32
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		client:    http.DefaultClient,
		endpoint:  defaultEndpoint,
		apiKey:    "demo",
		precision: defaultPrecision,
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

func WithAPIKey(key string) Option {
	return func(a *Adapter) { a.apiKey = key }
}

// WithPrecision rounds prices half away from zero to places decimals before
// they become float64. Negative values keep the default.
func WithPrecision(places int32) Option {
	return func(a *Adapter) {
		if places >= 0 {
			a.precision = places
		}
	}
}

func (a *Adapter) Name() string { return name }

// Fetch returns the daily candles Alpha Vantage reports for req.Symbol. The
// compact output covers roughly the last 100 trading days.
func (a *Adapter) Fetch(ctx context.Context, req source.Request) ([]series.Record, error) {
	if req.Symbol == "" {
		return nil, source.Parse(name, errors.New("symbol cannot be empty"))
	}

	q := url.Values{}
	q.Set("function", "TIME_SERIES_DAILY")
	q.Set("symbol", req.Symbol)
	q.Set("datatype", "json")
	q.Set("apikey", a.apiKey)

	body, err := source.Get(ctx, a.client, name, a.endpoint+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp map[string]json.RawMessage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, source.Parse(name, fmt.Errorf("decode response: %w", err))
	}

	raw, ok := resp[seriesKey]
	if !ok {
		return nil, source.Parse(name, fmt.Errorf("%s missing: %s", seriesKey, providerMessage(resp)))
	}

	var days map[string]map[string]string
	if err := json.Unmarshal(raw, &days); err != nil {
		return nil, source.Parse(name, fmt.Errorf("decode %s: %w", seriesKey, err))
	}

	fields := catalog.CandlestickColumns()
	records := make([]series.Record, 0, len(days))
	for date, values := range days {
		ts, err := time.Parse(time.DateOnly, date)
		if err != nil {
			return nil, source.Parse(name, fmt.Errorf("parse date %q: %w", date, err))
		}

		rec := series.Record{Timestamp: ts, Fields: make(map[string]float64, len(fields))}
		for key, v := range values {
			field := normalizeKey(key)
			if !slices.Contains(fields, field) {
				continue
			}
			d, err := decimal.NewFromString(v)
			if err != nil {
				return nil, source.Parse(name, fmt.Errorf("parse %s on %s: %w", key, date, err))
			}
			if d.IsNegative() {
				return nil, source.Parse(name, fmt.Errorf("negative %s on %s: %s", key, date, v))
			}
			rec.Fields[field] = d.Round(a.precision).InexactFloat64()
		}
		records = append(records, rec)
	}

	slices.SortFunc(records, func(x, y series.Record) int { return x.Timestamp.Compare(y.Timestamp) })

	slog.Info("retrieved alphavantage data", "symbol", req.Symbol, "count", len(records))
	return records, nil
}

// normalizeKey maps "1. open" to "open".
func normalizeKey(key string) string {
	if _, after, ok := strings.Cut(key, ". "); ok {
		return after
	}
	return key
}

// providerMessage extracts the explanation Alpha Vantage sends instead of
// data when a request is rejected or throttled.
func providerMessage(resp map[string]json.RawMessage) string {
	for _, k := range []string{"Error Message", "Note", "Information"} {
		raw, ok := resp[k]
		if !ok {
			continue
		}
		var msg string
		if err := json.Unmarshal(raw, &msg); err == nil {
			return msg
		}
	}
	return "no message"
}
