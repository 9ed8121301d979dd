// Package cryptocompare fetches daily OHLC candles from the CryptoCompare
// histoday endpoint.
package cryptocompare

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/series"
	"github.com/ahmethakanbesel/dailystats/internal/source"
)

const (
	name            = "cryptocompare"
	defaultEndpoint = "https://min-api.cryptocompare.com/data/histoday"
	defaultLimit    = 365
	pageSize        = 2000
)

type candle struct {
	Time  int64   `json:"time"`
	Open  float64 `json:"open"`
	Close float64 `json:"close"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
}

type histodayResponse struct {
	Response string          `json:"Response"`
	Message  string          `json:"Message"`
	Data     json.RawMessage `json:"Data"`
}

type Adapter struct {
	workers  int
	client   source.HTTPClient
	endpoint string
	currency string
	exchange string
	now      func() time.Time
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		workers:  4,
		client:   http.DefaultClient,
		endpoint: defaultEndpoint,
		currency: "USD",
		exchange: "CCCAGG",
		now:      time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

type Option func(*Adapter)

// WithWorkers sets how many pages are fetched concurrently.
func WithWorkers(n int) Option {
	return func(a *Adapter) { a.workers = n }
}

func WithClient(c source.HTTPClient) Option {
	return func(a *Adapter) { a.client = c }
}

func WithEndpoint(url string) Option {
	return func(a *Adapter) { a.endpoint = url }
}

// WithCurrency sets the quote currency (tsym).
func WithCurrency(cur string) Option {
	return func(a *Adapter) { a.currency = cur }
}

// WithExchange sets the exchange the candles are aggregated from (e).
func WithExchange(e string) Option {
	return func(a *Adapter) { a.exchange = e }
}

func (a *Adapter) Name() string { return name }

// Fetch returns up to req.Limit days of candles for req.Symbol ending at
// req.ToTime, oldest first.
func (a *Adapter) Fetch(ctx context.Context, req source.Request) ([]series.Record, error) {
	if req.Symbol == "" {
		return nil, source.Parse(name, errors.New("symbol cannot be empty"))
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	to := req.ToTime
	if to.IsZero() {
		to = a.now()
	}

	pages := source.SplitLookback(to, limit, pageSize)
	results := make([][]series.Record, len(pages))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(a.workers, 1))

	for i, p := range pages {
		i, p := i, p
		g.Go(func() error {
			recs, err := a.fetchPage(gctx, req.Symbol, p)
			if err != nil {
				slog.Error("error retrieving cryptocompare data", "symbol", req.Symbol,
					"toTs", p.To.Unix(), "limit", p.Limit, "error", err)
				return err
			}
			results[i] = recs
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[time.Time]bool)
	var all []series.Record
	for _, recs := range results {
		for _, r := range recs {
			if seen[r.Timestamp] {
				continue
			}
			seen[r.Timestamp] = true
			all = append(all, r)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })

	slog.Info("retrieved cryptocompare data", "symbol", req.Symbol, "pages", len(pages), "count", len(all))
	return all, nil
}

func (a *Adapter) fetchPage(ctx context.Context, symbol string, p source.Page) ([]series.Record, error) {
	q := url.Values{}
	q.Set("fsym", symbol)
	q.Set("tsym", a.currency)
	q.Set("e", a.exchange)
	q.Set("limit", strconv.Itoa(p.Limit))
	q.Set("toTs", strconv.FormatInt(p.To.Unix(), 10))
	q.Set("sign", "true")

	body, err := source.Get(ctx, a.client, name, a.endpoint+"?"+q.Encode())
	if err != nil {
		return nil, err
	}

	var resp histodayResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, source.Parse(name, fmt.Errorf("decode histoday: %w", err))
	}
	if resp.Response == "Error" {
		return nil, source.Parse(name, fmt.Errorf("provider error: %s", resp.Message))
	}

	var candles []candle
	if err := json.Unmarshal(resp.Data, &candles); err != nil {
		return nil, source.Parse(name, fmt.Errorf("decode histoday data: %w", err))
	}

	fields := catalog.CandlestickColumns()
	recs := make([]series.Record, 0, len(candles))
	for _, c := range candles {
		values := [...]float64{c.Open, c.Close, c.High, c.Low}
		rec := series.Record{
			Timestamp: series.Day(time.Unix(c.Time, 0)),
			Fields:    make(map[string]float64, len(fields)),
		}
		for i, f := range fields {
			rec.Fields[f] = values[i]
		}
		recs = append(recs, rec)
	}
	return recs, nil
}
