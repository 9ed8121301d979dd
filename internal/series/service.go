package series

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ahmethakanbesel/dailystats/internal/apperror"
	"github.com/ahmethakanbesel/dailystats/internal/catalog"
)

// Snapshotter persists a computed time series for consumers that read files
// instead of querying the store.
type Snapshotter interface {
	Write(ts *Timeseries) error
}

type Service struct {
	repo      Repository
	catalog   catalog.Catalog
	snapshots Snapshotter
	tables    keyedMutex
	now       func() time.Time
}

type Option func(*Service)

// WithSnapshotter stores every computed time series through sn.
func WithSnapshotter(sn Snapshotter) Option {
	return func(s *Service) { s.snapshots = sn }
}

func NewService(repo Repository, c catalog.Catalog, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		catalog: c,
		now:     time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) Catalog() catalog.Catalog { return s.catalog }

// IngestNewest inserts the records of table that are newer than the newest
// stored day, oldest first, stopping after maxInserts rows. It returns how
// many rows were committed, also when it fails part way.
func (s *Service) IngestNewest(ctx context.Context, table string, records []Record, maxInserts int) (int, error) {
	if _, ok := s.catalog.TableCategory(table); !ok {
		return 0, apperror.New(apperror.NotFound, fmt.Sprintf("unknown series table %q", table))
	}
	if maxInserts <= 0 || len(records) == 0 {
		return 0, nil
	}

	s.tables.Lock(table)
	defer s.tables.Unlock(table)

	newest, known, err := s.repo.NewestTimestamp(ctx, table)
	if err != nil {
		return 0, fmt.Errorf("newest timestamp %s: %w", table, err)
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	inserted := 0
	for _, rec := range sorted {
		// Rows are keyed by UTC day, so compare days, not instants.
		day := Day(rec.Timestamp)
		if known && !day.After(newest) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		if err := s.repo.Insert(ctx, table, rec); err != nil {
			return inserted, fmt.Errorf("insert %s %s: %w", table, day.Format(time.DateOnly), err)
		}
		inserted++
		if inserted >= maxInserts {
			break
		}
		newest, known = day, true
	}

	return inserted, nil
}

// Timeseries reads a plottable name over [Begin, End] and derives the
// percent change of its primary field against the previous row.
func (s *Service) Timeseries(ctx context.Context, req TimeseriesRequest) (*Timeseries, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	view, ok := s.catalog.Lookup(req.Name)
	if !ok {
		return nil, apperror.New(apperror.NotFound, fmt.Sprintf("unknown series %q", req.Name))
	}

	begin := req.Begin
	if begin.IsZero() {
		begin = time.Unix(0, 0).UTC()
	}
	end := req.End
	if end.IsZero() {
		end = Day(s.now())
	}

	points, err := s.repo.Range(ctx, view.Table, view.Fields, begin, end)
	if err != nil {
		return nil, fmt.Errorf("range %s: %w", view.Table, err)
	}

	primary := make([]*float64, len(points))
	for i, p := range points {
		primary[i] = p.Values[view.Primary]
	}
	for i, pc := range PercentChanges(primary) {
		points[i].PercentChange = pc
	}

	ts := &Timeseries{
		Name:    view.Name,
		Label:   s.catalog.Label(view.Name),
		Table:   view.Table,
		Fields:  view.Fields,
		Primary: view.Primary,
		Begin:   begin,
		End:     end,
		Points:  points,
	}

	if s.snapshots != nil {
		if err := s.snapshots.Write(ts); err != nil {
			slog.Error("failed to write snapshot", "series", ts.Name, "error", err)
		}
	}

	return ts, nil
}

// PercentChanges returns (cur/prev - 1) * 100 for every element after the
// first. An element is nil when either value is missing or prev is zero.
func PercentChanges(values []*float64) []*float64 {
	out := make([]*float64, len(values))
	for i := 1; i < len(values); i++ {
		prev, cur := values[i-1], values[i]
		if prev == nil || cur == nil || *prev == 0 {
			continue
		}
		pc := (*cur / *prev - 1) * 100
		out[i] = &pc
	}
	return out
}
