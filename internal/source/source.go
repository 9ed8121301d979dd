// Package source defines how provider data enters the pipeline: adapters
// fetch one provider's history and normalise it into series records.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ahmethakanbesel/dailystats/internal/catalog"
	"github.com/ahmethakanbesel/dailystats/internal/series"
)

type Request struct {
	Symbol string    // ignored by adapters serving a single dataset
	Limit  int       // lookback window in days, where the provider takes one
	ToTime time.Time // newest day to return; zero means now
}

type Adapter interface {
	Name() string
	Fetch(ctx context.Context, req Request) ([]series.Record, error)
}

type Kind string

const (
	KindTransport Kind = "transport"
	KindStatus    Kind = "status"
	KindParse     Kind = "parse"
)

// FetchError reports why an adapter produced no records.
type FetchError struct {
	Kind    Kind
	Adapter string
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Adapter, e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Transport, Status and Parse build FetchErrors of the matching kind.
func Transport(adapter string, err error) *FetchError {
	return &FetchError{Kind: KindTransport, Adapter: adapter, Err: err}
}

func Status(adapter string, code int) *FetchError {
	return &FetchError{Kind: KindStatus, Adapter: adapter, Err: fmt.Errorf("unexpected HTTP %d", code)}
}

func Parse(adapter string, err error) *FetchError {
	return &FetchError{Kind: KindParse, Adapter: adapter, Err: err}
}

// AsFetchError returns the FetchError in err's chain, if any.
func AsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// Registry maps catalog categories to the adapter serving them.
type Registry struct {
	mu       sync.RWMutex
	adapters map[catalog.Category]Adapter
}

func NewRegistry() *Registry {
	return &Registry{
		adapters: make(map[catalog.Category]Adapter),
	}
}

func (r *Registry) Register(cat catalog.Category, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[cat] = a
}

func (r *Registry) Get(cat catalog.Category) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[cat]
	if !ok {
		return nil, fmt.Errorf("no adapter registered for %s", cat)
	}
	return a, nil
}

func (r *Registry) Categories() []catalog.Category {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cats := make([]catalog.Category, 0, len(r.adapters))
	for c := range r.adapters {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}
