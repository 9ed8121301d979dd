package run

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const defaultListLimit = 100

// Notifier is woken after a run is queued.
type Notifier interface {
	Notify()
}

type Service struct {
	repo     Repository
	notifier Notifier

	mu                 sync.RWMutex
	maxInsertsPerTable int
	maxInsertsPerRun   int
}

func NewService(repo Repository, maxInsertsPerTable, maxInsertsPerRun int) *Service {
	return &Service{
		repo:               repo,
		maxInsertsPerTable: maxInsertsPerTable,
		maxInsertsPerRun:   maxInsertsPerRun,
	}
}

// SetNotifier registers the worker pool woken on Submit.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// SetDefaultCaps replaces the caps used by requests that leave them unset.
func (s *Service) SetDefaultCaps(perTable, perRun int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxInsertsPerTable = perTable
	s.maxInsertsPerRun = perRun
}

func (s *Service) DefaultCaps() (perTable, perRun int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxInsertsPerTable, s.maxInsertsPerRun
}

// Submit stores a pending run and wakes the worker pool.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*Run, error) {
	r, err := s.newRun(req)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	slog.Info("run queued", "run", r.ID, "trigger", r.Trigger,
		"maxInsertsPerTable", r.MaxInsertsPerTable, "maxInsertsPerRun", r.MaxInsertsPerRun)

	if s.notifier != nil {
		s.notifier.Notify()
	}
	return r, nil
}

// Execute records a run and processes it in the caller's goroutine. The
// stored run reflects the outcome when Execute returns.
func (s *Service) Execute(ctx context.Context, req SubmitRequest, p Processor) (*Run, error) {
	r, err := s.newRun(req)
	if err != nil {
		return nil, err
	}
	r.Status = StatusRunning
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, err
	}
	if err := p.Process(ctx, r); err != nil {
		return r, err
	}
	return r, nil
}

func (s *Service) newRun(req SubmitRequest) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	perTable, perRun := s.DefaultCaps()
	if req.MaxInsertsPerTable > 0 {
		perTable = req.MaxInsertsPerTable
	}
	if req.MaxInsertsPerRun > 0 {
		perRun = req.MaxInsertsPerRun
	}
	now := time.Now().UTC()
	return &Run{
		ID:                 uuid.New().String(),
		Trigger:            req.Trigger,
		Status:             StatusPending,
		MaxInsertsPerTable: perTable,
		MaxInsertsPerRun:   perRun,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (s *Service) RecoverStaleRuns(ctx context.Context) error {
	n, err := s.repo.RecoverStale(ctx)
	if err != nil {
		return fmt.Errorf("recover stale runs: %w", err)
	}
	if n > 0 {
		slog.Info("re-queued interrupted runs", "count", n)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, req GetRunRequest) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, req.ID)
}

func (s *Service) List(ctx context.Context, req ListRunsRequest) ([]Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	return s.repo.List(ctx, req.Status, limit)
}
