package run

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Scheduler queues an ingestion run on a cron expression.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler validates spec and registers the submit function. The
// returned scheduler does nothing until Start.
func NewScheduler(ctx context.Context, spec string, svc *Service) (*Scheduler, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		slog.Info("scheduler: queueing run", "schedule", spec)
		if _, err := svc.Submit(ctx, SubmitRequest{Trigger: TriggerSchedule}); err != nil {
			slog.Error("scheduler: queue run", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop halts the schedule and waits for a firing submit to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
