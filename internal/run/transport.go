package run

import (
	"github.com/google/uuid"

	"github.com/ahmethakanbesel/dailystats/internal/apperror"
)

// SubmitRequest queues a run. Zero caps fall back to the configured defaults.
type SubmitRequest struct {
	Trigger            Trigger `json:"-"`
	MaxInsertsPerTable int     `json:"maxInsertsPerTable"`
	MaxInsertsPerRun   int     `json:"maxInsertsPerRun"`
}

func (r SubmitRequest) Validate() *apperror.AppError {
	if r.MaxInsertsPerTable < 0 || r.MaxInsertsPerRun < 0 {
		return apperror.New(apperror.BadRequest, "insert caps must not be negative")
	}
	switch r.Trigger {
	case TriggerCLI, TriggerAPI, TriggerSchedule:
	default:
		return apperror.New(apperror.BadRequest, "unknown trigger")
	}
	return nil
}

type GetRunRequest struct {
	ID string
}

func (r GetRunRequest) Validate() *apperror.AppError {
	if _, err := uuid.Parse(r.ID); err != nil {
		return apperror.New(apperror.BadRequest, "invalid run id")
	}
	return nil
}

type ListRunsRequest struct {
	Status Status
	Limit  int
}

func (r ListRunsRequest) Validate() *apperror.AppError {
	switch r.Status {
	case "", StatusPending, StatusRunning, StatusCompleted, StatusFailed:
	default:
		return apperror.New(apperror.BadRequest, "unknown status")
	}
	if r.Limit < 0 {
		return apperror.New(apperror.BadRequest, "limit must not be negative")
	}
	return nil
}
