// Package run tracks ingestion passes: who asked for them, the caps they ran
// with, and what they inserted.
package run

import (
	"time"

	"github.com/ahmethakanbesel/dailystats/internal/apperror"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Trigger string

const (
	TriggerCLI      Trigger = "cli"
	TriggerAPI      Trigger = "api"
	TriggerSchedule Trigger = "schedule"
)

// Failure records a series that could not be ingested during a run.
// Code is UPSTREAM when the provider could not be fetched and INTERNAL when
// storing the rows failed.
type Failure struct {
	Table string        `json:"table"`
	Code  apperror.Code `json:"code"`
	Error string        `json:"error"`
}

type Run struct {
	ID                 string    `json:"id"`
	Trigger            Trigger   `json:"trigger"`
	Status             Status    `json:"status"`
	MaxInsertsPerTable int       `json:"maxInsertsPerTable"`
	MaxInsertsPerRun   int       `json:"maxInsertsPerRun"`
	Inserted           int       `json:"inserted"`
	Failures           []Failure `json:"failures,omitempty"`
	Error              string    `json:"error,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
