package series

import (
	"time"

	"github.com/ahmethakanbesel/dailystats/internal/apperror"
)

type TimeseriesRequest struct {
	Name   string
	Begin  time.Time
	End    time.Time
	Format string // "json" or "csv"
}

func (r TimeseriesRequest) Validate() *apperror.AppError {
	if r.Name == "" {
		return apperror.New(apperror.BadRequest, "series name is required")
	}
	if !r.Begin.IsZero() && !r.End.IsZero() && r.End.Before(r.Begin) {
		return apperror.New(apperror.BadRequest, "end must not be before begin")
	}
	if r.Format != "" && r.Format != "json" && r.Format != "csv" {
		return apperror.New(apperror.BadRequest, "format must be json or csv")
	}
	return nil
}
