package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/ahmethakanbesel/dailystats/internal/run"
	"github.com/ahmethakanbesel/dailystats/internal/series"
)

type handler struct {
	seriesSvc *series.Service
	runSvc    *run.Service
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) getCatalog(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.seriesSvc.Catalog())
}

func (h *handler) getTimeseries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := series.TimeseriesRequest{
		Name:   mux.Vars(r)["name"],
		Format: q.Get("format"),
	}

	var err error
	if req.Begin, err = parseDate(q.Get("begin")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid begin format, expected YYYY-MM-DD")
		return
	}
	if req.End, err = parseDate(q.Get("end")); err != nil {
		writeError(w, http.StatusBadRequest, "invalid end format, expected YYYY-MM-DD")
		return
	}

	if appErr := req.Validate(); appErr != nil {
		writeError(w, appErr.HTTPStatus(), appErr.Message())
		return
	}

	ts, err := h.seriesSvc.Timeseries(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}

	if req.Format == "csv" {
		writeCSV(w, ts)
		return
	}
	writeJSON(w, http.StatusOK, ts)
}

func (h *handler) submitRun(w http.ResponseWriter, r *http.Request) {
	var req run.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Trigger = run.TriggerAPI

	rn, err := h.runSvc.Submit(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rn)
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	rn, err := h.runSvc.Get(r.Context(), run.GetRunRequest{ID: mux.Vars(r)["id"]})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rn)
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	req := run.ListRunsRequest{Status: run.Status(r.URL.Query().Get("status"))}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		req.Limit = n
	}

	runs, err := h.runSvc.List(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if runs == nil {
		runs = []run.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.DateOnly, s)
}
