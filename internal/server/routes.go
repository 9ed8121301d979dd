package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ahmethakanbesel/dailystats/internal/run"
	"github.com/ahmethakanbesel/dailystats/internal/series"
)

// NewHandler creates the full HTTP handler with routes and middleware.
// Exported for use in tests (e.g., httptest.NewServer).
func NewHandler(seriesSvc *series.Service, runSvc *run.Service) http.Handler {
	return newRouter(seriesSvc, runSvc)
}

func newRouter(seriesSvc *series.Service, runSvc *run.Service) http.Handler {
	h := &handler{
		seriesSvc: seriesSvc,
		runSvc:    runSvc,
	}

	notFound := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r := mux.NewRouter()
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notAllowed

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	// Subrouters do not inherit the parent's error handlers.
	api := r.PathPrefix("/api/v1").Subrouter()
	api.NotFoundHandler = notFound
	api.MethodNotAllowedHandler = notAllowed
	api.HandleFunc("/catalog", h.getCatalog).Methods(http.MethodGet)
	api.HandleFunc("/timeseries/{name}", h.getTimeseries).Methods(http.MethodGet)
	api.HandleFunc("/runs", h.listRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs", h.submitRun).Methods(http.MethodPost)
	api.HandleFunc("/runs/{id}", h.getRun).Methods(http.MethodGet)

	// Apply middleware stack: recovery -> requestID -> logging
	var handler http.Handler = r
	handler = logging(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	return handler
}
