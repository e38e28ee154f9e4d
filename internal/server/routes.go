package server

import (
	"net/http"

	"github.com/ahmethakanbesel/fx-etl/internal/rate"
	"github.com/ahmethakanbesel/fx-etl/internal/run"
)

// Deps are the read services behind the API. Metrics may be nil.
type Deps struct {
	Rates   *rate.Service
	Runs    *run.Service
	Sources []string
	Metrics http.Handler
}

// NewHandler creates the full HTTP handler with routes and middleware.
func NewHandler(d Deps) http.Handler {
	h := &handler{
		rateSvc: d.Rates,
		runSvc:  d.Runs,
		sources: d.Sources,
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /api/v1/sources", h.listSources)
	mux.HandleFunc("GET /api/v1/rates", h.listRates)
	mux.HandleFunc("GET /api/v1/runs", h.listRuns)
	mux.HandleFunc("GET /api/v1/runs/{id}", h.getRun)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	// withRequestID -> accessLog -> recovery, so a recovered panic is logged
	// and counted as a 500 under the request's id.
	var handler http.Handler = mux
	handler = recovery(handler)
	handler = accessLog(handler)
	handler = withRequestID(handler)

	return handler
}
