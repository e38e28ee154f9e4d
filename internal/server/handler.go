package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ahmethakanbesel/fx-etl/internal/rate"
	"github.com/ahmethakanbesel/fx-etl/internal/run"
)

type handler struct {
	rateSvc *rate.Service
	runSvc  *run.Service
	sources []string
}

type healthResponse struct {
	Status  string   `json:"status"`
	LastRun *run.Run `json:"lastRun,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	latest, err := h.runSvc.Latest(r.Context())
	if err != nil {
		requestLogger(r.Context()).Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", LastRun: latest})
}

func (h *handler) listSources(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sources)
}

func (h *handler) listRates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := rate.ListRatesRequest{
		Base:   strings.ToUpper(q.Get("base")),
		Format: q.Get("format"),
	}
	if v := q.Get("date"); v != "" {
		d, err := rate.ParseDate(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
			return
		}
		req.Date = d
	}

	resp, err := h.rateSvc.List(r.Context(), req)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	if req.Format == "csv" {
		writeCSV(w, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) getRun(w http.ResponseWriter, r *http.Request) {
	rn, err := h.runSvc.Get(r.Context(), run.GetRunRequest{ID: r.PathValue("id")})
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rn)
}

func (h *handler) listRuns(w http.ResponseWriter, r *http.Request) {
	req := run.ListRunsRequest{
		Status: run.Status(strings.ToUpper(r.URL.Query().Get("status"))),
	}
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
		writeAppError(w, r, err)
		return
	}
	if runs == nil {
		runs = []run.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}
