package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
	"github.com/ahmethakanbesel/fx-etl/internal/rate"
)

type APIResponse[T any] struct {
	Message string `json:"message"`
	Data    T      `json:"data"`
}

func writeJSON[T any](w http.ResponseWriter, status int, data T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[T]{
		Message: "ok",
		Data:    data,
	})
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse[string]{
		Message: message,
		Data:    "",
	})
}

// writeAppError maps err to its HTTP status. Untagged errors are 500s whose
// text goes to the log instead of the client.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		if ae.HTTPStatus() >= http.StatusInternalServerError {
			requestLogger(r.Context()).Error("request failed", "kind", ae.Code(), "error", err)
		}
		writeError(w, ae.HTTPStatus(), ae.Message())
		return
	}
	requestLogger(r.Context()).Error("request failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func writeCSV(w http.ResponseWriter, resp *rate.ListRatesResponse) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=rates-"+resp.Base+"-"+resp.Date.Format(rate.DateFormat)+".csv")
	w.WriteHeader(http.StatusOK)
	_ = rate.WriteCSV(w, resp.Rates)
}
