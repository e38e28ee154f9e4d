package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
)

// captureLog routes the default logger into a buffer for the test.
func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func findLine(lines []map[string]any, msg string) map[string]any {
	for _, l := range lines {
		if l["msg"] == msg {
			return l
		}
	}
	return nil
}

func chain(h http.HandlerFunc) http.Handler {
	return withRequestID(accessLog(recovery(h)))
}

func TestAccessLog_TagsRequestID(t *testing.T) {
	buf := captureLog(t)

	h := chain(func(w http.ResponseWriter, r *http.Request) {
		requestLogger(r.Context()).Info("inside handler")
		_, _ = w.Write([]byte("hello"))
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/rates?base=EUR", nil)
	req.Header.Set("X-Request-ID", "run-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "run-42" {
		t.Fatalf("expected request id run-42, got %q", got)
	}

	lines := logLines(t, buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 log lines, got %d: %s", len(lines), buf)
	}
	for _, l := range lines {
		if l["request_id"] != "run-42" {
			t.Errorf("line %v is missing request_id", l)
		}
	}

	access := findLine(lines, "http request")
	if access == nil {
		t.Fatalf("no access log line: %s", buf)
	}
	if access["level"] != "DEBUG" || access["path"] != "/api/v1/rates" {
		t.Errorf("unexpected access line %v", access)
	}
	if access["status"] != float64(http.StatusOK) || access["bytes"] != float64(len("hello")) {
		t.Errorf("unexpected status or size in %v", access)
	}
}

func TestRecovery_LogsPanicUnderRequestID(t *testing.T) {
	buf := captureLog(t)

	h := chain(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	id := rec.Header().Get("X-Request-ID")
	if id == "" {
		t.Fatal("expected a generated request id")
	}

	lines := logLines(t, buf)
	panicked := findLine(lines, "panic recovered")
	if panicked == nil || panicked["request_id"] != id {
		t.Errorf("expected panic entry with request_id %s, got %v", id, panicked)
	}
	access := findLine(lines, "http request")
	if access == nil || access["level"] != "ERROR" || access["status"] != float64(http.StatusInternalServerError) {
		t.Errorf("expected error-level 500 access entry, got %v", access)
	}
}

func TestWithRequestID_ReplacesUnsafeIDs(t *testing.T) {
	captureLog(t)

	for _, in := range []string{
		"has space",
		"tab\tinside",
		strings.Repeat("x", maxRequestIDLen+1),
	} {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.Header.Set("X-Request-ID", in)
		rec := httptest.NewRecorder()
		chain(func(http.ResponseWriter, *http.Request) {}).ServeHTTP(rec, req)

		got := rec.Header().Get("X-Request-ID")
		if got == in || len(got) != 36 {
			t.Errorf("%q: expected a fresh uuid, got %q", in, got)
		}
	}
}

func TestWriteAppError_LogsServerErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
		logged  bool
	}{
		{"not found", apperror.New(apperror.NotFound, "no rates"), http.StatusNotFound, "no rates", false},
		{"bad request", apperror.New(apperror.BadRequest, "bad base"), http.StatusBadRequest, "bad base", false},
		{"storage", apperror.Wrap(apperror.Storage, errors.New("disk I/O error"), "list rates"), http.StatusInternalServerError, "list rates", true},
		{"untagged", errors.New("sql: connection is already closed"), http.StatusInternalServerError, "internal server error", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := captureLog(t)

			h := chain(func(w http.ResponseWriter, r *http.Request) {
				writeAppError(w, r, tt.err)
			})
			req := httptest.NewRequest(http.MethodGet, "/api/v1/rates", nil)
			req.Header.Set("X-Request-ID", "req-1")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, rec.Code)
			}
			var body APIResponse[string]
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, body.Message)
			}

			failed := findLine(logLines(t, buf), "request failed")
			if !tt.logged {
				if failed != nil {
					t.Errorf("client error should not be logged as a failure: %v", failed)
				}
				return
			}
			if failed == nil || failed["request_id"] != "req-1" {
				t.Fatalf("expected failure entry with request_id, got %v", failed)
			}
			if !strings.Contains(failed["error"].(string), tt.err.Error()) {
				t.Errorf("expected error text %q in %v", tt.err, failed)
			}
		})
	}
}
