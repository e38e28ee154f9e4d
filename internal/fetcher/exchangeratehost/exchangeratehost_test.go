package exchangeratehost

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
)

// newTestServer serves body on /live and counts requests.
func newTestServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32

	mux := http.NewServeMux()
	mux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		q := r.URL.Query()
		if q.Get("access_key") != "test-key" {
			t.Errorf("expected access_key=test-key, got %q", q.Get("access_key"))
		}
		if q.Get("source") != "EUR" {
			t.Errorf("expected source=EUR, got %q", q.Get("source"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, &hits
}

func newFetcher(ts *httptest.Server, key string) *Fetcher {
	return New(key, WithClient(ts.Client()), WithEndpoint(ts.URL+"/"))
}

func TestFetch(t *testing.T) {
	ts, hits := newTestServer(t, http.StatusOK, `{
		"success": true,
		"timestamp": 1704888000,
		"source": "EUR",
		"quotes": {"EURUSD": 1.0973, "EURGBP": 0.86155}
	}`)

	q, err := newFetcher(ts, "test-key").Fetch(context.Background(), "EUR")
	require.NoError(t, err)
	assert.EqualValues(t, 1, hits.Load())

	assert.Equal(t, "EUR", q.Base)
	assert.Equal(t, time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC), q.Date)
	require.Len(t, q.Rates, 2)
	assert.True(t, q.Rates["USD"].Equal(decimal.RequireFromString("1.0973")))
	assert.True(t, q.Rates["GBP"].Equal(decimal.RequireFromString("0.86155")))
}

func TestFetch_ReportedDateWins(t *testing.T) {
	ts, _ := newTestServer(t, http.StatusOK, `{
		"success": true, "timestamp": 1704888000, "date": "2024-01-09",
		"source": "EUR", "quotes": {"EURUSD": 1.09}
	}`)

	q, err := newFetcher(ts, "test-key").Fetch(context.Background(), "EUR")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 9, 0, 0, 0, 0, time.UTC), q.Date)
}

func TestFetch_MissingKeyMakesNoRequest(t *testing.T) {
	ts, hits := newTestServer(t, http.StatusOK, `{}`)

	_, err := newFetcher(ts, "").Fetch(context.Background(), "EUR")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Configuration))
	assert.Zero(t, hits.Load())
}

func TestFetch_HTTPError(t *testing.T) {
	ts, _ := newTestServer(t, http.StatusServiceUnavailable, `upstream down`)

	_, err := newFetcher(ts, "test-key").Fetch(context.Background(), "EUR")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Network))
}

func TestFetch_APIError(t *testing.T) {
	ts, _ := newTestServer(t, http.StatusOK, `{
		"success": false,
		"error": {"code": 101, "type": "invalid_access_key", "info": "You have not supplied a valid API Access Key."}
	}`)

	_, err := newFetcher(ts, "test-key").Fetch(context.Background(), "EUR")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Network))
	assert.Contains(t, err.Error(), "invalid_access_key")
}

func TestFetch_MalformedBody(t *testing.T) {
	ts, _ := newTestServer(t, http.StatusOK, `<html>not json</html>`)

	_, err := newFetcher(ts, "test-key").Fetch(context.Background(), "EUR")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Validation))
}

func TestFetch_NoQuotes(t *testing.T) {
	tests := map[string]string{
		"empty quotes":  `{"success": true, "source": "EUR", "quotes": {}}`,
		"empty object":  `{}`,
		"rates instead": `{"rates": {}}`,
		"no quotes key": `{"source": "EUR", "timestamp": 1704888000}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			ts, _ := newTestServer(t, http.StatusOK, body)

			_, err := newFetcher(ts, "test-key").Fetch(context.Background(), "EUR")
			require.Error(t, err)
			assert.Equal(t, apperror.Validation, apperror.CodeOf(err), err.Error())
		})
	}
}

func TestFetch_NotSuccessful(t *testing.T) {
	ts, _ := newTestServer(t, http.StatusOK, `{"success": false}`)

	_, err := newFetcher(ts, "test-key").Fetch(context.Background(), "EUR")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Network))
}

func TestFetch_ForeignPair(t *testing.T) {
	ts, _ := newTestServer(t, http.StatusOK, `{"success": true, "source": "EUR", "quotes": {"USDJPY": 145.2}}`)

	_, err := newFetcher(ts, "test-key").Fetch(context.Background(), "EUR")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Validation))
}

func TestFetch_Timeout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/live", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	client := ts.Client()
	client.Timeout = 50 * time.Millisecond
	f := New("test-key", WithClient(client), WithEndpoint(ts.URL))

	_, err := f.Fetch(context.Background(), "EUR")
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.Network))
}

func TestSource(t *testing.T) {
	assert.Equal(t, "exchangeratehost", New("k").Source())
}
