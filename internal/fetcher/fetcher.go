package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
	"github.com/ahmethakanbesel/fx-etl/internal/rate"
)

// MaxBodySize caps how much of a provider response is read.
const MaxBodySize = 4 << 20

// Fetcher retrieves the latest rates for a base currency with one request.
type Fetcher interface {
	Source() string
	Fetch(ctx context.Context, base string) (*rate.Quotes, error)
}

type Registry struct {
	mu       sync.RWMutex
	fetchers map[string]Fetcher
}

func NewRegistry() *Registry {
	return &Registry{
		fetchers: make(map[string]Fetcher),
	}
}

func (r *Registry) Register(f Fetcher) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetchers[f.Source()] = f
}

func (r *Registry) Get(source string) (Fetcher, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fetchers[source]
	if !ok {
		return nil, apperror.New(apperror.Configuration, fmt.Sprintf("unknown rate provider %q", source))
	}
	return f, nil
}

// Sources returns the registered provider names in sorted order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sources := make([]string, 0, len(r.fetchers))
	for src := range r.fetchers {
		sources = append(sources, src)
	}
	sort.Strings(sources)
	return sources
}

// ReadBody checks the status of res and returns its body. Transport
// failures and non-2xx statuses are tagged as network errors.
func ReadBody(res *http.Response, source string) ([]byte, error) {
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, apperror.New(apperror.Network,
			fmt.Sprintf("%s returned HTTP %d", source, res.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, MaxBodySize))
	if err != nil {
		return nil, apperror.Wrap(apperror.Network, err, "read "+source+" response")
	}
	return body, nil
}
