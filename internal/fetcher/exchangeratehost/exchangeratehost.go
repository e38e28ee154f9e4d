// Package exchangeratehost fetches live rates from the exchangerate.host
// API. Quotes come back keyed by currency pair ("EURUSD") and the key is
// sent as the access_key query parameter.
package exchangeratehost

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
	"github.com/ahmethakanbesel/fx-etl/internal/fetcher"
	"github.com/ahmethakanbesel/fx-etl/internal/rate"
)

const (
	Source          = "exchangeratehost"
	defaultEndpoint = "http://api.exchangerate.host"
	defaultTimeout  = 15 * time.Second
)

type Fetcher struct {
	apiKey   string
	client   *http.Client
	endpoint string
}

// New creates a Fetcher authenticated with apiKey.
func New(apiKey string, opts ...Option) *Fetcher {
	f := &Fetcher{
		apiKey:   apiKey,
		client:   &http.Client{Timeout: defaultTimeout},
		endpoint: defaultEndpoint,
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

type Option func(*Fetcher)

func WithClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithEndpoint overrides the API base URL; "/live" is appended.
func WithEndpoint(ep string) Option {
	return func(f *Fetcher) {
		if ep != "" {
			f.endpoint = strings.TrimRight(ep, "/")
		}
	}
}

func (f *Fetcher) Source() string { return Source }

type liveResponse struct {
	Success   *bool                      `json:"success"`
	Timestamp int64                      `json:"timestamp"`
	Date      string                     `json:"date"`
	Source    string                     `json:"source"`
	Quotes    map[string]decimal.Decimal `json:"quotes"`
	Error     *struct {
		Code int    `json:"code"`
		Type string `json:"type"`
		Info string `json:"info"`
	} `json:"error"`
}

// Fetch requests the live quotes for base.
func (f *Fetcher) Fetch(ctx context.Context, base string) (*rate.Quotes, error) {
	if f.apiKey == "" {
		return nil, apperror.New(apperror.Configuration, "exchangerate.host API key is empty")
	}

	q := url.Values{}
	q.Set("access_key", f.apiKey)
	q.Set("source", base)
	reqURL := f.endpoint + "/live?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperror.Wrap(apperror.Configuration, err, "build exchangerate.host request")
	}
	req.Header.Set("Accept", "application/json")

	res, err := f.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return nil, apperror.Wrap(apperror.Network, err, "get exchangerate.host live rates")
	}
	body, err := fetcher.ReadBody(res, Source)
	if err != nil {
		return nil, err
	}

	var lr liveResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, apperror.Wrap(apperror.Validation, err, "parse exchangerate.host response")
	}
	// Only an explicit refusal is a remote failure; a body without quotes
	// is a malformed response.
	if lr.Error != nil {
		return nil, apperror.New(apperror.Network,
			fmt.Sprintf("exchangerate.host error: %d %s: %s", lr.Error.Code, lr.Error.Type, lr.Error.Info))
	}
	if lr.Success != nil && !*lr.Success {
		return nil, apperror.New(apperror.Network, "exchangerate.host error: request was not successful")
	}
	if len(lr.Quotes) == 0 {
		return nil, apperror.New(apperror.Validation, "exchangerate.host response has no quotes")
	}

	source := strings.ToUpper(lr.Source)
	if source == "" {
		source = base
	}

	rates := make(map[string]decimal.Decimal, len(lr.Quotes))
	for pair, value := range lr.Quotes {
		target, ok := strings.CutPrefix(strings.ToUpper(pair), source)
		if !ok || target == "" {
			return nil, apperror.New(apperror.Validation,
				fmt.Sprintf("quote %q is not a %s pair", pair, source))
		}
		rates[target] = value
	}

	quotes := &rate.Quotes{Base: source, Rates: rates}
	switch {
	case lr.Date != "":
		d, err := rate.ParseDate(lr.Date)
		if err != nil {
			return nil, apperror.Wrap(apperror.Validation, err, "parse exchangerate.host date")
		}
		quotes.Date = d
	case lr.Timestamp > 0:
		quotes.Date = rate.Day(time.Unix(lr.Timestamp, 0).UTC())
	}

	slog.Debug("fetched exchangerate.host quotes", "source", source, "count", len(rates))
	return quotes, nil
}
