// Package apilayer fetches the latest rates from the apilayer Exchange
// Rates Data API, which reports rates keyed by target currency and
// authenticates with an apikey header.
package apilayer

import (
	"context"
	"encoding/json"
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
	Source          = "apilayer"
	defaultEndpoint = "https://api.apilayer.com/exchangerates_data"
	defaultTimeout  = 15 * time.Second
)

type Fetcher struct {
	apiKey   string
	client   *http.Client
	endpoint string
}

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

// WithEndpoint overrides the API base URL; "/latest" is appended.
func WithEndpoint(ep string) Option {
	return func(f *Fetcher) {
		if ep != "" {
			f.endpoint = strings.TrimRight(ep, "/")
		}
	}
}

func (f *Fetcher) Source() string { return Source }

type latestResponse struct {
	Success *bool                      `json:"success"`
	Base    string                     `json:"base"`
	Date    string                     `json:"date"`
	Rates   map[string]decimal.Decimal `json:"rates"`
	Message string                     `json:"message"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *Fetcher) Fetch(ctx context.Context, base string) (*rate.Quotes, error) {
	if f.apiKey == "" {
		return nil, apperror.New(apperror.Configuration, "apilayer API key is empty")
	}

	reqURL := f.endpoint + "/latest?" + url.Values{"base": {base}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, apperror.Wrap(apperror.Configuration, err, "build apilayer request")
	}
	req.Header.Set("apikey", f.apiKey)
	req.Header.Set("Accept", "application/json")

	res, err := f.client.Do(req) //nolint:gosec // URL built from internal config
	if err != nil {
		return nil, apperror.Wrap(apperror.Network, err, "get apilayer latest rates")
	}
	body, err := fetcher.ReadBody(res, Source)
	if err != nil {
		return nil, err
	}

	var lr latestResponse
	if err := json.Unmarshal(body, &lr); err != nil {
		return nil, apperror.Wrap(apperror.Validation, err, "parse apilayer response")
	}
	if lr.Error != nil {
		return nil, apperror.New(apperror.Network, "apilayer error: "+lr.Error.Code+": "+lr.Error.Message)
	}
	if lr.Success != nil && !*lr.Success {
		return nil, apperror.New(apperror.Network, "apilayer request was not successful")
	}
	if len(lr.Rates) == 0 {
		return nil, apperror.New(apperror.Validation, "apilayer response has no rates")
	}

	rates := make(map[string]decimal.Decimal, len(lr.Rates))
	for code, value := range lr.Rates {
		rates[strings.ToUpper(code)] = value
	}
	quotes := &rate.Quotes{Base: strings.ToUpper(lr.Base), Rates: rates}
	if lr.Date != "" {
		d, err := rate.ParseDate(lr.Date)
		if err != nil {
			return nil, apperror.Wrap(apperror.Validation, err, "parse apilayer date")
		}
		quotes.Date = d
	}

	slog.Debug("fetched apilayer rates", "base", quotes.Base, "date", lr.Date, "count", len(rates))
	return quotes, nil
}
