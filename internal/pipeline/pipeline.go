// Package pipeline runs one fetch, validate and store pass and records
// every state transition in the run journal and the log.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
	"github.com/ahmethakanbesel/fx-etl/internal/fetcher"
	"github.com/ahmethakanbesel/fx-etl/internal/metrics"
	"github.com/ahmethakanbesel/fx-etl/internal/rate"
	"github.com/ahmethakanbesel/fx-etl/internal/run"
)

type Pipeline struct {
	fetcher fetcher.Fetcher
	rates   rate.Repository
	runs    run.Repository
	logger  *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time

	startEntry bool
}

func New(f fetcher.Fetcher, rates rate.Repository, runs run.Repository, opts ...Option) *Pipeline {
	p := &Pipeline{
		fetcher: f,
		rates:   rates,
		runs:    runs,
		logger:  slog.Default(),
		now:     time.Now,

		startEntry: true,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithMetrics(m *metrics.Recorder) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock sets the time source; its date is used when a provider
// reports no date.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithStartEntry controls the "fx etl started" entry. Callers that log the
// start themselves, before any work that can fail, disable it.
func WithStartEntry(enabled bool) Option {
	return func(p *Pipeline) { p.startEntry = enabled }
}

// Run executes one pass for base. The returned run is always non-nil and
// terminal; the error is tagged with the kind of the failing stage.
func (p *Pipeline) Run(ctx context.Context, base string) (*run.Run, error) {
	r := &run.Run{
		ID:        uuid.NewString(),
		Provider:  p.fetcher.Source(),
		Base:      base,
		Status:    run.StatusStarted,
		StartedAt: p.now().UTC(),
	}
	log := p.logger.With("run_id", r.ID, "provider", r.Provider, "base", base)
	if p.startEntry {
		log.Info("fx etl started", "status", r.Status)
	} else {
		log.Debug("run created")
	}

	if err := p.runs.Create(ctx, r); err != nil {
		return p.fail(ctx, log, r, apperror.Wrap(apperror.Storage, err, "record run"))
	}

	if err := p.advance(ctx, log, r, run.StatusFetching); err != nil {
		return p.fail(ctx, log, r, err)
	}
	quotes, err := p.fetcher.Fetch(ctx, base)
	if err != nil {
		return p.fail(ctx, log, r, tag(apperror.Network, err, "fetch rates"))
	}

	if quotes != nil {
		log.Info("rates fetched", "count", len(quotes.Rates))
	}

	if err := p.advance(ctx, log, r, run.StatusValidating); err != nil {
		return p.fail(ctx, log, r, err)
	}
	if quotes != nil && quotes.Date.IsZero() {
		quotes.Date = rate.Day(p.now())
		log.Debug("provider reported no date, using run date", "date", quotes.Date.Format(rate.DateFormat))
	}
	if err := rate.ValidateQuotes(quotes, base); err != nil {
		return p.fail(ctx, log, r, err)
	}
	quotes.Base = base

	if err := p.advance(ctx, log, r, run.StatusStoring); err != nil {
		return p.fail(ctx, log, r, err)
	}
	records := quotes.Records()
	n, err := p.rates.UpsertRates(ctx, records)
	if err != nil {
		return p.fail(ctx, log, r, tag(apperror.Storage, err, "store rates"))
	}
	for _, rec := range records {
		log.Debug("rate stored", "date", rec.Date.Format(rate.DateFormat), "target", rec.Target, "rate", rec.Rate.String())
	}

	finished := p.now().UTC()
	r.Status = run.StatusSucceeded
	r.RowsWritten = n
	r.RatesDate = &quotes.Date
	r.UpdatedAt = finished
	r.FinishedAt = &finished
	if err := p.runs.Update(ctx, r); err != nil {
		// The rates are committed; only the journal entry is missing.
		log.Error("failed to record run result", "error", err)
	}

	log.Info("fx etl succeeded",
		"status", r.Status,
		"rows", n,
		"date", quotes.Date.Format(rate.DateFormat),
		"duration", finished.Sub(r.StartedAt).String(),
	)
	p.observe(r)
	return r, nil
}

func (p *Pipeline) advance(ctx context.Context, log *slog.Logger, r *run.Run, to run.Status) error {
	if !r.Status.CanTransitionTo(to) {
		return apperror.New(apperror.Internal, fmt.Sprintf("invalid run transition %s -> %s", r.Status, to))
	}
	r.Status = to
	r.UpdatedAt = p.now().UTC()
	if err := p.runs.Update(ctx, r); err != nil {
		return apperror.Wrap(apperror.Storage, err, "record run status")
	}
	log.Debug("run status changed", "status", to)
	return nil
}

func (p *Pipeline) fail(ctx context.Context, log *slog.Logger, r *run.Run, err error) (*run.Run, error) {
	finished := p.now().UTC()
	r.Status = run.StatusFailed
	r.ErrorKind = string(apperror.CodeOf(err))
	r.Error = err.Error()
	r.UpdatedAt = finished
	r.FinishedAt = &finished

	log.Error("fx etl failed", "status", r.Status, "kind", r.ErrorKind, "error", err)

	// Use a fresh context so a cancelled run is still journaled.
	if uerr := p.runs.Update(context.WithoutCancel(ctx), r); uerr != nil {
		log.Error("failed to record run failure", "error", uerr)
	}
	p.observe(r)
	return r, err
}

func (p *Pipeline) observe(r *run.Run) {
	if p.metrics != nil {
		p.metrics.ObserveRun(r)
	}
}

// tag gives err a kind when the producing stage left it untagged.
func tag(code apperror.Code, err error, message string) error {
	var ae *apperror.AppError
	if errors.As(err, &ae) {
		return fmt.Errorf("%s: %w", message, err)
	}
	return apperror.Wrap(code, err, message)
}
