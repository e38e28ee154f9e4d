package run

import (
	"context"
	"log/slog"
	"time"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// RecoverAbandoned fails runs that a previous process left in a
// non-terminal status. Runs are never resumed.
func (s *Service) RecoverAbandoned(ctx context.Context) error {
	n, err := s.repo.MarkAbandoned(ctx, s.now().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Warn("marked interrupted runs as failed", "count", n)
	}
	return nil
}

func (s *Service) Get(ctx context.Context, req GetRunRequest) (*Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, req.ID)
}

func (s *Service) List(ctx context.Context, req ListRunsRequest) ([]Run, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit == 0 {
		limit = DefaultListLimit
	}
	return s.repo.List(ctx, req.Status, limit)
}

// Latest returns the most recent run, or nil when none exist.
func (s *Service) Latest(ctx context.Context) (*Run, error) {
	runs, err := s.repo.List(ctx, "", 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}
