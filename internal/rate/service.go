package rate

import (
	"context"
	"fmt"
	"strings"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
)

// Service answers read queries over stored rates.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns the rates stored for a base currency on one date. Without a
// date the most recent stored date is used.
func (s *Service) List(ctx context.Context, req ListRatesRequest) (*ListRatesResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	base := strings.ToUpper(req.Base)

	date := req.Date
	if date.IsZero() {
		latest, err := s.repo.LatestDate(ctx, base)
		if err != nil {
			return nil, fmt.Errorf("latest rate date: %w", err)
		}
		if latest.IsZero() {
			return nil, apperror.New(apperror.NotFound, "no rates stored for "+base)
		}
		date = latest
	}

	rates, err := s.repo.ListRates(ctx, base, Day(date))
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	if rates == nil {
		rates = []Rate{}
	}
	return &ListRatesResponse{Base: base, Date: Day(date), Rates: rates}, nil
}
