package run

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, r *Run) error
	Update(ctx context.Context, r *Run) error
	Get(ctx context.Context, id string) (*Run, error)
	List(ctx context.Context, status Status, limit int) ([]Run, error)
	MarkAbandoned(ctx context.Context, at time.Time) (int64, error)
}
