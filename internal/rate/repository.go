package rate

import (
	"context"
	"time"
)

type Repository interface {
	UpsertRates(ctx context.Context, rates []Rate) (int64, error)
	ListRates(ctx context.Context, base string, date time.Time) ([]Rate, error)
	LatestDate(ctx context.Context, base string) (time.Time, error)
}
