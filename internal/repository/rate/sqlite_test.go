package rate

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmethakanbesel/fx-etl/internal/platform/sqlite"
	domain "github.com/ahmethakanbesel/fx-etl/internal/rate"
)

func setupTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var jan10 = time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

func eurRates(usd, gbp string) []domain.Rate {
	return []domain.Rate{
		{Date: jan10, Base: "EUR", Target: "USD", Rate: decimal.RequireFromString(usd)},
		{Date: jan10, Base: "EUR", Target: "GBP", Rate: decimal.RequireFromString(gbp)},
	}
}

func TestUpsertRates_And_ListRates(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	n, err := repo.UpsertRates(ctx, eurRates("1.10", "0.86"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := repo.ListRates(ctx, "EUR", jan10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "GBP", got[0].Target)
	assert.True(t, got[0].Rate.Equal(decimal.RequireFromString("0.86")), "got %s", got[0].Rate)
	assert.Equal(t, "USD", got[1].Target)
	assert.True(t, got[1].Rate.Equal(decimal.RequireFromString("1.10")), "got %s", got[1].Rate)
	assert.Equal(t, jan10, got[1].Date)
	assert.False(t, got[1].CreatedAt.IsZero())
}

func TestUpsertRates_Idempotent(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	_, err := repo.UpsertRates(ctx, eurRates("1.10", "0.86"))
	require.NoError(t, err)
	_, err = repo.UpsertRates(ctx, eurRates("1.10", "0.86"))
	require.NoError(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count, "re-storing the same day must not duplicate rows")
}

func TestUpsertRates_OverwritesRate(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	_, err := repo.UpsertRates(ctx, eurRates("1.10", "0.86"))
	require.NoError(t, err)
	_, err = repo.UpsertRates(ctx, eurRates("1.12", "0.85"))
	require.NoError(t, err)

	got, err := repo.ListRates(ctx, "EUR", jan10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[1].Rate.Equal(decimal.RequireFromString("1.12")), "latest fetched value wins, got %s", got[1].Rate)
	assert.True(t, got[0].Rate.Equal(decimal.RequireFromString("0.85")))
}

func TestUpsertRates_AllOrNothing(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	// The table rejects non-positive rates; the valid row must roll back too.
	rates := []domain.Rate{
		{Date: jan10, Base: "EUR", Target: "USD", Rate: decimal.RequireFromString("1.10")},
		{Date: jan10, Base: "EUR", Target: "XXX", Rate: decimal.Zero},
	}
	_, err := repo.UpsertRates(ctx, rates)
	require.Error(t, err)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUpsertRates_ManyBatches(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	rates := make([]domain.Rate, 0, batchSize+20)
	for i := 0; i < batchSize+20; i++ {
		rates = append(rates, domain.Rate{
			Date:   jan10.AddDate(0, 0, -i),
			Base:   "EUR",
			Target: "USD",
			Rate:   decimal.NewFromFloat(1 + float64(i)/1000),
		})
	}

	n, err := repo.UpsertRates(ctx, rates)
	require.NoError(t, err)
	assert.EqualValues(t, len(rates), n)
}

func TestUpsertRates_Empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	n, err := repo.UpsertRates(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLatestDate(t *testing.T) {
	repo := NewRepository(setupTestDB(t).DB)
	ctx := context.Background()

	latest, err := repo.LatestDate(ctx, "EUR")
	require.NoError(t, err)
	assert.True(t, latest.IsZero())

	older := []domain.Rate{{Date: jan10.AddDate(0, 0, -1), Base: "EUR", Target: "USD", Rate: decimal.NewFromFloat(1.09)}}
	_, err = repo.UpsertRates(ctx, append(older, eurRates("1.10", "0.86")...))
	require.NoError(t, err)

	latest, err = repo.LatestDate(ctx, "EUR")
	require.NoError(t, err)
	assert.Equal(t, jan10, latest)

	latest, err = repo.LatestDate(ctx, "USD")
	require.NoError(t, err)
	assert.True(t, latest.IsZero())
}

func TestUpsertRates_ClosedDB(t *testing.T) {
	db := setupTestDB(t)
	repo := NewRepository(db.DB)
	require.NoError(t, db.Close())

	_, err := repo.UpsertRates(context.Background(), eurRates("1.10", "0.86"))
	assert.Error(t, err)
}
