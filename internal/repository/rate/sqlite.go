package rate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	domain "github.com/ahmethakanbesel/fx-etl/internal/rate"
)

const batchSize = 500

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// UpsertRates writes all rates in one transaction. A row whose natural key
// already exists gets the new rate. Either every row is written or none is.
func (r *Repository) UpsertRates(ctx context.Context, rates []domain.Rate) (int64, error) {
	if len(rates) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("upsert rates: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var total int64
	for i := 0; i < len(rates); i += batchSize {
		end := min(i+batchSize, len(rates))
		batch := rates[i:end]

		placeholders := make([]string, len(batch))
		args := make([]any, 0, len(batch)*4)
		for j, rate := range batch {
			placeholders[j] = "(?, ?, ?, ?)"
			args = append(args,
				rate.Date.Format(domain.DateFormat),
				rate.Base,
				rate.Target,
				rate.Rate.InexactFloat64(),
			)
		}

		query := fmt.Sprintf( //nolint:gosec // placeholders are not user input
			`INSERT INTO fx_rates (date, base_currency, target_currency, rate) VALUES %s
			ON CONFLICT (date, base_currency, target_currency) DO UPDATE SET
				rate = excluded.rate,
				updated_at = strftime('%%Y-%%m-%%dT%%H:%%M:%%SZ', 'now')`,
			strings.Join(placeholders, ", "),
		)

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, fmt.Errorf("upsert rates: %w", err)
		}

		n, _ := res.RowsAffected()
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("upsert rates: commit: %w", err)
	}
	return total, nil
}

func (r *Repository) ListRates(ctx context.Context, base string, date time.Time) ([]domain.Rate, error) {
	const query = `SELECT date, base_currency, target_currency, rate, created_at, updated_at
		FROM fx_rates
		WHERE base_currency = ? AND date = ?
		ORDER BY target_currency ASC`

	rows, err := r.db.QueryContext(ctx, query, base, date.Format(domain.DateFormat))
	if err != nil {
		return nil, fmt.Errorf("list rates: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rates []domain.Rate
	for rows.Next() {
		var rate domain.Rate
		var value float64
		var dateStr, createdStr, updatedStr string
		if err := rows.Scan(&dateStr, &rate.Base, &rate.Target, &value, &createdStr, &updatedStr); err != nil {
			return nil, fmt.Errorf("scan rate: %w", err)
		}
		rate.Rate = decimal.NewFromFloat(value)
		rate.Date, _ = time.Parse(domain.DateFormat, dateStr)
		rate.CreatedAt, _ = time.Parse(time.RFC3339, createdStr)
		rate.UpdatedAt, _ = time.Parse(time.RFC3339, updatedStr)
		rates = append(rates, rate)
	}

	return rates, rows.Err()
}

// LatestDate returns the most recent date stored for base, or the zero time.
func (r *Repository) LatestDate(ctx context.Context, base string) (time.Time, error) {
	var dateStr sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(date) FROM fx_rates WHERE base_currency = ?`, base,
	).Scan(&dateStr)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && !dateStr.Valid) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("latest rate date: %w", err)
	}

	t, err := time.Parse(domain.DateFormat, dateStr.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse rate date %q: %w", dateStr.String, err)
	}
	return t, nil
}

// Count returns the number of stored rows.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM fx_rates`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rates: %w", err)
	}
	return n, nil
}
