package run

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahmethakanbesel/fx-etl/internal/apperror"
	"github.com/ahmethakanbesel/fx-etl/internal/rate"
	domain "github.com/ahmethakanbesel/fx-etl/internal/run"
)

const selectColumns = `SELECT id, provider, base_currency, status, rates_date,
	rows_written, error_kind, error, started_at, updated_at, finished_at
	FROM etl_runs`

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, run *domain.Run) error {
	const query = `INSERT INTO etl_runs (id, provider, base_currency, status, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	if run.UpdatedAt.IsZero() {
		run.UpdatedAt = run.StartedAt
	}
	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.Provider, run.Base, string(run.Status),
		formatTime(run.StartedAt), formatTime(run.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (r *Repository) Update(ctx context.Context, run *domain.Run) error {
	const query = `UPDATE etl_runs SET status = ?, rates_date = ?, rows_written = ?,
		error_kind = ?, error = ?, updated_at = ?, finished_at = ?
		WHERE id = ?`

	var ratesDate, finishedAt, errKind, errText sql.NullString
	if run.RatesDate != nil {
		ratesDate = sql.NullString{String: run.RatesDate.Format(rate.DateFormat), Valid: true}
	}
	if run.FinishedAt != nil {
		finishedAt = sql.NullString{String: formatTime(*run.FinishedAt), Valid: true}
	}
	if run.ErrorKind != "" {
		errKind = sql.NullString{String: run.ErrorKind, Valid: true}
	}
	if run.Error != "" {
		errText = sql.NullString{String: run.Error, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, query,
		string(run.Status), ratesDate, run.RowsWritten,
		errKind, errText, formatTime(run.UpdatedAt), finishedAt,
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperror.New(apperror.NotFound, "run not found")
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*domain.Run, error) {
	run, err := scanRun(r.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.New(apperror.NotFound, "run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

func (r *Repository) List(ctx context.Context, status domain.Status, limit int) ([]domain.Run, error) {
	query := selectColumns + ` WHERE 1=1`

	var args []any
	if status != "" {
		query += " AND status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY started_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// MarkAbandoned fails every run still in a non-terminal status.
func (r *Repository) MarkAbandoned(ctx context.Context, at time.Time) (int64, error) {
	const query = `UPDATE etl_runs SET status = ?, error_kind = ?,
		error = 'run did not finish (process exited)', updated_at = ?, finished_at = ?
		WHERE status NOT IN (?, ?)`

	ts := formatTime(at)
	res, err := r.db.ExecContext(ctx, query,
		string(domain.StatusFailed), string(apperror.Interrupted), ts, ts,
		string(domain.StatusSucceeded), string(domain.StatusFailed),
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned runs: %w", err)
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*domain.Run, error) {
	run := &domain.Run{}
	var status, startedStr, updatedStr string
	var ratesDate, errKind, errText, finishedStr sql.NullString

	if err := s.Scan(
		&run.ID, &run.Provider, &run.Base, &status, &ratesDate,
		&run.RowsWritten, &errKind, &errText, &startedStr, &updatedStr, &finishedStr,
	); err != nil {
		return nil, err
	}

	run.Status = domain.Status(status)
	run.ErrorKind = errKind.String
	run.Error = errText.String
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, startedStr)
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedStr)
	if ratesDate.Valid {
		if d, err := time.Parse(rate.DateFormat, ratesDate.String); err == nil {
			run.RatesDate = &d
		}
	}
	if finishedStr.Valid {
		if f, err := time.Parse(time.RFC3339Nano, finishedStr.String); err == nil {
			run.FinishedAt = &f
		}
	}
	return run, nil
}

// timeLayout is fixed width so started_at sorts chronologically as text.
// RFC3339Nano trims trailing zeros, which breaks that. Values written that way
// still parse with time.RFC3339Nano.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
