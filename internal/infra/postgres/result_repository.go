package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"timed-quiz-service/internal/domain"
)

const (
	uniqueViolation        = "23505"
	emailCreatedConstraint = "results_email_created_at_key"
)

// ResultRepository persists immutable results; the per-question breakdown is JSONB.
type ResultRepository struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

const resultColumns = `id, user_name, user_email, score, total, answers, tab_changes, flagged, COALESCE(attempt_key, ''), created_at`

// Create inserts r. A result that repeats an attempt key for the same email is
// not inserted; the stored one is returned instead.
func (r *ResultRepository) Create(ctx context.Context, res domain.Result) (domain.Result, bool, error) {
	answers, err := json.Marshal(res.Answers)
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("encode answers: %w", err)
	}
	var attemptKey *string
	if res.AttemptKey != "" {
		attemptKey = &res.AttemptKey
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO results (id, user_name, user_email, score, total, answers, tab_changes, flagged, attempt_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7, $8, $9, $10)
		ON CONFLICT (lower(user_email), attempt_key) DO NOTHING`,
		res.ID, res.User.Name, res.User.Email, res.Score, res.Total, answers,
		res.TabChanges, res.Flagged, attemptKey, res.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == emailCreatedConstraint {
			return domain.Result{}, false, domain.ErrDuplicateResult
		}
		return domain.Result{}, false, fmt.Errorf("create result: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return res, true, nil
	}

	existing, err := scanResult(r.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM results WHERE lower(user_email) = lower($1) AND attempt_key = $2`,
		res.User.Email, res.AttemptKey))
	if err != nil {
		return domain.Result{}, false, fmt.Errorf("load existing result: %w", err)
	}
	return existing, false, nil
}

func (r *ResultRepository) List(ctx context.Context) ([]domain.Result, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+resultColumns+` FROM results ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	defer rows.Close()

	var results []domain.Result
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return results, nil
}

func (r *ResultRepository) Get(ctx context.Context, id string) (domain.Result, error) {
	res, err := scanResult(r.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM results WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return res, err
}

func (r *ResultRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM results WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete result: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrResultNotFound
	}
	return nil
}

func (r *ResultRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM results`)
	if err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanResult(row pgx.Row) (domain.Result, error) {
	var (
		res     domain.Result
		answers []byte
	)
	err := row.Scan(&res.ID, &res.User.Name, &res.User.Email, &res.Score, &res.Total, &answers,
		&res.TabChanges, &res.Flagged, &res.AttemptKey, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Result{}, err
		}
		return domain.Result{}, fmt.Errorf("scan result: %w", err)
	}
	if err := json.Unmarshal(answers, &res.Answers); err != nil {
		return domain.Result{}, fmt.Errorf("unmarshal answers: %w", err)
	}
	return res, nil
}
