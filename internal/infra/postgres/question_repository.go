package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"timed-quiz-service/internal/domain"
)

// QuestionRepository persists questions; options are stored as a JSONB array.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

const questionColumns = `id, text, options, correct_option_index, timer, created_at`

func (r *QuestionRepository) List(ctx context.Context) ([]domain.Question, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+questionColumns+` FROM questions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return questions, nil
}

func (r *QuestionRepository) Get(ctx context.Context, id string) (domain.Question, error) {
	q, err := scanQuestion(r.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	return q, err
}

func (r *QuestionRepository) Create(ctx context.Context, q domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO questions (id, text, options, correct_option_index, timer, created_at)
		VALUES ($1, $2, $3::jsonb, $4, $5, $6)`,
		q.ID, q.Text, options, q.CorrectOptionIndex, q.Timer, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

func (r *QuestionRepository) Update(ctx context.Context, q domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("encode options: %w", err)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE questions SET text = $2, options = $3::jsonb, correct_option_index = $4, timer = $5
		WHERE id = $1`,
		q.ID, q.Text, options, q.CorrectOptionIndex, q.Timer,
	)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r *QuestionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuestionNotFound
	}
	return nil
}

func (r *QuestionRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions`)
	if err != nil {
		return 0, fmt.Errorf("delete questions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *QuestionRepository) SetTimer(ctx context.Context, seconds int) error {
	if _, err := r.pool.Exec(ctx, `UPDATE questions SET timer = $1`, seconds); err != nil {
		return fmt.Errorf("set question timer: %w", err)
	}
	return nil
}

func scanQuestion(row pgx.Row) (domain.Question, error) {
	var (
		q       domain.Question
		options []byte
	)
	if err := row.Scan(&q.ID, &q.Text, &options, &q.CorrectOptionIndex, &q.Timer, &q.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Question{}, err
		}
		return domain.Question{}, fmt.Errorf("scan question: %w", err)
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
	}
	return q, nil
}
