package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"timed-quiz-service/internal/domain"
)

// SettingsRepository stores the singleton row of quiz_settings.
type SettingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) *SettingsRepository {
	return &SettingsRepository{pool: pool}
}

func (r *SettingsRepository) Get(ctx context.Context) (domain.QuizSettings, bool, error) {
	var s domain.QuizSettings
	err := r.pool.QueryRow(ctx,
		`SELECT duration, is_live, updated_at FROM quiz_settings WHERE id = 1`,
	).Scan(&s.Duration, &s.IsLive, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizSettings{}, false, nil
	}
	if err != nil {
		return domain.QuizSettings{}, false, fmt.Errorf("get settings: %w", err)
	}
	return s, true, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s domain.QuizSettings) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO quiz_settings (id, duration, is_live, updated_at)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE
		SET duration = EXCLUDED.duration, is_live = EXCLUDED.is_live, updated_at = EXCLUDED.updated_at`,
		s.Duration, s.IsLive, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}
