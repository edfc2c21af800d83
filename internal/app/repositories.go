package app

import (
	"context"

	"timed-quiz-service/internal/domain"
)

// SettingsRepository stores the singleton quiz settings record.
// Get reports found=false when the record has never been written.
type SettingsRepository interface {
	Get(ctx context.Context) (settings domain.QuizSettings, found bool, err error)
	Save(ctx context.Context, settings domain.QuizSettings) error
}

// QuestionRepository is the admin-owned question set, listed in canonical order.
type QuestionRepository interface {
	List(ctx context.Context) ([]domain.Question, error)
	Get(ctx context.Context, id string) (domain.Question, error)
	Create(ctx context.Context, q domain.Question) error
	Update(ctx context.Context, q domain.Question) error
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
	SetTimer(ctx context.Context, seconds int) error
}

// QuestionSource serves the active question set, usually through a cache.
type QuestionSource interface {
	ActiveQuestions(ctx context.Context) ([]domain.Question, error)
	Invalidate(ctx context.Context) error
}

// ResultRepository is the append-only result collection.
// Create returns the already stored result and created=false when a result with
// the same non-empty AttemptKey exists.
type ResultRepository interface {
	Create(ctx context.Context, r domain.Result) (stored domain.Result, created bool, err error)
	List(ctx context.Context) ([]domain.Result, error)
	Get(ctx context.Context, id string) (domain.Result, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// UserRepository stores login records keyed by email.
type UserRepository interface {
	Get(ctx context.Context, email string) (domain.User, error)
	Save(ctx context.Context, u domain.User) error
	Ping(ctx context.Context) error
}

// AttemptRegistry tracks which emails currently have a live attempt channel open.
type AttemptRegistry interface {
	Claim(ctx context.Context, email string) (bool, error)
	Release(ctx context.Context, email string) error
}
