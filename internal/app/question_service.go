package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

// QuestionDraft is the admin input for creating or replacing a question.
type QuestionDraft struct {
	Text               string
	Options            []string
	CorrectOptionIndex int
	Timer              int
}

// QuestionService handles admin CRUD and the sanitized client view.
type QuestionService struct {
	repo   QuestionRepository
	source QuestionSource
	logger *zap.Logger
	now    func() time.Time
}

func NewQuestionService(repo QuestionRepository, source QuestionSource, logger *zap.Logger) *QuestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QuestionService{repo: repo, source: source, logger: logger, now: time.Now}
}

// List returns every question including the answer key (admin only).
func (s *QuestionService) List(ctx context.Context) ([]domain.Question, error) {
	return s.repo.List(ctx)
}

// Active returns the question set as clients may see it.
func (s *QuestionService) Active(ctx context.Context) ([]domain.PublicQuestion, error) {
	questions, err := s.source.ActiveQuestions(ctx)
	if err != nil {
		return nil, err
	}
	public := make([]domain.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		public = append(public, q.Public())
	}
	return public, nil
}

func (s *QuestionService) Get(ctx context.Context, id string) (domain.Question, error) {
	return s.repo.Get(ctx, id)
}

func (s *QuestionService) Create(ctx context.Context, draft QuestionDraft) (domain.Question, error) {
	q, err := s.build(draft)
	if err != nil {
		return domain.Question{}, err
	}
	q.ID = uuid.NewString()
	q.CreatedAt = s.now().UTC()
	if err := s.repo.Create(ctx, q); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx)
	s.logger.Info("question created", zap.String("questionID", q.ID))
	return q, nil
}

// Update replaces a question's content, keeping its ID and position.
func (s *QuestionService) Update(ctx context.Context, id string, draft QuestionDraft) (domain.Question, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Question{}, err
	}
	q, err := s.build(draft)
	if err != nil {
		return domain.Question{}, err
	}
	q.ID = existing.ID
	q.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, q); err != nil {
		return domain.Question{}, err
	}
	s.invalidate(ctx)
	s.logger.Info("question updated", zap.String("questionID", id))
	return q, nil
}

func (s *QuestionService) Delete(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.Invalid("id", "question ID is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("question deleted", zap.String("questionID", id))
	return nil
}

func (s *QuestionService) DeleteAll(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx)
	s.logger.Info("all questions deleted", zap.Int64("count", n))
	return n, nil
}

// SetTimerForAll applies one per-question timer to the whole set.
func (s *QuestionService) SetTimerForAll(ctx context.Context, seconds int) error {
	if err := validateStruct(timerInput{Seconds: seconds}); err != nil {
		return err
	}
	if err := s.repo.SetTimer(ctx, seconds); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *QuestionService) build(draft QuestionDraft) (domain.Question, error) {
	draft.Text = strings.TrimSpace(draft.Text)
	if err := validateStruct(questionInput{
		Text:               draft.Text,
		Options:            draft.Options,
		CorrectOptionIndex: draft.CorrectOptionIndex,
		Timer:              draft.Timer,
	}); err != nil {
		return domain.Question{}, err
	}
	timer := draft.Timer
	if timer == 0 {
		timer = domain.DefaultQuestionTimer
	}
	options := make([]string, len(draft.Options))
	copy(options, draft.Options)
	return domain.Question{
		Text:               draft.Text,
		Options:            options,
		CorrectOptionIndex: draft.CorrectOptionIndex,
		Timer:              timer,
	}, nil
}

func (s *QuestionService) invalidate(ctx context.Context) {
	if err := s.source.Invalidate(ctx); err != nil {
		s.logger.Warn("question cache invalidation failed", zap.Error(err))
	}
}
