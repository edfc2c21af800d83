package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

// DefaultMaxTabChanges is the count a well-behaved client auto-submits at.
const DefaultMaxTabChanges = 2

// QuizService runs the submission pipeline: liveness, scoring, persistence.
type QuizService struct {
	settings      *SettingsService
	questions     QuestionSource
	results       ResultRepository
	logger        *zap.Logger
	now           func() time.Time
	maxTabChanges int
}

// QuizOption customises a QuizService.
type QuizOption func(*QuizService)

// WithMaxTabChanges sets the count above which results are flagged. 0 disables flagging.
func WithMaxTabChanges(n int) QuizOption {
	return func(s *QuizService) { s.maxTabChanges = n }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) QuizOption {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(settings *SettingsService, questions QuestionSource, results ResultRepository, logger *zap.Logger, opts ...QuizOption) *QuizService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &QuizService{
		settings:      settings,
		questions:     questions,
		results:       results,
		logger:        logger,
		now:           time.Now,
		maxTabChanges: DefaultMaxTabChanges,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QuizDuration and QuizLive let in-process attempts read settings directly.
func (s *QuizService) QuizDuration(ctx context.Context) (time.Duration, error) {
	return s.settings.QuizDuration(ctx)
}

func (s *QuizService) QuizLive(ctx context.Context) (bool, error) {
	return s.settings.QuizLive(ctx)
}

// Submit scores a completed attempt and persists exactly one Result for it.
// Liveness is always re-read from storage; nothing the client says about it is trusted.
func (s *QuizService) Submit(ctx context.Context, sub domain.Submission) (domain.SubmissionSummary, error) {
	sub.UserName = strings.TrimSpace(sub.UserName)
	sub.UserEmail = strings.TrimSpace(sub.UserEmail)
	if err := validateStruct(submissionInput{
		UserName:   sub.UserName,
		UserEmail:  sub.UserEmail,
		Answers:    sub.Answers,
		TabChanges: sub.TabChanges,
	}); err != nil {
		return domain.SubmissionSummary{}, err
	}

	live, err := s.settings.QuizLive(ctx)
	if err != nil {
		return domain.SubmissionSummary{}, err
	}
	if !live {
		s.logger.Info("submission rejected, quiz not live", zap.String("email", sub.UserEmail))
		return domain.SubmissionSummary{}, domain.ErrNotLive
	}

	questions, err := s.questions.ActiveQuestions(ctx)
	if err != nil {
		return domain.SubmissionSummary{}, err
	}
	if len(questions) == 0 {
		return domain.SubmissionSummary{}, domain.ErrNoQuestions
	}

	score, breakdown, err := Score(questions, sub.Answers)
	if err != nil {
		return domain.SubmissionSummary{}, err
	}

	result := domain.Result{
		ID:         uuid.NewString(),
		User:       domain.Participant{Name: sub.UserName, Email: sub.UserEmail},
		Score:      score,
		Total:      len(questions),
		Answers:    breakdown,
		TabChanges: sub.TabChanges,
		Flagged:    s.maxTabChanges > 0 && sub.TabChanges > s.maxTabChanges,
		AttemptKey: sub.AttemptKey,
		CreatedAt:  s.now().UTC(),
	}

	stored, created, err := s.results.Create(ctx, result)
	if err != nil {
		s.logger.Error("persist result failed", zap.String("email", sub.UserEmail), zap.Error(err))
		return domain.SubmissionSummary{}, err
	}
	if !created {
		s.logger.Info("duplicate submission collapsed",
			zap.String("email", sub.UserEmail),
			zap.String("resultID", stored.ID),
		)
	} else {
		s.logger.Info("result stored",
			zap.String("email", stored.User.Email),
			zap.String("resultID", stored.ID),
			zap.Int("score", stored.Score),
			zap.Int("total", stored.Total),
			zap.Int("tabChanges", stored.TabChanges),
			zap.Bool("flagged", stored.Flagged),
		)
	}
	return stored.Summary(), nil
}

// Score compares answers to the key in the server's canonical question order.
// answers[i] is the 0-based option chosen for questions[i]; nil or missing
// entries count as unanswered. Entries beyond the question set are ignored.
func Score(questions []domain.Question, answers []*int) (int, []domain.AnswerBreakdown, error) {
	score := 0
	breakdown := make([]domain.AnswerBreakdown, 0, len(questions))
	for i, q := range questions {
		item := domain.AnswerBreakdown{
			Question:      q.Text,
			CorrectAnswer: q.CorrectText(),
		}
		if i >= len(answers) || answers[i] == nil {
			item.UserAnswer = domain.NotAnswered
			breakdown = append(breakdown, item)
			continue
		}

		selected := *answers[i]
		if selected < 0 || selected >= len(q.Options) {
			return 0, nil, domain.Invalid("answers", "option index out of range")
		}
		item.UserAnswer = q.Options[selected]
		item.Correct = selected == q.CorrectOptionIndex-1
		if item.Correct {
			score++
		}
		breakdown = append(breakdown, item)
	}
	return score, breakdown, nil
}
