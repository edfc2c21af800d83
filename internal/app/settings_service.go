package app

import (
	"context"
	"time"

	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

// SettingsService owns the quiz duration and live flag. Writes are last-write-wins.
type SettingsService struct {
	repo            SettingsRepository
	logger          *zap.Logger
	now             func() time.Time
	defaultDuration int
}

type SettingsOption func(*SettingsService)

// WithDefaultDuration sets the duration written when settings are first created.
// Values outside [1,180] are ignored.
func WithDefaultDuration(minutes int) SettingsOption {
	return func(s *SettingsService) {
		if minutes >= domain.MinDurationMinutes && minutes <= domain.MaxDurationMinutes {
			s.defaultDuration = minutes
		}
	}
}

func NewSettingsService(repo SettingsRepository, logger *zap.Logger, opts ...SettingsOption) *SettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &SettingsService{
		repo:            repo,
		logger:          logger,
		now:             time.Now,
		defaultDuration: domain.DefaultDurationMinutes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Settings returns the current record, creating the default one on first read.
func (s *SettingsService) Settings(ctx context.Context) (domain.QuizSettings, error) {
	settings, found, err := s.repo.Get(ctx)
	if err != nil {
		return domain.QuizSettings{}, err
	}
	if found {
		return settings, nil
	}

	settings = domain.DefaultSettings()
	settings.Duration = s.defaultDuration
	settings.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, settings); err != nil {
		return domain.QuizSettings{}, err
	}
	s.logger.Info("created default quiz settings", zap.Int("duration", settings.Duration))
	return settings, nil
}

// SetDuration updates the duration in minutes; values outside [1,180] leave settings untouched.
func (s *SettingsService) SetDuration(ctx context.Context, minutes int) (domain.QuizSettings, error) {
	if err := validateStruct(durationInput{Minutes: minutes}); err != nil {
		return domain.QuizSettings{}, err
	}
	settings, err := s.Settings(ctx)
	if err != nil {
		return domain.QuizSettings{}, err
	}
	settings.Duration = minutes
	settings.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, settings); err != nil {
		return domain.QuizSettings{}, err
	}
	s.logger.Info("quiz duration updated", zap.Int("duration", minutes))
	return settings, nil
}

// SetLive flips the activation flag.
func (s *SettingsService) SetLive(ctx context.Context, live bool) (domain.QuizSettings, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return domain.QuizSettings{}, err
	}
	settings.IsLive = live
	settings.UpdatedAt = s.now().UTC()
	if err := s.repo.Save(ctx, settings); err != nil {
		return domain.QuizSettings{}, err
	}
	s.logger.Info("quiz status changed", zap.Bool("isLive", live))
	return settings, nil
}

// QuizDuration is the attempt length.
func (s *SettingsService) QuizDuration(ctx context.Context) (time.Duration, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return 0, err
	}
	return time.Duration(settings.Duration) * time.Minute, nil
}

// QuizLive reports the live flag. A missing record means not live and is not created here.
func (s *SettingsService) QuizLive(ctx context.Context) (bool, error) {
	settings, found, err := s.repo.Get(ctx)
	if err != nil {
		return false, err
	}
	return found && settings.IsLive, nil
}
