package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

// UserService keeps one active session per email.
type UserService struct {
	repo   UserRepository
	logger *zap.Logger
	now    func() time.Time
}

func NewUserService(repo UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{repo: repo, logger: logger, now: time.Now}
}

// Login marks the user as logged in. created reports a first-time registration.
func (s *UserService) Login(ctx context.Context, name, email string) (user domain.User, created bool, err error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := validateStruct(loginInput{Name: name, Email: email}); err != nil {
		return domain.User{}, false, err
	}
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Error("user store unreachable during login", zap.String("email", email), zap.Error(err))
		return domain.User{}, false, domain.ErrServiceUnavailable
	}

	now := s.now().UTC()
	existing, err := s.repo.Get(ctx, email)
	switch {
	case err == nil:
		if existing.LoggedIn {
			s.logger.Info("login rejected, already logged in", zap.String("email", email))
			return domain.User{}, false, domain.ErrAlreadyLoggedIn
		}
		existing.LoggedIn = true
		existing.LastLogin = &now
		if err := s.repo.Save(ctx, existing); err != nil {
			return domain.User{}, false, err
		}
		return existing, false, nil
	case errors.Is(err, domain.ErrUserNotFound):
		user = domain.User{Name: name, Email: email, LoggedIn: true, LastLogin: &now}
		if err := s.repo.Save(ctx, user); err != nil {
			return domain.User{}, false, err
		}
		s.logger.Info("user registered", zap.String("email", email))
		return user, true, nil
	default:
		return domain.User{}, false, err
	}
}

// Logout releases the email so it can log in again.
func (s *UserService) Logout(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return domain.Invalid("email", "is required")
	}
	if err := s.repo.Ping(ctx); err != nil {
		s.logger.Error("user store unreachable during logout", zap.String("email", email), zap.Error(err))
		return domain.ErrServiceUnavailable
	}
	user, err := s.repo.Get(ctx, email)
	if err != nil {
		return err
	}
	user.LoggedIn = false
	return s.repo.Save(ctx, user)
}
