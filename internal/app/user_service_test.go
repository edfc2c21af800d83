package app_test

import (
	"context"
	"errors"
	"testing"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
)

type downUserStore struct {
	*memory.UserStore
}

func (downUserStore) Ping(context.Context) error { return errors.New("connection refused") }

func TestUserLoginLifecycle(t *testing.T) {
	ctx := context.Background()
	service := app.NewUserService(memory.NewUserStore(), nil)

	user, created, err := service.Login(ctx, "Ada Lovelace", "ada@example.com")
	if err != nil || !created || !user.LoggedIn {
		t.Fatalf("expected new user, got %+v %v %v", user, created, err)
	}
	if _, _, err := service.Login(ctx, "Ada Lovelace", "ADA@example.com"); !errors.Is(err, domain.ErrAlreadyLoggedIn) {
		t.Fatalf("expected already logged in, got %v", err)
	}
	if err := service.Logout(ctx, "ada@example.com"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	user, created, err = service.Login(ctx, "Ada Lovelace", "ada@example.com")
	if err != nil || created || user.LastLogin == nil {
		t.Fatalf("expected returning user, got %+v %v %v", user, created, err)
	}
}

func TestUserLoginValidation(t *testing.T) {
	service := app.NewUserService(memory.NewUserStore(), nil)

	for _, tc := range []struct{ name, email string }{
		{"", "ada@example.com"},
		{"Ada1", "ada@example.com"},
		{"Ada", "not-an-email"},
	} {
		if _, _, err := service.Login(context.Background(), tc.name, tc.email); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%q/%q: expected validation error, got %v", tc.name, tc.email, err)
		}
	}
}

func TestUserLoginStoreDown(t *testing.T) {
	service := app.NewUserService(downUserStore{memory.NewUserStore()}, nil)

	if _, _, err := service.Login(context.Background(), "Ada", "ada@example.com"); !errors.Is(err, domain.ErrServiceUnavailable) {
		t.Fatalf("expected service unavailable, got %v", err)
	}
}

func TestLogoutUnknownUser(t *testing.T) {
	service := app.NewUserService(memory.NewUserStore(), nil)

	if err := service.Logout(context.Background(), "ghost@example.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user not found, got %v", err)
	}
}
