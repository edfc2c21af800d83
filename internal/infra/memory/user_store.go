package memory

import (
	"context"
	"strings"
	"sync"

	"timed-quiz-service/internal/domain"
)

// UserStore keeps login records keyed by lower-cased email.
type UserStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[string]domain.User)}
}

func (s *UserStore) Get(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userKey(email)]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return u, nil
}

func (s *UserStore) Save(_ context.Context, u domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[userKey(u.Email)] = u
	return nil
}

// Ping always succeeds; process memory cannot be unreachable.
func (s *UserStore) Ping(context.Context) error {
	return nil
}

func userKey(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
