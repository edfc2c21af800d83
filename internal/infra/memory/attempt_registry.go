package memory

import (
	"context"
	"sync"
)

// AttemptRegistry is an in-memory implementation of app.AttemptRegistry.
type AttemptRegistry struct {
	mu   sync.Mutex
	open map[string]struct{}
}

func NewAttemptRegistry() *AttemptRegistry {
	return &AttemptRegistry{open: make(map[string]struct{})}
}

// Claim reports false when the email already has an open attempt.
func (r *AttemptRegistry) Claim(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := userKey(email)
	if _, ok := r.open[key]; ok {
		return false, nil
	}
	r.open[key] = struct{}{}
	return true, nil
}

func (r *AttemptRegistry) Release(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.open, userKey(email))
	return nil
}
