package memory

import (
	"context"
	"sync"

	"timed-quiz-service/internal/session"
)

// AttemptStore keeps the durable attempt keys of every user, namespaced by email.
type AttemptStore struct {
	mu    sync.Mutex
	areas map[string]map[string]string
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{areas: make(map[string]map[string]string)}
}

// For returns the storage area of one attempt.
func (s *AttemptStore) For(email string) session.Storage {
	return &attemptArea{store: s, ns: userKey(email)}
}

type attemptArea struct {
	store *AttemptStore
	ns    string
}

func (a *attemptArea) Load(context.Context) (map[string]string, error) {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	out := make(map[string]string, len(a.store.areas[a.ns]))
	for k, v := range a.store.areas[a.ns] {
		out[k] = v
	}
	return out, nil
}

func (a *attemptArea) Set(_ context.Context, values map[string]string) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	area, ok := a.store.areas[a.ns]
	if !ok {
		area = make(map[string]string, len(values))
		a.store.areas[a.ns] = area
	}
	for k, v := range values {
		area[k] = v
	}
	return nil
}

func (a *attemptArea) Clear(context.Context) error {
	a.store.mu.Lock()
	defer a.store.mu.Unlock()
	delete(a.store.areas, a.ns)
	return nil
}
