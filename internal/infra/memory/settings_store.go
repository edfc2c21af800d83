package memory

import (
	"context"
	"sync"

	"timed-quiz-service/internal/domain"
)

// SettingsStore holds the singleton settings record in process memory.
type SettingsStore struct {
	mu       sync.RWMutex
	settings domain.QuizSettings
	found    bool
}

func NewSettingsStore() *SettingsStore {
	return &SettingsStore{}
}

func (s *SettingsStore) Get(context.Context) (domain.QuizSettings, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, s.found, nil
}

func (s *SettingsStore) Save(_ context.Context, settings domain.QuizSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	s.found = true
	return nil
}
