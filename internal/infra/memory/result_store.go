package memory

import (
	"context"
	"strings"
	"sync"

	"timed-quiz-service/internal/domain"
)

// ResultStore is an append-only in-memory result collection.
type ResultStore struct {
	mu      sync.RWMutex
	results []domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

func (s *ResultStore) Create(_ context.Context, r domain.Result) (domain.Result, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.results {
		if !strings.EqualFold(existing.User.Email, r.User.Email) {
			continue
		}
		if r.AttemptKey != "" && existing.AttemptKey == r.AttemptKey {
			return cloneResult(existing), false, nil
		}
		if existing.CreatedAt.Equal(r.CreatedAt) {
			return domain.Result{}, false, domain.ErrDuplicateResult
		}
	}
	s.results = append(s.results, cloneResult(r))
	return cloneResult(r), true, nil
}

func (s *ResultStore) List(context.Context) ([]domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, len(s.results))
	for i, r := range s.results {
		out[i] = cloneResult(r)
	}
	return out, nil
}

func (s *ResultStore) Get(_ context.Context, id string) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.ID == id {
			return cloneResult(r), nil
		}
	}
	return domain.Result{}, domain.ErrResultNotFound
}

func (s *ResultStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, r := range s.results {
		if r.ID == id {
			s.results = append(s.results[:i], s.results[i+1:]...)
			return nil
		}
	}
	return domain.ErrResultNotFound
}

func (s *ResultStore) DeleteAll(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.results))
	s.results = nil
	return n, nil
}

func cloneResult(r domain.Result) domain.Result {
	r.Answers = append([]domain.AnswerBreakdown(nil), r.Answers...)
	return r
}
