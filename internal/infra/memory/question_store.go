package memory

import (
	"context"
	"sync"

	"timed-quiz-service/internal/domain"
)

// QuestionStore keeps questions in insertion order, which is the canonical order.
type QuestionStore struct {
	mu        sync.RWMutex
	questions []domain.Question
}

func NewQuestionStore() *QuestionStore {
	return &QuestionStore{}
}

func (s *QuestionStore) List(context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneQuestions(s.questions), nil
}

func (s *QuestionStore) Get(_ context.Context, id string) (domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return cloneQuestion(s.questions[i]), nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

func (s *QuestionStore) Create(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = append(s.questions, cloneQuestion(q))
	return nil
}

func (s *QuestionStore) Update(_ context.Context, q domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(q.ID)
	if i < 0 {
		return domain.ErrQuestionNotFound
	}
	s.questions[i] = cloneQuestion(q)
	return nil
}

func (s *QuestionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.ErrQuestionNotFound
	}
	s.questions = append(s.questions[:i], s.questions[i+1:]...)
	return nil
}

func (s *QuestionStore) DeleteAll(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.questions))
	s.questions = nil
	return n, nil
}

func (s *QuestionStore) SetTimer(_ context.Context, seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.questions {
		s.questions[i].Timer = seconds
	}
	return nil
}

func (s *QuestionStore) indexOf(id string) int {
	for i, q := range s.questions {
		if q.ID == id {
			return i
		}
	}
	return -1
}
