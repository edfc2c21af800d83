package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"timed-quiz-service/internal/domain"
)

// QuestionLoader fetches the question set from the backing store.
type QuestionLoader interface {
	List(ctx context.Context) ([]domain.Question, error)
}

const activeKey = "active"

// QuestionCache keeps the active question set with a TTL to avoid a store hit
// on every quiz load. Admin mutations call Invalidate.
type QuestionCache struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	questions []domain.Question
	expiresAt time.Time
	loaded    bool
	// generation changes on Invalidate so an in-flight load cannot repopulate stale data.
	generation uint64
}

func NewQuestionCache(loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ActiveQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := c.cached(c.clock()); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(activeKey, func() (interface{}, error) {
		now := c.clock()
		if qs, ok := c.cached(now); ok {
			return qs, nil
		}

		c.mu.RLock()
		gen := c.generation
		c.mu.RUnlock()

		questions, err := c.loader.List(ctx)
		if err != nil {
			return nil, err
		}

		expiresAt := now.Add(c.ttlWithJitter())
		c.mu.Lock()
		if gen == c.generation {
			c.questions = questions
			c.expiresAt = expiresAt
			c.loaded = true
		}
		c.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

// Invalidate drops the cached set.
func (c *QuestionCache) Invalidate(context.Context) error {
	c.mu.Lock()
	c.questions = nil
	c.loaded = false
	c.generation++
	c.mu.Unlock()
	c.sf.Forget(activeKey)
	return nil
}

func (c *QuestionCache) cached(now time.Time) ([]domain.Question, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.loaded || !c.expiresAt.After(now) {
		return nil, false
	}
	return cloneQuestions(c.questions), true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func cloneQuestions(in []domain.Question) []domain.Question {
	out := make([]domain.Question, len(in))
	for i, q := range in {
		out[i] = cloneQuestion(q)
	}
	return out
}

func cloneQuestion(q domain.Question) domain.Question {
	q.Options = append([]string(nil), q.Options...)
	return q
}
