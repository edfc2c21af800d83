package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"timed-quiz-service/internal/domain"
)

// QuestionLoader fetches the question set from the backing store.
type QuestionLoader interface {
	List(ctx context.Context) ([]domain.Question, error)
}

const activeQuestionsKey = "quiz:questions:active"

// QuestionCache caches the active question set in Redis as one JSON document
// and falls back to the loader on a miss:
//
//	SET quiz:questions:active <json> EX <ttl>
type QuestionCache struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ActiveQuestions(ctx context.Context) ([]domain.Question, error) {
	if qs, ok := c.cached(ctx); ok {
		return qs, nil
	}

	result, err, _ := c.sf.Do(activeQuestionsKey, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := c.cached(ctx); ok {
			return qs, nil
		}

		questions, err := c.loader.List(ctx)
		if err != nil {
			return nil, err
		}

		if ttl := c.ttlWithJitter(); ttl > 0 {
			raw, err := json.Marshal(questions)
			if err != nil {
				return nil, fmt.Errorf("encode questions: %w", err)
			}
			_ = c.client.Set(ctx, activeQuestionsKey, raw, ttl).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate deletes the cached document.
func (c *QuestionCache) Invalidate(ctx context.Context) error {
	c.sf.Forget(activeQuestionsKey)
	if err := c.client.Del(ctx, activeQuestionsKey).Err(); err != nil {
		return fmt.Errorf("invalidate questions: %w", err)
	}
	return nil
}

func (c *QuestionCache) cached(ctx context.Context) ([]domain.Question, bool) {
	raw, err := c.client.Get(ctx, activeQuestionsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(raw, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}

func isNil(err error) bool {
	return errors.Is(err, redis.Nil)
}
