package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"timed-quiz-service/internal/session"
)

// AttemptStore keeps each user's attempt keys in one hash:
//
//	HSET quiz:attempt:{email} timerStarted true timerStartTime ... totalDuration ...
//
// Clearing is a single DEL, so all keys disappear together. The hash expires
// after ttl of inactivity so abandoned attempts do not accumulate.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl}
}

// For returns the storage area of one attempt.
func (s *AttemptStore) For(email string) session.Storage {
	return &attemptArea{client: s.client, ttl: s.ttl, key: attemptKey(email)}
}

type attemptArea struct {
	client *redis.Client
	ttl    time.Duration
	key    string
}

func (a *attemptArea) Load(ctx context.Context) (map[string]string, error) {
	values, err := a.client.HGetAll(ctx, a.key).Result()
	if err != nil && !isNil(err) {
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	if values == nil {
		values = map[string]string{}
	}
	return values, nil
}

func (a *attemptArea) Set(ctx context.Context, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	fields := make([]interface{}, 0, len(values)*2)
	for k, v := range values {
		fields = append(fields, k, v)
	}
	pipe := a.client.TxPipeline()
	pipe.HSet(ctx, a.key, fields...)
	if a.ttl > 0 {
		pipe.Expire(ctx, a.key, a.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save attempt: %w", err)
	}
	return nil
}

func (a *attemptArea) Clear(ctx context.Context) error {
	if err := a.client.Del(ctx, a.key).Err(); err != nil {
		return fmt.Errorf("clear attempt: %w", err)
	}
	return nil
}

func attemptKey(email string) string {
	return "quiz:attempt:" + strings.ToLower(strings.TrimSpace(email))
}
