package redis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptRegistry marks which emails have a live attempt channel open. The
// marker carries a TTL so a crashed process cannot lock a user out forever.
type AttemptRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptRegistry(client *redis.Client, ttl time.Duration) *AttemptRegistry {
	return &AttemptRegistry{client: client, ttl: ttl}
}

func (r *AttemptRegistry) Claim(ctx context.Context, email string) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.key(email), "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim attempt: %w", err)
	}
	return ok, nil
}

func (r *AttemptRegistry) Release(ctx context.Context, email string) error {
	if err := r.client.Del(ctx, r.key(email)).Err(); err != nil {
		return fmt.Errorf("release attempt: %w", err)
	}
	return nil
}

func (r *AttemptRegistry) key(email string) string {
	return "quiz:attempt:open:" + strings.ToLower(strings.TrimSpace(email))
}
