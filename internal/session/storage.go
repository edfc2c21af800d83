// Package session implements one user's pass through the quiz: the countdown
// timer, the tab-focus monitor and the guarded submission, all persisted to a
// durable key/value area so a reload resumes where the user left off.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Persisted keys. They are written independently but always cleared together.
const (
	KeyTimerStarted    = "timerStarted"
	KeyTimerStartTime  = "timerStartTime" // unix milliseconds
	KeyTotalDuration   = "totalDuration"  // seconds
	KeyAnswers         = "quizAnswers"    // JSON object: question index -> option index
	KeyCurrentQuestion = "currentQuestion"
	KeyTabChanges      = "tabChangeCount"
)

// Keys lists every key an attempt may persist.
var Keys = []string{
	KeyTimerStarted,
	KeyTimerStartTime,
	KeyTotalDuration,
	KeyAnswers,
	KeyCurrentQuestion,
	KeyTabChanges,
}

// Storage is the durable area belonging to a single attempt.
type Storage interface {
	// Load returns every key currently present.
	Load(ctx context.Context) (map[string]string, error)
	// Set writes the given keys in one operation.
	Set(ctx context.Context, values map[string]string) error
	// Clear removes all attempt keys atomically.
	Clear(ctx context.Context) error
}

// AttemptKey derives the idempotency token for an attempt from the user and
// the persisted start timestamp, so every resubmission of one attempt carries
// the same key.
func AttemptKey(email string, startedAt time.Time) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email)) + "|" + strconv.FormatInt(startedAt.UnixMilli(), 10)))
	return hex.EncodeToString(sum[:])
}
