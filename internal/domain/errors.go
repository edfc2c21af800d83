package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is matched by every ValidationError.
	ErrValidation = errors.New("validation failed")
	// ErrNotLive is returned when a submission arrives while the quiz is inactive.
	ErrNotLive = errors.New("quiz is not active")
	// ErrNoQuestions indicates there is nothing to score against.
	ErrNoQuestions = errors.New("no questions available")
	// ErrNotFound is the parent of every missing-record error.
	ErrNotFound = errors.New("not found")
	// ErrQuestionNotFound indicates a question ID is unknown.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrResultNotFound indicates a result ID is unknown.
	ErrResultNotFound = fmt.Errorf("result %w", ErrNotFound)
	// ErrUserNotFound indicates a login record is missing.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrServiceUnavailable is returned when the storage backend cannot be reached.
	ErrServiceUnavailable = errors.New("storage service unavailable")
	// ErrAlreadyLoggedIn rejects a second concurrent session under one email.
	ErrAlreadyLoggedIn = errors.New("user already logged in")
	// ErrUnauthorized covers bad admin credentials and tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDuplicateResult is returned when (email, createdAt) collides.
	ErrDuplicateResult = errors.New("duplicate result")
)

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Is lets callers test with errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
