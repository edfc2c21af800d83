package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Message         string `json:"message"`
	QuizActive      *bool  `json:"quizActive,omitempty"`
	AlreadyLoggedIn bool   `json:"alreadyLoggedIn,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
	Count   *int64 `json:"count,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeServiceError maps domain errors to status codes. Anything unrecognised
// is logged and reported as a 500 without leaking details.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: validationMessage(err)})
	case errors.Is(err, domain.ErrNotLive):
		inactive := false
		writeJSON(w, http.StatusForbidden, errorResponse{Message: "Quiz is not active", QuizActive: &inactive})
	case errors.Is(err, domain.ErrNoQuestions):
		writeJSON(w, http.StatusBadRequest, errorResponse{Message: "No questions available"})
	case errors.Is(err, domain.ErrAlreadyLoggedIn):
		writeJSON(w, http.StatusForbidden, errorResponse{Message: "User already logged in", AlreadyLoggedIn: true})
	case errors.Is(err, domain.ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Question not found"})
	case errors.Is(err, domain.ErrResultNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Result not found"})
	case errors.Is(err, domain.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "User not found"})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Message: "Not found"})
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Message: "Invalid credentials"})
	case errors.Is(err, domain.ErrDuplicateResult):
		writeJSON(w, http.StatusConflict, errorResponse{Message: "Result already recorded"})
	case errors.Is(err, domain.ErrServiceUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Message: "Database service unavailable"})
	default:
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Message: "Server error"})
	}
}

func validationMessage(err error) string {
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return ve.Error()
	}
	return err.Error()
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return domain.Invalid("body", "invalid JSON payload")
	}
	return nil
}

func parseIntParam(r *http.Request, key string, defaultValue int) (int, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0, domain.Invalid(key, "must be a non-negative integer")
	}
	return parsed, nil
}

func resultQueryFrom(r *http.Request) (domain.ResultQuery, error) {
	q := r.URL.Query()
	sort, err := domain.ParseResultSort(q.Get("sort"))
	if err != nil {
		return domain.ResultQuery{}, err
	}
	return domain.ResultQuery{
		Name:  q.Get("name"),
		Email: q.Get("email"),
		Date:  q.Get("date"),
		Sort:  sort,
	}, nil
}
