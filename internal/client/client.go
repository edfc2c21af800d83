// Package client talks to the quiz HTTP API. It satisfies session.SettingsSource
// and session.Submitter, so an attempt can run against a remote server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"timed-quiz-service/internal/domain"
)

const (
	defaultServer       = "http://127.0.0.1:8080"
	defaultHTTPTimeout  = 10 * time.Second
	defaultLoginTimeout = 8 * time.Second
	defaultLoginRetries = 2
	defaultRetryWait    = time.Second
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode      int
	Message         string
	QuizActive      *bool
	AlreadyLoggedIn bool
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// Unwrap maps the status to the matching domain error so callers can use errors.Is.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		if e.AlreadyLoggedIn {
			return domain.ErrAlreadyLoggedIn
		}
		if e.QuizActive != nil && !*e.QuizActive {
			return domain.ErrNotLive
		}
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrDuplicateResult
	case http.StatusServiceUnavailable:
		return domain.ErrServiceUnavailable
	}
	return nil
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithLoginRetry overrides the per-request login timeout, the retry count and the wait between tries.
func WithLoginRetry(timeout time.Duration, retries uint64, wait time.Duration) Option {
	return func(c *Client) {
		c.loginTimeout = timeout
		c.loginRetries = retries
		c.retryWait = wait
	}
}

// Client is a typed wrapper over the public quiz endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger

	loginTimeout time.Duration
	loginRetries uint64
	retryWait    time.Duration
}

func New(baseURL string, opts ...Option) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultServer
	}
	c := &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
		logger:       zap.NewNop(),
		loginTimeout: defaultLoginTimeout,
		loginRetries: defaultLoginRetries,
		retryWait:    defaultRetryWait,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type durationResponse struct {
	Duration int `json:"duration"`
}

type statusResponse struct {
	IsLive bool `json:"isLive"`
}

type submitRequest struct {
	Answers        []*int `json:"answers"`
	UserName       string `json:"userName"`
	UserEmail      string `json:"userEmail"`
	TabChangeCount int    `json:"tabChangeCount"`
	AttemptKey     string `json:"attemptKey,omitempty"`
}

type errorResponse struct {
	Message         string `json:"message"`
	QuizActive      *bool  `json:"quizActive,omitempty"`
	AlreadyLoggedIn bool   `json:"alreadyLoggedIn,omitempty"`
}

// Duration returns the configured quiz length.
func (c *Client) Duration(ctx context.Context) (time.Duration, error) {
	var payload durationResponse
	if err := c.doJSON(ctx, http.MethodGet, "/settings/duration", nil, &payload); err != nil {
		return 0, err
	}
	if payload.Duration <= 0 {
		return 0, fmt.Errorf("invalid duration %d", payload.Duration)
	}
	return time.Duration(payload.Duration) * time.Minute, nil
}

// Status reports whether the quiz is live.
func (c *Client) Status(ctx context.Context) (bool, error) {
	var payload statusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/quiz/status", nil, &payload); err != nil {
		return false, err
	}
	return payload.IsLive, nil
}

func (c *Client) QuizDuration(ctx context.Context) (time.Duration, error) {
	return c.Duration(ctx)
}

func (c *Client) QuizLive(ctx context.Context) (bool, error) {
	return c.Status(ctx)
}

// ActiveQuestions fetches the sanitized question set in canonical order.
func (c *Client) ActiveQuestions(ctx context.Context) ([]domain.PublicQuestion, error) {
	var questions []domain.PublicQuestion
	if err := c.doJSON(ctx, http.MethodGet, "/quiz/active-questions", nil, &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

// Submit posts a completed attempt. A 403 with quizActive=false matches domain.ErrNotLive.
func (c *Client) Submit(ctx context.Context, sub domain.Submission) (domain.SubmissionSummary, error) {
	req := submitRequest{
		Answers:        sub.Answers,
		UserName:       sub.UserName,
		UserEmail:      sub.UserEmail,
		TabChangeCount: sub.TabChanges,
		AttemptKey:     sub.AttemptKey,
	}
	if req.Answers == nil {
		req.Answers = []*int{}
	}
	var summary domain.SubmissionSummary
	if err := c.doJSON(ctx, http.MethodPost, "/quiz/submit", req, &summary); err != nil {
		return domain.SubmissionSummary{}, err
	}
	return summary, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	_, err := c.do(ctx, method, path, requestBody, responseBody)
	return err
}

// do returns the status code of a successful response.
func (c *Client) do(ctx context.Context, method, path string, requestBody any, responseBody any) (int, error) {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
			apiErr.Message = payload.Message
			apiErr.QuizActive = payload.QuizActive
			apiErr.AlreadyLoggedIn = payload.AlreadyLoggedIn
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return response.StatusCode, &apiErr
	}

	if responseBody == nil {
		return response.StatusCode, nil
	}
	return response.StatusCode, json.NewDecoder(response.Body).Decode(responseBody)
}
