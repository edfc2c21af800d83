package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/infra/memory"
)

const (
	testAdminEmail    = "admin@example.com"
	testAdminPassword = "admin123"
)

type harness struct {
	server    *httptest.Server
	settings  *app.SettingsService
	questions *app.QuestionService
	results   *memory.ResultStore
	attempts  *memory.AttemptStore
	registry  *memory.AttemptRegistry
	token     string
}

func newHarness(t *testing.T, opts ...WSOption) *harness {
	t.Helper()

	questionStore := memory.NewQuestionStore()
	cache := memory.NewQuestionCache(questionStore, time.Minute)
	results := memory.NewResultStore()
	attempts := memory.NewAttemptStore()
	registry := memory.NewAttemptRegistry()

	settings := app.NewSettingsService(memory.NewSettingsStore(), nil)
	questions := app.NewQuestionService(questionStore, cache, nil)
	quiz := app.NewQuizService(settings, cache, results, nil)

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	auth, err := NewAuthenticator("test-secret", time.Hour, testAdminEmail, string(hash))
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}

	api := NewAPI(Deps{
		Settings:  settings,
		Questions: questions,
		Quiz:      quiz,
		Results:   app.NewResultService(results, nil),
		Users:     app.NewUserService(memory.NewUserStore(), nil),
		Auth:      auth,
		WS:        NewWSHandler(quiz, questions, attempts, registry, nil, opts...),
	})
	server := httptest.NewServer(api.Routes())
	t.Cleanup(server.Close)

	token, err := auth.Login(testAdminEmail, testAdminPassword)
	if err != nil {
		t.Fatalf("admin login: %v", err)
	}
	return &harness{
		server:    server,
		settings:  settings,
		questions: questions,
		results:   results,
		attempts:  attempts,
		registry:  registry,
		token:     token,
	}
}

func (h *harness) seedQuestions(t *testing.T, n int) {
	t.Helper()
	options := []string{"A", "B", "C", "D"}
	for i := 0; i < n; i++ {
		if _, err := h.questions.Create(context.Background(), app.QuestionDraft{
			Text:               "Question " + string(rune('1'+i)),
			Options:            options,
			CorrectOptionIndex: 1,
		}); err != nil {
			t.Fatalf("seed question: %v", err)
		}
	}
}

func (h *harness) setLive(t *testing.T, live bool) {
	t.Helper()
	if _, err := h.settings.SetLive(context.Background(), live); err != nil {
		t.Fatalf("set live: %v", err)
	}
}

func (h *harness) do(t *testing.T, method, path string, body any, admin bool) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, h.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if admin {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	resp, err := h.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
