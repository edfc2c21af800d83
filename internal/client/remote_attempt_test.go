package client

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/session"
	transport "timed-quiz-service/internal/transport/http"
)

// TestAttemptAgainstServer runs a client-side attempt against the real API.
func TestAttemptAgainstServer(t *testing.T) {
	ctx := context.Background()
	questionStore := memory.NewQuestionStore()
	cache := memory.NewQuestionCache(questionStore, time.Minute)
	results := memory.NewResultStore()
	settings := app.NewSettingsService(memory.NewSettingsStore(), nil)
	questions := app.NewQuestionService(questionStore, cache, nil)
	quiz := app.NewQuizService(settings, cache, results, nil)

	auth, err := transport.NewAuthenticator("secret", time.Hour, "admin@example.com", "$2a$04$unusedunusedunusedunuO")
	if err != nil {
		t.Fatalf("authenticator: %v", err)
	}
	server := httptest.NewServer(transport.NewAPI(transport.Deps{
		Settings:  settings,
		Questions: questions,
		Quiz:      quiz,
		Results:   app.NewResultService(results, nil),
		Users:     app.NewUserService(memory.NewUserStore(), nil),
		Auth:      auth,
	}).Routes())
	defer server.Close()

	for _, text := range []string{"first", "second"} {
		if _, err := questions.Create(ctx, app.QuestionDraft{
			Text:               text,
			Options:            []string{"a", "b", "c", "d"},
			CorrectOptionIndex: 2,
		}); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	if _, err := settings.SetDuration(ctx, 20); err != nil {
		t.Fatalf("set duration: %v", err)
	}

	c := New(server.URL, WithHTTPClient(server.Client()))
	public, err := c.ActiveQuestions(ctx)
	if err != nil || len(public) != 2 {
		t.Fatalf("active questions: %d %v", len(public), err)
	}

	storage := memory.NewAttemptStore().For("ada@example.com")
	attempt := session.New(session.Config{
		User:          domain.Participant{Name: "Ada", Email: "ada@example.com"},
		QuestionCount: len(public),
		Storage:       storage,
		Settings:      c,
		Submitter:     c,
	})
	if err := attempt.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if snap := attempt.Snapshot(); snap.Total != 20*60 || snap.Live {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if _, err := attempt.Answer(ctx, 0, 1); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if _, err := attempt.Submit(ctx); !errors.Is(err, domain.ErrNotLive) {
		t.Fatalf("expected not live, got %v", err)
	}

	if _, err := settings.SetLive(ctx, true); err != nil {
		t.Fatalf("set live: %v", err)
	}
	summary, err := attempt.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if summary.Score != 1 || summary.Total != 2 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	all, _ := results.List(ctx)
	if len(all) != 1 || all[0].User.Email != "ada@example.com" {
		t.Fatalf("expected one stored result, got %+v", all)
	}
}
