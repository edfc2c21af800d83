package integration

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/domain"
	"timed-quiz-service/internal/infra/postgres"
	pgmigrations "timed-quiz-service/internal/infra/postgres/migrations"
	infraredis "timed-quiz-service/internal/infra/redis"
	"timed-quiz-service/internal/session"
)

type stack struct {
	settings  *app.SettingsService
	questions *app.QuestionService
	quiz      *app.QuizService
	results   *app.ResultService
	users     *app.UserService
	attempts  *infraredis.AttemptStore
	registry  *infraredis.AttemptRegistry
}

func TestAttemptEndToEnd(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	for _, text := range []string{"2 + 2?", "3 + 3?"} {
		if _, err := s.questions.Create(ctx, app.QuestionDraft{
			Text:               text,
			Options:            []string{"4", "6", "8", "10"},
			CorrectOptionIndex: 1,
		}); err != nil {
			t.Fatalf("create question: %v", err)
		}
	}
	if _, err := s.settings.SetLive(ctx, true); err != nil {
		t.Fatalf("set live: %v", err)
	}

	claimed, err := s.registry.Claim(ctx, "ada@example.com")
	if err != nil || !claimed {
		t.Fatalf("claim attempt: %v %v", claimed, err)
	}
	defer s.registry.Release(ctx, "ada@example.com")

	newAttempt := func() *session.Attempt {
		a := session.New(session.Config{
			User:          domain.Participant{Name: "Ada", Email: "ada@example.com"},
			QuestionCount: 2,
			Storage:       s.attempts.For("ada@example.com"),
			Settings:      s.quiz,
			Submitter:     s.quiz,
		})
		if err := a.Load(ctx); err != nil {
			t.Fatalf("load attempt: %v", err)
		}
		return a
	}

	first := newAttempt()
	if _, err := first.Answer(ctx, 0, 0); err != nil {
		t.Fatalf("answer: %v", err)
	}
	if first.State() != session.Running {
		t.Fatalf("expected running, got %s", first.State())
	}

	// a reload picks up the timer and answers from redis
	reloaded := newAttempt()
	snap := reloaded.Snapshot()
	if answer, ok := snap.Answers[0]; snap.State != session.Running.String() || !ok || answer != 0 {
		t.Fatalf("unexpected snapshot after reload %+v", snap)
	}
	summary, err := reloaded.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if summary.Score != 1 || summary.Total != 2 || summary.Breakdown[1].UserAnswer != domain.NotAnswered {
		t.Fatalf("unexpected summary %+v", summary)
	}

	values, err := s.attempts.For("ada@example.com").Load(ctx)
	if err != nil || len(values) != 0 {
		t.Fatalf("attempt storage should be cleared, got %v %v", values, err)
	}

	view, err := s.results.List(ctx, domain.ResultQuery{Email: "ada@"})
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(view) != 1 || view[0].AttemptKey == "" {
		t.Fatalf("expected one keyed result, got %+v", view)
	}

	// a retried submission with the same key returns the stored result
	again, err := s.quiz.Submit(ctx, domain.Submission{
		Answers:    []*int{nil, nil},
		UserName:   "Ada",
		UserEmail:  "ada@example.com",
		AttemptKey: view[0].AttemptKey,
	})
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if again.ResultID != view[0].ID || again.Score != 1 {
		t.Fatalf("expected stored result back, got %+v", again)
	}

	bob, err := s.quiz.Submit(ctx, domain.Submission{
		Answers:    []*int{nil, nil},
		UserName:   "Bob",
		UserEmail:  "bob@example.com",
		AttemptKey: view[0].AttemptKey,
	})
	if err != nil {
		t.Fatalf("submit with another email: %v", err)
	}
	if bob.ResultID == view[0].ID || bob.Score != 0 {
		t.Fatalf("expected a separate result for bob, got %+v", bob)
	}
}

func TestPostgresRepositories(t *testing.T) {
	ctx := context.Background()
	s := newStack(t, ctx)

	if _, err := s.settings.SetDuration(ctx, 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	settings, err := s.settings.SetDuration(ctx, 42)
	if err != nil || settings.Duration != 42 {
		t.Fatalf("set duration: %+v %v", settings, err)
	}
	live, err := s.quiz.QuizLive(ctx)
	if err != nil || live {
		t.Fatalf("expected not live, got %v %v", live, err)
	}

	_, created, err := s.users.Login(ctx, "Ada Lovelace", "Ada@Example.com")
	if err != nil || !created {
		t.Fatalf("login: %v %v", created, err)
	}
	if _, _, err := s.users.Login(ctx, "Ada Lovelace", "ada@example.com"); !errors.Is(err, domain.ErrAlreadyLoggedIn) {
		t.Fatalf("expected already logged in, got %v", err)
	}
	if err := s.users.Logout(ctx, "ada@example.com"); err != nil {
		t.Fatalf("logout: %v", err)
	}

	q, err := s.questions.Create(ctx, app.QuestionDraft{
		Text:               "Capital of France?",
		Options:            []string{"Paris", "Rome", "Berlin", "Madrid"},
		CorrectOptionIndex: 1,
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}
	if err := s.questions.SetTimerForAll(ctx, 60); err != nil {
		t.Fatalf("set timer: %v", err)
	}
	stored, err := s.questions.Get(ctx, q.ID)
	if err != nil || stored.Timer != 60 || stored.Options[0] != "Paris" {
		t.Fatalf("unexpected stored question %+v %v", stored, err)
	}
	if err := s.questions.Delete(ctx, q.ID); err != nil {
		t.Fatalf("delete question: %v", err)
	}
	if _, err := s.questions.Get(ctx, q.ID); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func newStack(t *testing.T, ctx context.Context) *stack {
	t.Helper()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	t.Cleanup(pgCleanup)
	redisURL, redisCleanup := startRedis(t, ctx)
	t.Cleanup(redisCleanup)

	migrateSchema(t, ctx, pgURL)

	pool, err := postgres.Connect(ctx, pgURL, 4, 5, zap.NewNop())
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	t.Cleanup(pool.Close)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { redisClient.Close() })

	questionRepo := postgres.NewQuestionRepository(pool)
	cache := infraredis.NewQuestionCache(redisClient, questionRepo, time.Minute)
	settings := app.NewSettingsService(postgres.NewSettingsRepository(pool), nil)
	results := postgres.NewResultRepository(pool)

	return &stack{
		settings:  settings,
		questions: app.NewQuestionService(questionRepo, cache, nil),
		quiz:      app.NewQuizService(settings, cache, results, nil),
		results:   app.NewResultService(results, nil),
		users:     app.NewUserService(postgres.NewUserRepository(pool), nil),
		attempts:  infraredis.NewAttemptStore(redisClient, time.Hour),
		registry:  infraredis.NewAttemptRegistry(redisClient, time.Hour),
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	return fmt.Sprintf("redis://%s:%s", host, port.Port()), func() {
		_ = container.Terminate(ctx)
	}
}

func migrateSchema(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
