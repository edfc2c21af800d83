package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"timed-quiz-service/internal/app"
	"timed-quiz-service/internal/config"
	"timed-quiz-service/internal/infra/memory"
	"timed-quiz-service/internal/infra/postgres"
	redisinfra "timed-quiz-service/internal/infra/redis"
	transport "timed-quiz-service/internal/transport/http"
)

// backends are the storage implementations chosen from config. Postgres and
// Redis are each optional and fall back to process memory.
type backends struct {
	settings  app.SettingsRepository
	questions app.QuestionRepository
	cache     app.QuestionSource
	results   app.ResultRepository
	users     app.UserRepository
	attempts  transport.AttemptStorage
	registry  app.AttemptRegistry

	pool        *pgxpool.Pool
	redisClient *redis.Client
}

func openBackends(ctx context.Context, cfg *config.Config, log *zap.Logger) (*backends, error) {
	b := &backends{}

	if cfg.Postgres.URL != "" {
		pool, err := postgres.Connect(ctx, cfg.Postgres.URL, cfg.Postgres.MaxConns, cfg.Postgres.ConnectRetries, log)
		if err != nil {
			return nil, err
		}
		b.pool = pool
		b.settings = postgres.NewSettingsRepository(pool)
		b.questions = postgres.NewQuestionRepository(pool)
		b.results = postgres.NewResultRepository(pool)
		b.users = postgres.NewUserRepository(pool)
		log.Info("using postgres storage")
	} else {
		b.settings = memory.NewSettingsStore()
		b.questions = memory.NewQuestionStore()
		b.results = memory.NewResultStore()
		b.users = memory.NewUserStore()
		log.Warn("postgres url not configured, using in-memory storage")
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			b.Close()
			client.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		b.redisClient = client
		b.cache = redisinfra.NewQuestionCache(client, b.questions, cfg.Quiz.CacheTTL)
		b.attempts = redisinfra.NewAttemptStore(client, cfg.Quiz.AttemptTTL)
		b.registry = redisinfra.NewAttemptRegistry(client, cfg.Redis.TTL)
		log.Info("using redis for attempts and question cache", zap.String("addr", cfg.Redis.Addr))
	} else {
		b.cache = memory.NewQuestionCache(b.questions, cfg.Quiz.CacheTTL)
		b.attempts = memory.NewAttemptStore()
		b.registry = memory.NewAttemptRegistry()
	}
	return b, nil
}

func (b *backends) Close() {
	if b.redisClient != nil {
		_ = b.redisClient.Close()
	}
	if b.pool != nil {
		b.pool.Close()
	}
}

type services struct {
	settings  *app.SettingsService
	questions *app.QuestionService
	quiz      *app.QuizService
	results   *app.ResultService
	users     *app.UserService
}

func (b *backends) services(cfg *config.Config, log *zap.Logger) services {
	settings := app.NewSettingsService(b.settings, log, app.WithDefaultDuration(cfg.Quiz.DefaultDuration))
	return services{
		settings:  settings,
		questions: app.NewQuestionService(b.questions, b.cache, log),
		quiz:      app.NewQuizService(settings, b.cache, b.results, log, app.WithMaxTabChanges(cfg.Quiz.MaxTabChanges)),
		results:   app.NewResultService(b.results, log),
		users:     app.NewUserService(b.users, log),
	}
}
