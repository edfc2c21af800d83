package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrMissingAuth is returned by RequireAuth when the admin credentials are not configured.
var ErrMissingAuth = errors.New("auth.jwt_secret, auth.admin_email and auth.admin_password_hash are required")

type Config struct {
	Env      string   `mapstructure:"env"`
	Server   Server   `mapstructure:"server"`
	Redis    Redis    `mapstructure:"redis"`
	Postgres Postgres `mapstructure:"postgres"`
	Quiz     Quiz     `mapstructure:"quiz"`
	Auth     Auth     `mapstructure:"auth"`
}

type Server struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Redis is optional; an empty Addr keeps attempts, the question cache and the
// open-attempt registry in process memory.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"` // open-attempt registry key lifetime
}

// Postgres is optional; an empty URL keeps settings, questions, results and users in memory.
type Postgres struct {
	URL            string `mapstructure:"url"`
	MaxConns       int32  `mapstructure:"max_conns"`
	ConnectRetries uint64 `mapstructure:"connect_retries"`
}

type Quiz struct {
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	DefaultDuration int           `mapstructure:"default_duration"` // minutes
	MaxTabChanges   int           `mapstructure:"max_tab_changes"`
	AttemptTTL      time.Duration `mapstructure:"attempt_ttl"`
}

type Auth struct {
	JWTSecret         string        `mapstructure:"jwt_secret"`
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	AdminEmail        string        `mapstructure:"admin_email"`
	AdminPasswordHash string        `mapstructure:"admin_password_hash"`
}

// Load reads the YAML file at path, if it exists, and overlays the environment.
// Nested keys map to upper-case underscore names (QUIZ_CACHE_TTL), and a few
// conventional names are bound explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("env", "local")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "2h")
	v.SetDefault("postgres.url", "")
	v.SetDefault("postgres.max_conns", 10)
	v.SetDefault("postgres.connect_retries", 5)
	v.SetDefault("quiz.cache_ttl", "10m")
	v.SetDefault("quiz.default_duration", 30)
	v.SetDefault("quiz.max_tab_changes", 2)
	v.SetDefault("quiz.attempt_ttl", "24h")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "24h")
	v.SetDefault("auth.admin_email", "")
	v.SetDefault("auth.admin_password_hash", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("env", "APP_ENV")
	_ = v.BindEnv("postgres.url", "DATABASE_URL")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("auth.admin_email", "ADMIN_EMAIL")
	_ = v.BindEnv("auth.admin_password_hash", "ADMIN_PASSWORD_HASH")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("error loading config file: %w", err)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	return &cfg, nil
}

// RequireAuth checks the settings the admin API cannot start without.
func (c *Config) RequireAuth() error {
	if c.Auth.JWTSecret == "" || c.Auth.AdminEmail == "" || c.Auth.AdminPasswordHash == "" {
		return ErrMissingAuth
	}
	return nil
}

// Production reports whether the production logger and settings apply.
func (c *Config) Production() bool {
	return c.Env == "production"
}
