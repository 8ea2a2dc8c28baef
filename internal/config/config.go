package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App       AppConfig
	Postgres  PostgresConfig
	Redis     RedisConfig
	Logger    LoggerConfig
	Auth      AuthConfig
	Triage    TriageConfig
	Mail      MailConfig
	Events    EventsConfig
	Pipeline  PipelineConfig
	RateLimit RateLimitConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" env-default:"ticket-ai"`
	Env                   string `env:"APP_ENV" env-default:"development"`
	Host                  string `env:"APP_HOST" env-default:"0.0.0.0"`
	Port                  string `env:"APP_PORT" env-default:"8080"`
	Version               string `env:"APP_VERSION" env-default:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" env-default:"30"`
	WorkerEnabled         bool   `env:"WORKER_ENABLED" env-default:"true"`
}

// PostgresConfig holds DB connection values. An empty DSN selects in-memory stores.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" env-default:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" env-default:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" env-default:"true"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" env-default:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" env-default:"300"`
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string `env:"AUTH_JWT_SECRET" env-default:"dev-secret"`
	AccessTokenTTLMinutes int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES" env-default:"60"`
	BcryptCost            int    `env:"AUTH_BCRYPT_COST" env-default:"10"`
}

// TriageConfig configures the LLM used for ticket triage.
type TriageConfig struct {
	APIKey     string        `env:"TRIAGE_API_KEY"`
	Model      string        `env:"TRIAGE_MODEL" env-default:"claude-3-5-haiku-latest"`
	BaseURL    string        `env:"TRIAGE_BASE_URL"`
	MaxTokens  int64         `env:"TRIAGE_MAX_TOKENS" env-default:"1024"`
	Timeout    time.Duration `env:"TRIAGE_TIMEOUT" env-default:"30s"`
	MaxRetries int           `env:"TRIAGE_MAX_RETRIES" env-default:"2"`
}

// MailConfig holds SMTP settings. An empty Host logs mail instead of sending it.
type MailConfig struct {
	Host     string        `env:"SMTP_HOST"`
	Port     int           `env:"SMTP_PORT" env-default:"587"`
	Username string        `env:"SMTP_USERNAME"`
	Password string        `env:"SMTP_PASSWORD"`
	From     string        `env:"MAIL_FROM" env-default:"noreply@example.com"`
	FromName string        `env:"MAIL_FROM_NAME" env-default:"Ticket AI System"`
	Timeout  time.Duration `env:"SMTP_TIMEOUT" env-default:"15s"`
}

// EventsConfig tunes the Redis stream consumer.
type EventsConfig struct {
	Stream      string        `env:"EVENTS_STREAM" env-default:"ticket-ai:events"`
	Group       string        `env:"EVENTS_GROUP" env-default:"ticket-ai-workers"`
	Consumer    string        `env:"EVENTS_CONSUMER"`
	Block       time.Duration `env:"EVENTS_BLOCK" env-default:"5s"`
	ReclaimIdle time.Duration `env:"EVENTS_RECLAIM_IDLE" env-default:"5m"`
	BufferSize  int           `env:"EVENTS_BUFFER_SIZE" env-default:"256"`
	// MaxDeliveries bounds redelivery of a failing entry; 0 disables the cap.
	MaxDeliveries    int64  `env:"EVENTS_MAX_DELIVERIES" env-default:"5"`
	DeadLetterStream string `env:"EVENTS_DEAD_LETTER_STREAM" env-default:"ticket-ai:events:dead"`
}

// PipelineConfig sets the retry policy of pipeline steps.
type PipelineConfig struct {
	StepRetries   uint64        `env:"PIPELINE_STEP_RETRIES" env-default:"3"`
	NotifyRetries uint64        `env:"PIPELINE_NOTIFY_RETRIES" env-default:"2"`
	Backoff       time.Duration `env:"PIPELINE_BACKOFF" env-default:"200ms"`
	MaxBackoff    time.Duration `env:"PIPELINE_MAX_BACKOFF" env-default:"5s"`
}

// RateLimitConfig limits credential endpoints per client IP.
type RateLimitConfig struct {
	AuthLimit  int64         `env:"RATE_LIMIT_AUTH_LIMIT" env-default:"20"`
	AuthPeriod time.Duration `env:"RATE_LIMIT_AUTH_PERIOD" env-default:"1m"`
	Prefix     string        `env:"RATE_LIMIT_PREFIX" env-default:"ticket-ai:ratelimit"`
}

// Load reads configuration from a .env file (if present) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.BcryptCost < 4 || c.Auth.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("AUTH_BCRYPT_COST must be between 4 and 31, got %d", c.Auth.BcryptCost))
	}
	if c.Auth.AccessTokenTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TOKEN_TTL_MINUTES must be positive"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must not be empty"))
	} else if c.App.IsProduction() && c.Auth.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	if c.RateLimit.AuthLimit <= 0 || c.RateLimit.AuthPeriod <= 0 {
		errs = append(errs, errors.New("rate limit for auth endpoints must be positive"))
	}
	if c.Pipeline.Backoff <= 0 {
		errs = append(errs, errors.New("PIPELINE_BACKOFF must be positive"))
	}
	if c.Events.MaxDeliveries < 0 {
		errs = append(errs, errors.New("EVENTS_MAX_DELIVERIES must not be negative"))
	}
	if c.Events.Block == 0 {
		errs = append(errs, errors.New("EVENTS_BLOCK must not be zero"))
	}
	if c.Mail.Host != "" && c.Mail.Port <= 0 {
		errs = append(errs, errors.New("SMTP_PORT must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// IsProduction reports whether APP_ENV names a production deployment.
func (a AppConfig) IsProduction() bool {
	return a.Env == "production" || a.Env == "prod"
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued access tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}
