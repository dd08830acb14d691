package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	defaultJWTSecret  = "change-me-jwt-secret"
	defaultCronSecret = "change-me-cron-secret"
)

const (
	NotifierMemory   = "memory"
	NotifierPostgres = "postgres"
	NotifierRedis    = "redis"
)

type AppConfig struct {
	AppEnv      string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"scheduler.db"`

	JWTSecret  string        `envconfig:"JWT_SECRET" default:"change-me-jwt-secret"`
	JWTTTL     time.Duration `envconfig:"JWT_TTL" default:"24h"`
	CronSecret string        `envconfig:"CRON_SECRET" default:"change-me-cron-secret"`

	NotifierBackend string `envconfig:"NOTIFIER_BACKEND" default:"memory"`
	RedisAddr       string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword   string `envconfig:"REDIS_PASSWORD"`
	RedisDB         int    `envconfig:"REDIS_DB" default:"0"`
	AMQPURL         string `envconfig:"AMQP_URL"`
	AMQPExchange    string `envconfig:"AMQP_EXCHANGE" default:"reservation.events"`

	StreamKeepalive   time.Duration `envconfig:"STREAM_KEEPALIVE" default:"25s"`
	RetentionInterval time.Duration `envconfig:"RETENTION_INTERVAL" default:"0s"`
	RetentionDryRun   bool          `envconfig:"RETENTION_DRY_RUN" default:"true"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	OTLPEndpoint       string   `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*AppConfig, error) {
	_ = godotenv.Load()

	cfg := &AppConfig{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.NotifierBackend = strings.ToLower(strings.TrimSpace(cfg.NotifierBackend))
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) IsDev() bool {
	return c.AppEnv == "" || c.AppEnv == "dev" || c.AppEnv == "development" || c.AppEnv == "local"
}

func (c *AppConfig) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func validateConfig(cfg *AppConfig) error {
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.StreamKeepalive <= 0 {
		return fmt.Errorf("STREAM_KEEPALIVE must be > 0")
	}
	if cfg.RetentionInterval < 0 {
		return fmt.Errorf("RETENTION_INTERVAL must be >= 0")
	}

	switch cfg.NotifierBackend {
	case NotifierMemory, NotifierRedis:
	case NotifierPostgres:
		if !cfg.IsPostgres() {
			return fmt.Errorf("NOTIFIER_BACKEND=postgres requires a postgres DATABASE_URL")
		}
	default:
		return fmt.Errorf("NOTIFIER_BACKEND must be one of: memory, postgres, redis")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if isEmptyOrDefault(cfg.CronSecret, defaultCronSecret) {
			return fmt.Errorf("in prod/release CRON_SECRET must be set and not default")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
