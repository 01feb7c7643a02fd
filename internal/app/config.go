package app

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the console.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"15s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	AppRateLimit      int           `envconfig:"APP_RATE_LIMIT" default:"120"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`

	RegistryAPIURL     string        `envconfig:"REGISTRY_API_URL" default:"http://127.0.0.1:3000/api"`
	RegistryAPIToken   string        `envconfig:"REGISTRY_API_TOKEN"`
	RegistryAPITimeout time.Duration `envconfig:"REGISTRY_API_TIMEOUT" default:"15s"`
	RegistryAPIRPS     float64       `envconfig:"REGISTRY_API_RPS" default:"0"`

	// PGDSN enables the mutation audit log when set.
	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr  string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"720h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	OptionsCacheTTL     time.Duration `envconfig:"OPTIONS_CACHE_TTL" default:"10m"`
	OptionsLocalTTL     time.Duration `envconfig:"OPTIONS_LOCAL_TTL" default:"1m"`
	OptionsWarmSchedule string        `envconfig:"OPTIONS_WARM_SCHEDULE" default:"@every 30m"`
	// WorkerMetricsAddr serves the worker's /metrics; empty disables it.
	WorkerMetricsAddr  string   `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	ScreensFile        string   `envconfig:"SCREENS_FILE"`
}

// LoadConfig reads configuration from environment variables, after loading
// an optional .env file from the working directory.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if strings.TrimSpace(cfg.RegistryAPIURL) == "" {
		return nil, errors.New("registry api url must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// AuditEnabled reports whether mutations are written to Postgres.
func (c *Config) AuditEnabled() bool {
	return c != nil && c.PGDSN != ""
}

// Level maps LOG_LEVEL onto a slog level.
func (c *Config) Level() slog.Level {
	if c == nil {
		return slog.LevelInfo
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
