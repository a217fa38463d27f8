package app

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"30s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`
	RateLimit         int           `envconfig:"RATE_LIMIT" default:"300"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"12h"`
	SessionCookie string        `envconfig:"SESSION_COOKIE" default:"marketdesk_sid"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	MarketAPIURL     string        `envconfig:"MARKET_API_URL" default:"http://127.0.0.1:4000/api"`
	MarketAPITimeout time.Duration `envconfig:"MARKET_API_TIMEOUT" default:"15s"`
	MutationTimeout  time.Duration `envconfig:"MUTATION_TIMEOUT" default:"20s"`

	WorkspaceIdleTTL time.Duration `envconfig:"WORKSPACE_IDLE_TTL" default:"30m"`
	WorkspaceMax     int           `envconfig:"WORKSPACE_MAX" default:"1024"`
	NotifyTTL        time.Duration `envconfig:"NOTIFY_TTL" default:"1h"`

	Locale   string `envconfig:"LOCALE" default:"id-ID"`
	Currency string `envconfig:"CURRENCY" default:"IDR"`

	GotenbergURL      string        `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
	ExportTTL         time.Duration `envconfig:"EXPORT_TTL" default:"30m"`
	WorkerConcurrency int           `envconfig:"WORKER_CONCURRENCY" default:"4"`
	WorkerMetricsAddr string        `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
}

// LoadConfig reads configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.MarketAPIURL == "" {
		return nil, errors.New("marketplace api url must be provided")
	}
	return &cfg, nil
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}
