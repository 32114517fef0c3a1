package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"medteam/pkg/errors"
)

type Config struct {
	App           AppConfig
	AI            AIConfig
	Pipeline      PipelineConfig
	ErrorTracking ErrorTrackingConfig
	Metrics       MetricsConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"medteam"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// AIConfig selects the inference provider and the decoding settings shared by
// every role call.
type AIConfig struct {
	Provider    string        `envconfig:"AI_PROVIDER" default:"together"`
	TogetherKey string        `envconfig:"TOGETHER_API_KEY"`
	OpenAIKey   string        `envconfig:"OPENAI_API_KEY"`
	GeminiKey   string        `envconfig:"GEMINI_API_KEY"`
	BaseURL     string        `envconfig:"AI_BASE_URL"`
	Model       string        `envconfig:"AI_MODEL" default:"meta-llama/Llama-3-8b-chat-hf"`
	Temperature float64       `envconfig:"AI_TEMPERATURE" default:"0"` // decoding is greedy; Validate rejects other values
	MaxTokens   int           `envconfig:"AI_MAX_TOKENS" default:"512"`
	Timeout     time.Duration `envconfig:"AI_TIMEOUT" default:"60s"`

	// Client-side throttle, off unless set
	RateLimitPerMinute float64 `envconfig:"AI_RATE_LIMIT_PER_MINUTE" default:"0"`
	RateLimitBurst     int     `envconfig:"AI_RATE_LIMIT_BURST" default:"4"`
}

// ProviderName returns the normalized provider name.
func (c AIConfig) ProviderName() string {
	return strings.ToLower(strings.TrimSpace(c.Provider))
}

// APIKey returns the credential for the selected provider.
func (c AIConfig) APIKey() string {
	switch c.ProviderName() {
	case "together":
		return c.TogetherKey
	case "openai":
		return c.OpenAIKey
	case "gemini":
		return c.GeminiKey
	default:
		return ""
	}
}

// KeyEnv returns the environment variable holding the selected provider's key.
func (c AIConfig) KeyEnv() string {
	switch c.ProviderName() {
	case "together":
		return "TOGETHER_API_KEY"
	case "openai":
		return "OPENAI_API_KEY"
	case "gemini":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

type PipelineConfig struct {
	ReportPath   string `envconfig:"REPORT_PATH" default:"Medical_Report.txt"`
	OutputPath   string `envconfig:"OUTPUT_PATH" default:"results/final_diagnosis.txt"`
	PoolSize     int    `envconfig:"POOL_SIZE" default:"3"`
	TemplatesDir string `envconfig:"TEMPLATES_DIR"`
}

type ErrorTrackingConfig struct {
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"development"`
}

type MetricsConfig struct {
	// Listen address for /metrics while a run executes; empty disables the endpoint
	Addr string `envconfig:"METRICS_ADDR"`
}

// PostgresConfig points at the run history database. Empty host disables it.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"postgres"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"medteam"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"4"`
}

func (c PostgresConfig) Enabled() bool { return c.Host != "" }

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig points at the run archive. Empty host disables it.
type RedisConfig struct {
	Host     string        `envconfig:"REDIS_HOST"`
	Port     int           `envconfig:"REDIS_PORT" default:"6379"`
	Password string        `envconfig:"REDIS_PASSWORD"`
	DB       int           `envconfig:"REDIS_DB" default:"0"`
	TTL      time.Duration `envconfig:"REDIS_ARCHIVE_TTL" default:"168h"`
}

func (c RedisConfig) Enabled() bool { return c.Host != "" }

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// KafkaConfig configures run completion events. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
	Topic   string   `envconfig:"KAFKA_TOPIC" default:"consultations.completed"`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// Load reads configuration from environment variables.
// A .env file in the working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks settings that envconfig cannot express.
func (c *Config) Validate() error {
	if c.AI.KeyEnv() == "" {
		return errors.Wrapf(errors.ErrInvalidInput, "unsupported AI_PROVIDER %q", c.AI.Provider)
	}
	if c.AI.APIKey() == "" {
		return errors.Wrapf(errors.ErrMissingCredentials, "%s is not set", c.AI.KeyEnv())
	}
	if c.AI.Temperature != 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "AI_TEMPERATURE must be 0, got %g", c.AI.Temperature)
	}
	if c.AI.MaxTokens < 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "AI_MAX_TOKENS must be positive, got %d", c.AI.MaxTokens)
	}
	if c.Pipeline.PoolSize < 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "POOL_SIZE must be positive, got %d", c.Pipeline.PoolSize)
	}
	if c.Pipeline.ReportPath == "" || c.Pipeline.OutputPath == "" {
		return errors.Wrap(errors.ErrInvalidInput, "REPORT_PATH and OUTPUT_PATH are required")
	}
	return nil
}
