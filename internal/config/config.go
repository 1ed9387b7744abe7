package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage backends for cart sessions.
const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StorageDynamoDB = "dynamodb"
)

type Config struct {
	App      AppConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Backend  BackendConfig
	Checkout CheckoutConfig
	AWS      AWSConfig
}

type AppConfig struct {
	Env       string `envconfig:"CARTFLOW_APP_ENV" default:"dev"`
	Port      string `envconfig:"CARTFLOW_APP_PORT" default:"8080"`
	RunLocal  bool   `envconfig:"RUN_LOCAL" default:"false"`
	LogLevel  string `envconfig:"CARTFLOW_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"CARTFLOW_LOG_FORMAT" default:"json"`
}

type StorageConfig struct {
	Backend string        `envconfig:"CARTFLOW_STORAGE_BACKEND" default:"memory"`
	Table   string        `envconfig:"CARTFLOW_STORAGE_TABLE" default:"cart_sessions"`
	TTL     time.Duration `envconfig:"CARTFLOW_STORAGE_TTL" default:"720h"`
}

type RedisConfig struct {
	URL      string `envconfig:"CARTFLOW_REDIS_URL"`
	Address  string `envconfig:"CARTFLOW_REDIS_ADDR"`
	Password string `envconfig:"CARTFLOW_REDIS_PASSWORD"`
	DB       int    `envconfig:"CARTFLOW_REDIS_DB" default:"0"`
}

type BackendConfig struct {
	BaseURL        string        `envconfig:"CARTFLOW_BACKEND_URL" required:"true"`
	RequestTimeout time.Duration `envconfig:"CARTFLOW_BACKEND_TIMEOUT" default:"15s"`
	BreakerTimeout time.Duration `envconfig:"CARTFLOW_BACKEND_BREAKER_TIMEOUT" default:"30s"`
	BreakerTrips   uint32        `envconfig:"CARTFLOW_BACKEND_BREAKER_FAILURES" default:"5"`
}

type CheckoutConfig struct {
	DefaultProviderID int64         `envconfig:"CARTFLOW_DEFAULT_DECORATOR_ID" default:"1"`
	InflightTable     string        `envconfig:"CARTFLOW_INFLIGHT_TABLE"`
	InflightTTL       time.Duration `envconfig:"CARTFLOW_INFLIGHT_TTL" default:"2m"`
}

type AWSConfig struct {
	SubmissionsTable string `envconfig:"CARTFLOW_SUBMISSIONS_TABLE"`
	QueueURL         string `envconfig:"CARTFLOW_SUBMISSIONS_QUEUE_URL"`
	MetricsNamespace string `envconfig:"CARTFLOW_METRICS_NAMESPACE"`
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case StorageMemory, StorageDynamoDB:
	case StorageRedis:
		if c.Redis.URL == "" && c.Redis.Address == "" {
			return errors.New("redis storage requires CARTFLOW_REDIS_URL or CARTFLOW_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if strings.TrimSpace(c.Backend.BaseURL) == "" {
		return errors.New("CARTFLOW_BACKEND_URL is required")
	}
	// the lease must outlive a decorator lookup plus the create call
	if minTTL := 2 * c.Backend.RequestTimeout; c.Checkout.InflightTTL <= minTTL {
		return fmt.Errorf("CARTFLOW_INFLIGHT_TTL (%s) must be longer than twice CARTFLOW_BACKEND_TIMEOUT (%s)",
			c.Checkout.InflightTTL, c.Backend.RequestTimeout)
	}
	if c.Checkout.DefaultProviderID <= 0 {
		return errors.New("CARTFLOW_DEFAULT_DECORATOR_ID must be positive")
	}
	return nil
}

// WorkerConfig is what the submissions worker reads; it never calls the ordering backend.
type WorkerConfig struct {
	App AppConfig
	AWS AWSConfig
}

func LoadWorker() (*WorkerConfig, error) {
	_ = godotenv.Load()

	var cfg WorkerConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing worker config: %w", err)
	}
	if strings.TrimSpace(cfg.AWS.SubmissionsTable) == "" {
		return nil, errors.New("CARTFLOW_SUBMISSIONS_TABLE is required")
	}
	return &cfg, nil
}
