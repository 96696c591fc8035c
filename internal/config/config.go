package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/tournevent/courierhub/pkg/shipper"
	"go.opentelemetry.io/otel/attribute"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Carrier configuration
	CatalogPath   string        `envconfig:"CATALOG_PATH"`
	OverridesPath string        `envconfig:"OVERRIDES_PATH" default:"carriers.yaml"`
	DatabaseURL   string        `envconfig:"DATABASE_URL"`
	SecretKey     string        `envconfig:"SECRET_KEY"`
	HTTPTimeout   time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`

	// Token cache; empty keeps tokens in process memory.
	RedisURL    string `envconfig:"REDIS_URL"`
	RedisPrefix string `envconfig:"REDIS_PREFIX" default:"courierhub:token:"`

	// Rate shopping
	RatePolicy              string        `envconfig:"RATE_POLICY" default:"cost"`
	RatePriority            []string      `envconfig:"RATE_PRIORITY"`
	RateDeadline            time.Duration `envconfig:"RATE_DEADLINE" default:"8s"`
	RateCarrierTimeout      time.Duration `envconfig:"RATE_CARRIER_TIMEOUT" default:"5s"`
	RateCheckServiceability bool          `envconfig:"RATE_CHECK_SERVICEABILITY" default:"false"`
	RateMaxConcurrency      int           `envconfig:"RATE_MAX_CONCURRENCY" default:"0"`

	// Status events
	KafkaBrokers []string `envconfig:"KAFKA_BROKERS"`
	KafkaTopic   string   `envconfig:"KAFKA_TOPIC" default:"shipment.status"`
	WebhookToken string   `envconfig:"WEBHOOK_TOKEN"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"http://localhost:4318/v1/traces"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"courierhub"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads configuration from environment variables, after loading any
// .env files found in the working directory. Variables already set win.
func Load(files ...string) (*Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if _, err := cfg.Rates(); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return &cfg, nil
}

// Rates returns the rate-shop settings.
func (c *Config) Rates() (shipper.OrchestratorConfig, error) {
	policy, err := shipper.ParseRankPolicy(c.RatePolicy)
	if err != nil {
		return shipper.OrchestratorConfig{}, err
	}

	priority := make([]shipper.Code, 0, len(c.RatePriority))
	for _, name := range c.RatePriority {
		if strings.TrimSpace(name) == "" {
			continue
		}
		code, ok := shipper.ParseCode(name)
		if !ok {
			return shipper.OrchestratorConfig{}, fmt.Errorf("RATE_PRIORITY: unknown carrier %q", name)
		}
		priority = append(priority, code)
	}

	return shipper.OrchestratorConfig{
		CarrierTimeout:      c.RateCarrierTimeout,
		Deadline:            c.RateDeadline,
		Policy:              policy,
		Priority:            priority,
		CheckServiceability: c.RateCheckServiceability,
		MaxConcurrency:      c.RateMaxConcurrency,
	}, nil
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.String("rates.policy", c.RatePolicy),
		attribute.Bool("overrides.database", c.DatabaseURL != ""),
		attribute.Bool("tokens.redis", c.RedisURL != ""),
		attribute.Bool("events.kafka", len(c.KafkaBrokers) > 0),
	}
}
