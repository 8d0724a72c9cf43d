// Package config loads cart service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	CatalogMongo    = "mongo"
	CatalogSQLite   = "sqlite"
	CatalogPostgres = "postgres"
)

type Config struct {
	GRPCPort string `env:"CART_SERVICE_PORT" envDefault:"50052"`
	HTTPPort string `env:"HTTP_PORT" envDefault:"8080"`

	MongoURI         string `env:"MONGO_URI" envDefault:"mongodb://localhost:27017"`
	MongoDBName      string `env:"MONGO_DB_NAME" envDefault:"cartdb"`
	MongoMaxPoolSize uint64 `env:"MONGO_MAX_POOL_SIZE" envDefault:"100"`

	RedisAddr     string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL      time.Duration `env:"CACHE_TTL" envDefault:"15m"`

	// An empty broker list disables the checkout consumer.
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envSeparator:","`
	CheckoutTopic string   `env:"CHECKOUT_TOPIC" envDefault:"checkout-outbox"`
	KafkaGroupID  string   `env:"KAFKA_GROUP_ID" envDefault:"cart-service-consumer"`

	CatalogDriver string `env:"CATALOG_DRIVER" envDefault:"mongo"`
	// CatalogDSN is ignored by the mongo driver, which shares MONGO_URI.
	CatalogDSN string `env:"CATALOG_DSN" envDefault:"file:catalog.db?_pragma=foreign_keys(1)"`

	CatalogTimeout     time.Duration `env:"CATALOG_TIMEOUT" envDefault:"2s"`
	StoreTimeout       time.Duration `env:"STORE_TIMEOUT" envDefault:"3s"`
	MaxAttempts        int           `env:"CART_MAX_ATTEMPTS" envDefault:"3"`
	SweepConcurrency   int           `env:"SWEEP_CONCURRENCY" envDefault:"8"`
	BreakerMaxFailures uint32        `env:"BREAKER_MAX_FAILURES" envDefault:"5"`
	BreakerOpenTimeout time.Duration `env:"BREAKER_OPEN_TIMEOUT" envDefault:"10s"`

	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogDevelopment bool   `env:"LOG_DEVELOPMENT" envDefault:"false"`
}

// Load parses the environment and validates the result.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.CatalogDriver {
	case CatalogMongo, CatalogSQLite, CatalogPostgres:
	default:
		errs = append(errs, fmt.Errorf("CATALOG_DRIVER must be one of mongo, sqlite, postgres, got %q", c.CatalogDriver))
	}
	if c.CatalogDriver != CatalogMongo && c.CatalogDSN == "" {
		errs = append(errs, errors.New("CATALOG_DSN is required for sql catalogs"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("CART_MAX_ATTEMPTS must be at least 1, got %d", c.MaxAttempts))
	}
	if c.SweepConcurrency < 1 {
		errs = append(errs, fmt.Errorf("SWEEP_CONCURRENCY must be at least 1, got %d", c.SweepConcurrency))
	}
	if c.CatalogTimeout <= 0 || c.StoreTimeout <= 0 || c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("CATALOG_TIMEOUT, STORE_TIMEOUT and REQUEST_TIMEOUT must be positive"))
	}
	return errors.Join(errs...)
}
