package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog/log"

	"string_server/store"
)

// Environment represents different deployment environments
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvProduction  Environment = "production"
)

// Store drivers
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverDynamoDB = "dynamodb"
)

// Config holds the configuration for the string server.
// Environment variables are parsed from the STRING_ prefix.
type Config struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`

	// HTTP Configuration
	Port               int    `envconfig:"PORT" default:"8080"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Storage: memory, sqlite or dynamodb
	StoreDriver  string `envconfig:"STORE_DRIVER" default:""`
	SQLitePath   string `envconfig:"SQLITE_PATH" default:"data/string.db"`
	TxMaxRetries int    `envconfig:"TX_MAX_RETRIES" default:"5"`

	// DynamoDB
	AWSRegion         string `envconfig:"AWS_REGION" default:"us-east-1"`
	DynamoTable       string `envconfig:"DYNAMO_TABLE" default:"String"`
	DynamoEndpoint    string `envconfig:"DYNAMO_ENDPOINT" default:""`
	DynamoCreateTable bool   `envconfig:"DYNAMO_CREATE_TABLE" default:"false"`
	// Static credentials; defaulted to dummy values when DYNAMO_ENDPOINT points at DynamoDB Local
	DynamoAccessKeyID     string `envconfig:"DYNAMO_ACCESS_KEY_ID" default:""`
	DynamoSecretAccessKey string `envconfig:"DYNAMO_SECRET_ACCESS_KEY" default:""`

	// Background expiry sweep; 0 disables it
	ExpirySweepInterval time.Duration `envconfig:"EXPIRY_SWEEP_INTERVAL" default:"5m"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// ResolveDefaults derives the store driver from the environment when unset and validates the result.
func (c *Config) ResolveDefaults() error {
	switch c.Environment {
	case EnvDevelopment, EnvTesting, EnvProduction:
	default:
		return fmt.Errorf("unsupported ENVIRONMENT: %s", c.Environment)
	}

	if c.StoreDriver == "" || c.StoreDriver == "auto" {
		if c.IsProduction() {
			c.StoreDriver = DriverDynamoDB
		} else {
			c.StoreDriver = DriverMemory
		}
	}
	c.StoreDriver = strings.ToLower(c.StoreDriver)

	switch c.StoreDriver {
	case DriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_DRIVER=memory is not durable and cannot run in production")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("STORE_DRIVER=sqlite requires SQLITE_PATH")
		}
	case DriverDynamoDB:
		if c.DynamoTable == "" {
			return fmt.Errorf("STORE_DRIVER=dynamodb requires DYNAMO_TABLE")
		}
		if c.DynamoEndpoint != "" && c.DynamoAccessKeyID == "" {
			c.DynamoAccessKeyID, c.DynamoSecretAccessKey = "local", "local"
		}
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}

	if c.TxMaxRetries <= 0 {
		c.TxMaxRetries = store.DefaultMaxRetries
	}
	if c.ExpirySweepInterval < 0 {
		return fmt.Errorf("EXPIRY_SWEEP_INTERVAL must not be negative")
	}
	return nil
}

// New creates a new Config by parsing environment variables
// Example: STRING_PORT, STRING_STORE_DRIVER
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("STRING", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.ResolveDefaults(); err != nil {
		return nil, err
	}

	log.Info().
		Str("environment", string(cfg.Environment)).
		Str("store_driver", cfg.StoreDriver).
		Int("port", cfg.Port).
		Str("aws_region", cfg.AWSRegion).
		Str("dynamo_table", cfg.DynamoTable).
		Bool("dynamo_endpoint_override", cfg.DynamoEndpoint != "").
		Dur("expiry_sweep_interval", cfg.ExpirySweepInterval).
		Msg("Configuration loaded")

	return &cfg, nil
}

// NewForTesting creates a config specifically for testing
func NewForTesting() *Config {
	return &Config{
		Environment:         EnvTesting,
		Port:                8080,
		CORSAllowedOrigins:  "*",
		StoreDriver:         DriverMemory,
		TxMaxRetries:        store.DefaultMaxRetries,
		AWSRegion:           "us-east-1",
		DynamoTable:         "String",
		ExpirySweepInterval: time.Minute,
		LogLevel:            "debug",
	}
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

// GetHTTPAddr returns the HTTP server address
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
