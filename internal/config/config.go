// Package config handles the parsing and validation of application
// configuration from command-line arguments and environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"

	"ghostlayer/internal/logging"
)

// Storage backends selectable at startup.
const (
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Config represents the complete application configuration.
type Config struct {
	Server   Server         `group:"Server Options" env-namespace:"GHOSTLAYER"`
	Storage  Storage        `group:"Storage Options" namespace:"db" env-namespace:"GHOSTLAYER_DB"`
	Sync     Sync           `group:"Synchronization Options" namespace:"sync" env-namespace:"GHOSTLAYER_SYNC"`
	Auth     Auth           `group:"Auth Options" namespace:"auth" env-namespace:"GHOSTLAYER_AUTH"`
	Enrich   Enrich         `group:"Enrichment Options" namespace:"enrich" env-namespace:"GHOSTLAYER_ENRICH"`
	Identity Identity       `group:"Identity Options" namespace:"identity" env-namespace:"GHOSTLAYER_IDENTITY"`
	Logger   logging.Config `group:"Logger Options" namespace:"log" env-namespace:"GHOSTLAYER_LOG"`
}

// Server holds the HTTP listener configuration.
type Server struct {
	Address        string        `short:"l" long:"address" env:"LISTEN_ADDRESS" description:"Server listen address" default:":8080"`
	ReadTimeout    time.Duration `long:"read-timeout" env:"READ_TIMEOUT" description:"HTTP read timeout" default:"15s"`
	WriteTimeout   time.Duration `long:"write-timeout" env:"WRITE_TIMEOUT" description:"HTTP write timeout" default:"15s"`
	LoginRateCount int           `long:"login-rate-count" env:"LOGIN_RATE_COUNT" description:"Login attempts allowed per window per IP" default:"10"`
	LoginRateWindow time.Duration `long:"login-rate-window" env:"LOGIN_RATE_WINDOW" description:"Login rate-limit window" default:"1m"`
}

// Storage holds state persistence configuration.
type Storage struct {
	Backend string `short:"b" long:"backend" env:"BACKEND" description:"Document store backend (sqlite or bolt)" default:"sqlite"`
	Path    string `short:"d" long:"path" env:"PATH" description:"Path to the database file" default:"ghostlayer.db"`
}

// Sync holds synchronization engine configuration.
type Sync struct {
	Interval     time.Duration `long:"interval" env:"INTERVAL" description:"Synchronization interval" default:"10m"`
	MaxAccrualGB float64       `long:"max-accrual-gb" env:"MAX_ACCRUAL_GB" description:"Upper bound of the simulated per-tick usage increment" default:"0.5"`
}

// Auth holds session token configuration.
type Auth struct {
	JWTSecret   string        `long:"jwt-secret" env:"JWT_SECRET" description:"JWT signing secret (generated when empty)"`
	TokenExpiry time.Duration `long:"token-expiry" env:"TOKEN_EXPIRY" description:"Session token lifetime" default:"24h"`
}

// Enrich holds the optional text-enrichment upstream configuration.
type Enrich struct {
	Endpoint string        `long:"endpoint" env:"ENDPOINT" description:"Completion endpoint URL (fallback-only when empty)"`
	APIKey   string        `long:"api-key" env:"API_KEY" description:"Completion endpoint credential"`
	Timeout  time.Duration `long:"timeout" env:"TIMEOUT" description:"Per-call enrichment timeout" default:"5s"`
}

// Identity holds the optional host identity provider configuration.
type Identity struct {
	EnvVar string `long:"env-var" env:"ENV_VAR" description:"Environment variable supplying the host identity" default:""`
}

// Parse reads configuration from args and the environment and validates it.
func Parse(args []string) (*Config, error) {
	cfg := &Config{}
	parser := flags.NewParser(cfg, flags.Default)
	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints not expressible as flag tags.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendSQLite, BackendBolt:
	default:
		return fmt.Errorf("unknown storage backend %q (expected %s or %s)", c.Storage.Backend, BackendSQLite, BackendBolt)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive")
	}
	if c.Sync.MaxAccrualGB < 0 {
		return fmt.Errorf("max accrual must not be negative")
	}
	return nil
}
