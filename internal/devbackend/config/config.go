// Package config handles configuration for the dev backend, including
// defaults, JSON overlay, environment variables and command-line flags.
package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the FlexPay dev backend.
//
// Fields:
//   - ListenAddr: bind address for the REST endpoint.
//   - SecretKey: HMAC secret for signing JWTs (HS256). Do not use the default outside development.
//   - AuthTokenValidity / SessionTokenValidity: token lifetimes.
//   - SeedDemoUser: create the demo account at startup.
type Config struct {
	ListenAddr           string        `env:"DEVBACKEND_ADDR"`
	SecretKey            string        `env:"DEVBACKEND_SECRET"`
	AuthTokenValidity    time.Duration `env:"DEVBACKEND_AUTH_TOKEN_TTL"`
	SessionTokenValidity time.Duration `env:"DEVBACKEND_SESSION_TOKEN_TTL"`
	SeedDemoUser         bool          `env:"DEVBACKEND_SEED_DEMO"`
	LogLevel             string        `env:"DEVBACKEND_LOG_LEVEL"`
}

// Demo account created when SeedDemoUser is set.
const (
	DemoPhone    = "03001234567"
	DemoPassword = "secret123"
	DemoName     = "Demo User"
)

// LoadDefaults populates Config with development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":5000"
	c.SecretKey = "secretKey"
	c.AuthTokenValidity = 24 * time.Hour
	c.SessionTokenValidity = 15 * time.Minute
	c.SeedDemoUser = true
	c.LogLevel = "info"
}

// Load builds a Config from defaults, an optional JSON file (-c/-config),
// DEVBACKEND_* environment variables and flags, in that order.
func Load(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig is Load over os.Args and panics on error.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}
