package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the FlexPay CLI.
//
// Durations are time.Duration. PinAttemptsPerMinute of zero disables PIN
// throttling; an empty MetricsAddr disables the metrics listener.
type Config struct {
	APIBaseURL           string        `env:"FLEXPAY_API_BASE"`
	RequestTimeout       time.Duration `env:"FLEXPAY_REQUEST_TIMEOUT"`
	InactivityTimeout    time.Duration `env:"FLEXPAY_INACTIVITY_TIMEOUT"`
	BackgroundThreshold  time.Duration `env:"FLEXPAY_BACKGROUND_THRESHOLD"`
	DatabasePath         string        `env:"FLEXPAY_DB_PATH"`
	KeyStorePath         string        `env:"FLEXPAY_KEYSTORE_PATH"`
	PinAttemptsPerMinute int           `env:"FLEXPAY_PIN_ATTEMPTS_PER_MINUTE"`
	MetricsAddr          string        `env:"FLEXPAY_METRICS_ADDR"`
	LogLevel             string        `env:"FLEXPAY_LOG_LEVEL"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://127.0.0.1:5000"
	c.RequestTimeout = 15 * time.Second
	c.InactivityTimeout = 2 * time.Minute
	c.BackgroundThreshold = 30 * time.Second
	c.DatabasePath = "flexpay.db"
	c.KeyStorePath = defaultKeyStorePath()
	c.PinAttemptsPerMinute = 0
	c.MetricsAddr = ""
	c.LogLevel = "info"
}

func defaultKeyStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".flexpay", "keystore")
	}
	return filepath.Join(home, ".flexpay", "keystore")
}

// Load builds a Config from defaults, then the JSON file named by -c/-config
// in args, then FLEXPAY_* environment variables, then flags in args. Later
// sources take precedence.
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

// LoadConfig is Load over os.Args. It panics on a bad config source.
func LoadConfig() *Config {
	cfg, err := Load(os.Args[1:])
	if err != nil {
		panic(err)
	}
	return cfg
}
