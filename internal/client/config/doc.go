// Package config loads runtime configuration for the FlexPay CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. FLEXPAY_* environment variables (see parseEnv).
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   auth backend base URL
//	-r int      backend request timeout (seconds)
//	-t int      inactivity lock timeout (seconds, 0 disables)
//	-b int      background lock threshold (seconds)
//	-d string   local database path
//	-k string   keystore directory
//	-p int      PIN attempts per minute (0 = unlimited)
//	-m string   metrics listen address (empty = off)
//	-l string   log level
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "2m" or integer
// nanoseconds:
//
//	{
//	  "api_base_url": "http://127.0.0.1:5000",
//	  "request_timeout": "15s",
//	  "inactivity_timeout": "2m",
//	  "background_threshold": "30s",
//	  "database_path": "flexpay.db",
//	  "keystore_path": "/home/me/.flexpay/keystore",
//	  "pin_attempts_per_minute": 5,
//	  "metrics_addr": ":9090",
//	  "log_level": "debug"
//	}
//
// Environment variables mirror the flags: FLEXPAY_API_BASE,
// FLEXPAY_REQUEST_TIMEOUT, FLEXPAY_INACTIVITY_TIMEOUT,
// FLEXPAY_BACKGROUND_THRESHOLD, FLEXPAY_DB_PATH, FLEXPAY_KEYSTORE_PATH,
// FLEXPAY_PIN_ATTEMPTS_PER_MINUTE, FLEXPAY_METRICS_ADDR and FLEXPAY_LOG_LEVEL.
// Duration variables take Go duration strings ("90s").
package config
