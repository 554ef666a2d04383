package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rayyanshah04/flexpay/internal/flagx"
	"github.com/rayyanshah04/flexpay/internal/timex"
)

// JsonConfig is the on-disk form. Durations are timex.Duration so the file
// may use "15s" strings or integer nanoseconds. Pointer fields distinguish
// "absent" from a zero value.
type JsonConfig struct {
	APIBaseURL           *string         `json:"api_base_url"`
	RequestTimeout       *timex.Duration `json:"request_timeout"`
	InactivityTimeout    *timex.Duration `json:"inactivity_timeout"`
	BackgroundThreshold  *timex.Duration `json:"background_threshold"`
	DatabasePath         *string         `json:"database_path"`
	KeyStorePath         *string         `json:"keystore_path"`
	PinAttemptsPerMinute *int            `json:"pin_attempts_per_minute"`
	MetricsAddr          *string         `json:"metrics_addr"`
	LogLevel             *string         `json:"log_level"`
}

// parseJson overlays cfg with the JSON file given by -c or -config. Without
// either flag it does nothing. Keys missing from the file keep their value.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFile(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.APIBaseURL, jc.APIBaseURL)
	setDuration(&cfg.RequestTimeout, jc.RequestTimeout)
	setDuration(&cfg.InactivityTimeout, jc.InactivityTimeout)
	setDuration(&cfg.BackgroundThreshold, jc.BackgroundThreshold)
	setString(&cfg.DatabasePath, jc.DatabasePath)
	setString(&cfg.KeyStorePath, jc.KeyStorePath)
	if jc.PinAttemptsPerMinute != nil {
		cfg.PinAttemptsPerMinute = *jc.PinAttemptsPerMinute
	}
	setString(&cfg.MetricsAddr, jc.MetricsAddr)
	setString(&cfg.LogLevel, jc.LogLevel)
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
