package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rayyanshah04/flexpay/internal/flagx"
	"github.com/rayyanshah04/flexpay/internal/timex"
)

// JsonConfig mirrors Config for JSON input. Absent keys keep their value.
type JsonConfig struct {
	ListenAddr           *string         `json:"listen_addr"`
	SecretKey            *string         `json:"secret_key"`
	AuthTokenValidity    *timex.Duration `json:"auth_token_validity"`
	SessionTokenValidity *timex.Duration `json:"session_token_validity"`
	SeedDemoUser         *bool           `json:"seed_demo_user"`
	LogLevel             *string         `json:"log_level"`
}

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

	if jc.ListenAddr != nil {
		cfg.ListenAddr = *jc.ListenAddr
	}
	if jc.SecretKey != nil {
		cfg.SecretKey = *jc.SecretKey
	}
	if jc.AuthTokenValidity != nil {
		cfg.AuthTokenValidity = jc.AuthTokenValidity.Duration
	}
	if jc.SessionTokenValidity != nil {
		cfg.SessionTokenValidity = jc.SessionTokenValidity.Duration
	}
	if jc.SeedDemoUser != nil {
		cfg.SeedDemoUser = *jc.SeedDemoUser
	}
	if jc.LogLevel != nil {
		cfg.LogLevel = *jc.LogLevel
	}
	return nil
}
