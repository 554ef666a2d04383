package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/rayyanshah04/flexpay/internal/flagx"
)

var flagNames = []string{"-a", "-r", "-t", "-b", "-d", "-k", "-p", "-m", "-l"}

// parseFlags overlays cfg with command-line flags. Durations are given in
// whole seconds. Only the flags listed in flagNames are looked at, so -c and
// any flags of other components are ignored.
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("flexpay", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "auth backend base URL")
	requestTimeout := fs.Int("r", int(cfg.RequestTimeout.Seconds()), "backend request timeout (in seconds)")
	inactivity := fs.Int("t", int(cfg.InactivityTimeout.Seconds()), "inactivity lock timeout (in seconds, 0 disables)")
	background := fs.Int("b", int(cfg.BackgroundThreshold.Seconds()), "background lock threshold (in seconds)")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.KeyStorePath, "k", cfg.KeyStorePath, "keystore directory")
	fs.IntVar(&cfg.PinAttemptsPerMinute, "p", cfg.PinAttemptsPerMinute, "PIN attempts allowed per minute (0 = unlimited)")
	fs.StringVar(&cfg.MetricsAddr, "m", cfg.MetricsAddr, "address for the /metrics listener")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(flagx.FilterArgs(args, flagNames)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	cfg.RequestTimeout = time.Duration(*requestTimeout) * time.Second
	cfg.InactivityTimeout = time.Duration(*inactivity) * time.Second
	cfg.BackgroundThreshold = time.Duration(*background) * time.Second
	return nil
}
