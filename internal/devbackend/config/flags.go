package config

import (
	"flag"
	"fmt"
	"io"
	"time"

	"github.com/rayyanshah04/flexpay/internal/flagx"
)

// parseFlags populates Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   REST bind address (e.g., ":5000")
//	-s string   JWT HMAC secret key
//	-t int      auth token validity, hours
//	-e int      session token validity, minutes
//	-demo bool  seed the demo user
//	-l string   log level
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-t", "-e", "-demo", "-l"})

	fs := flag.NewFlagSet("devbackend", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.ListenAddr, "a", config.ListenAddr, "address and port to run server")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	authValidity := fs.Int("t", int(config.AuthTokenValidity.Hours()), "auth token validity (in hours)")
	sessionValidity := fs.Int("e", int(config.SessionTokenValidity.Minutes()), "session token validity (in minutes)")
	fs.BoolVar(&config.SeedDemoUser, "demo", config.SeedDemoUser, "seed the demo user")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.AuthTokenValidity = time.Duration(*authValidity) * time.Hour
	config.SessionTokenValidity = time.Duration(*sessionValidity) * time.Minute
	return nil
}
