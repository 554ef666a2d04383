package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	touch()
	println(args ...any)
	Login(ctx context.Context) error
	PinStatus(ctx context.Context) error
	SetPin(ctx context.Context) error
	Unlock(ctx context.Context) error
	Biometric(ctx context.Context) error
	Profile(ctx context.Context) error
	Refresh(ctx context.Context) error
	Lock(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
	Background(ctx context.Context) error
	Foreground(ctx context.Context) error
	DeviceToken(ctx context.Context, token string) error
}

// runREPL starts a simple read-eval-print loop for the FlexPay CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Every non-empty line counts as user activity
// and restarts the inactivity timer before the command runs. The loop exits
// on EOF or when the user types "exit" or "quit".
//
// Prompt & Commands
//
//	Not logged in:
//	  - help                 - show available commands
//	  - login                - sign in with phone number and password
//	  - status               - show session state
//	  - exit | quit          - leave the program
//
//	Logged in:
//	  - help                 - show available commands
//	  - unlock               - enter the PIN
//	  - biometric            - unlock with the device prompt
//	  - setpin               - create a PIN
//	  - pin-status           - ask whether a PIN is set
//	  - profile              - fetch the account profile (unlocked only)
//	  - refresh              - renew the session token (unlocked only)
//	  - lock                 - lock now
//	  - background           - simulate the app going to background
//	  - foreground           - simulate returning to the app
//	  - device-token <token> - simulate a push token registration
//	  - status               - show session state
//	  - logout               - sign out
//	  - exit | quit          - leave the program
//
// Errors returned by command handlers are ignored here; handlers report
// their own errors. This keeps the REPL loop resilient and focused on I/O.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		a.println(fmt.Sprintf("flexpay %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]
		a.touch()

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				a.println("Available commands: unlock, biometric, setpin, pin-status, profile, refresh, lock, background, foreground, device-token, status, logout, exit")
			} else {
				a.println("Available commands: login, status, exit")
			}

		case "login":
			_ = a.Login(ctx)

		case "pin-status":
			_ = a.PinStatus(ctx)

		case "setpin":
			_ = a.SetPin(ctx)

		case "unlock":
			_ = a.Unlock(ctx)

		case "biometric":
			_ = a.Biometric(ctx)

		case "profile":
			_ = a.Profile(ctx)

		case "refresh":
			_ = a.Refresh(ctx)

		case "lock":
			_ = a.Lock(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "status":
			_ = a.Status(ctx)

		case "background":
			_ = a.Background(ctx)

		case "foreground":
			_ = a.Foreground(ctx)

		case "device-token":
			if len(args) == 0 {
				a.println("Usage: device-token <token>")
				continue
			}
			_ = a.DeviceToken(ctx, args[0])

		case "exit", "quit":
			a.println("Bye!")
			return

		default:
			a.println("Unknown command:", cmd)
		}

		if err != nil {
			return
		}
	}
}
