package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	loggedIn bool

	calls   []string
	touches int
	token   string
	lines   []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) touch()           { f.touches++ }
func (f *fakeExec) println(args ...any) {
	f.lines = append(f.lines, strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) PinStatus(ctx context.Context) error {
	f.calls = append(f.calls, "pin-status")
	return nil
}
func (f *fakeExec) SetPin(ctx context.Context) error { f.calls = append(f.calls, "setpin"); return nil }
func (f *fakeExec) Unlock(ctx context.Context) error { f.calls = append(f.calls, "unlock"); return nil }
func (f *fakeExec) Biometric(ctx context.Context) error {
	f.calls = append(f.calls, "biometric")
	return nil
}
func (f *fakeExec) Profile(ctx context.Context) error {
	f.calls = append(f.calls, "profile")
	return nil
}
func (f *fakeExec) Refresh(ctx context.Context) error {
	f.calls = append(f.calls, "refresh")
	return nil
}
func (f *fakeExec) Lock(ctx context.Context) error { f.calls = append(f.calls, "lock"); return nil }
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}
func (f *fakeExec) Status(ctx context.Context) error { f.calls = append(f.calls, "status"); return nil }
func (f *fakeExec) Background(ctx context.Context) error {
	f.calls = append(f.calls, "background")
	return nil
}
func (f *fakeExec) Foreground(ctx context.Context) error {
	f.calls = append(f.calls, "foreground")
	return nil
}
func (f *fakeExec) DeviceToken(ctx context.Context, token string) error {
	f.calls = append(f.calls, "device-token")
	f.token = token
	return nil
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	input := strings.Join([]string{
		"help",
		"login",
		"pin-status",
		"setpin",
		"",
		"lock",
		"unlock",
		"biometric",
		"profile",
		"refresh",
		"background",
		"foreground",
		"device-token fcm-123",
		"status",
		"logout",
		"exit",
		"login",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	want := []string{
		"login", "pin-status", "setpin", "lock", "unlock", "biometric", "profile", "refresh",
		"background", "foreground", "device-token", "status", "logout",
	}
	assert.Equal(t, want, exec.calls)
	assert.Equal(t, "fcm-123", exec.token)
	// every non-empty line except the blank one counts as activity
	assert.Equal(t, 15, exec.touches)
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("help\nlogin\nhelp\nquit\n")))

	var helps []string
	for _, l := range exec.lines {
		if strings.HasPrefix(l, "Available commands") {
			helps = append(helps, l)
		}
	}
	require.Len(t, helps, 2)
	assert.NotContains(t, helps[0], "unlock")
	assert.Contains(t, helps[1], "unlock")
}

func TestRunREPL_UsageUnknownAndEOF(t *testing.T) {
	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "s" }, bufio.NewReader(strings.NewReader("device-token\nfoobar\nlock")))

	assert.Equal(t, []string{"lock"}, exec.calls, "last line without newline still runs")
	assert.Contains(t, exec.lines, "Usage: device-token <token>")
	assert.Contains(t, exec.lines, "Unknown command: foobar")
}
