package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rayyanshah04/flexpay/internal/client/client"
	"github.com/rayyanshah04/flexpay/internal/client/keystore"
	"github.com/rayyanshah04/flexpay/internal/client/models"
	"github.com/rayyanshah04/flexpay/internal/client/notify"
	"github.com/rayyanshah04/flexpay/internal/client/session"
	"github.com/rayyanshah04/flexpay/internal/logging"
	"github.com/rayyanshah04/flexpay/internal/redact"
)

// Session is the part of session.Manager the CLI drives.
type Session interface {
	State() models.LockState
	User() (models.UserProfile, bool)
	LastActivity() time.Time

	Login(ctx context.Context, phone, password string) (models.UserProfile, error)
	CheckPinStatus(ctx context.Context) (bool, error)
	SetPin(ctx context.Context, pin string) error
	AttemptUnlock(ctx context.Context, pin string) error
	UnlockWithBiometrics(ctx context.Context) error
	RefreshSession(ctx context.Context) error
	Call(ctx context.Context, method, path string, in, out any) error
	Lock()
	Logout(ctx context.Context) error

	RecordActivity()
	EnterBackground()
	EnterForeground() bool
	Subscribe(buffer int) (<-chan models.Transition, func())
}

// ErrCanceled is returned by the terminal prompter when the user declines.
var ErrCanceled = errors.New("authentication canceled")

// syncWriter serializes writes from the REPL, the prompts and the
// transition watcher onto one terminal.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func newSyncWriter(w io.Writer) *syncWriter {
	if sw, ok := w.(*syncWriter); ok {
		return sw
	}
	return &syncWriter{w: w}
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

type App struct {
	session Session
	devices chan<- notify.DeviceRegistered
	log     logging.Logger
	reader  *bufio.Reader
	out     *syncWriter
}

// NewApp builds the CLI around an existing session. devices may be nil, in
// which case the device-token command is unavailable.
func NewApp(s Session, devices chan<- notify.DeviceRegistered, reader *bufio.Reader, out io.Writer, log logging.Logger) *App {
	return &App{session: s, devices: devices, log: log, reader: reader, out: newSyncWriter(out)}
}

// TerminalPrompter asks for consent on the terminal before a gated keystore
// read. It stands in for a platform biometric prompt.
func TerminalPrompter(reader *bufio.Reader, w io.Writer) keystore.Prompter {
	return keystore.PrompterFunc(func(ctx context.Context, title string) error {
		ok, err := Confirm(reader, title, w)
		if err != nil {
			return err
		}
		if !ok {
			return ErrCanceled
		}
		return nil
	})
}

// Run starts the transition watcher and the REPL. A restored login goes to
// PIN entry, or PIN setup when the backend has no PIN for the account;
// otherwise the user is asked to log in. Run blocks until the user exits or
// input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	transitions, unsubscribe := a.session.Subscribe(16)
	defer unsubscribe()
	go a.watch(ctx, transitions)

	a.say("Welcome to FlexPay (type 'help' for commands)")
	switch a.session.State() {
	case models.LoggedInLocked:
		if u, ok := a.session.User(); ok {
			a.say("Welcome back, %s.", u.Name)
		}
		_ = a.Unlock(ctx)
	case models.Unauthenticated:
		_ = a.Login(ctx)
	}

	runREPL(ctx, a, a.getStatus, a.reader)
}

// watch reports locks that happen outside a command, such as the
// inactivity timer firing.
func (a *App) watch(ctx context.Context, transitions <-chan models.Transition) {
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-transitions:
			if !ok {
				return
			}
			if msg := transitionMessage(t); msg != "" {
				a.say("%s", msg)
			}
		}
	}
}

func transitionMessage(t models.Transition) string {
	switch t.Reason {
	case session.ReasonInactivity:
		return "Session locked after inactivity. Use 'unlock' to continue."
	case session.ReasonBackground:
		return "Session locked while in background. Use 'unlock' to continue."
	case session.ReasonTokenRejected:
		return "Your session has expired. Please log in again."
	default:
		return ""
	}
}

func (a *App) isLoggedIn() bool {
	return a.session.State() != models.Unauthenticated
}

func (a *App) touch() {
	a.session.RecordActivity()
}

func (a *App) getStatus() string {
	s := a.session.State().String()
	if u, ok := a.session.User(); ok && u.Name != "" {
		s = u.Name + " " + s
	}
	return fmt.Sprintf("(%s)", s)
}

func (a *App) say(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

// report prints a user-facing message for err and returns it unchanged.
func (a *App) report(err error) error {
	a.say("%s", describe(err))
	return err
}

// describe turns session errors into short messages for the terminal.
func describe(err error) string {
	switch {
	case errors.Is(err, session.ErrInvalidCredentials):
		return "Invalid phone number or password."
	case errors.Is(err, session.ErrPinMismatch):
		return "PINs do not match."
	case errors.Is(err, session.ErrInvalidInput):
		return "Invalid input: " + err.Error()
	case errors.Is(err, session.ErrWrongPin):
		return "Incorrect PIN."
	case errors.Is(err, session.ErrNotLoggedIn):
		return "Please log in first."
	case errors.Is(err, session.ErrSessionExpired):
		return "Your session has expired. Please log in again."
	case errors.Is(err, session.ErrNetwork):
		return "Network error. Check your connection and try again."
	case errors.Is(err, session.ErrServerError):
		return "Server error. Please try again later."
	case errors.Is(err, session.ErrPinNotSet):
		return "No PIN is stored on this device. Use 'setpin'."
	case errors.Is(err, session.ErrBusy):
		return "Another unlock is in progress."
	case errors.Is(err, session.ErrSuperseded):
		return "The session changed while unlocking. Try again."
	case errors.Is(err, session.ErrLocked):
		return "Session is locked. Use 'unlock'."
	case errors.Is(err, session.ErrTooManyAttempts):
		return "Too many attempts. Wait a minute and try again."
	case errors.Is(err, ErrCanceled):
		return "Authentication canceled."
	default:
		return "Error: " + err.Error()
	}
}

// Status prints the lock state, the user and the time since last activity.
func (a *App) Status(ctx context.Context) error {
	a.say("State: %s", a.session.State())
	if u, ok := a.session.User(); ok {
		a.say("User: %s (%s)", u.Name, redact.Phone(u.Phone))
	}
	if last := a.session.LastActivity(); !last.IsZero() {
		a.say("Last activity: %s ago", time.Since(last).Round(time.Second))
	}
	return nil
}

// Profile fetches the account profile with the SessionToken.
func (a *App) Profile(ctx context.Context) error {
	var p models.UserProfile
	if err := a.session.Call(ctx, http.MethodGet, client.PathProfile, nil, &p); err != nil {
		return a.report(err)
	}
	a.say("Name: %s", p.Name)
	a.say("Phone: %s", redact.Phone(p.Phone))
	if p.Email != "" {
		a.say("Email: %s", p.Email)
	}
	return nil
}

// Refresh renews the SessionToken of an unlocked session. A locked session
// must go through unlock instead.
func (a *App) Refresh(ctx context.Context) error {
	if a.session.State() != models.Unlocked {
		return a.report(session.ErrLocked)
	}
	if err := a.session.RefreshSession(ctx); err != nil {
		return a.report(err)
	}
	a.say("Session refreshed.")
	return nil
}

func (a *App) Background(ctx context.Context) error {
	a.session.EnterBackground()
	a.say("App is in background.")
	return nil
}

func (a *App) Foreground(ctx context.Context) error {
	if !a.session.EnterForeground() {
		a.say("Welcome back.")
	}
	return nil
}

// DeviceToken simulates the notification subsystem issuing a push token.
func (a *App) DeviceToken(ctx context.Context, token string) error {
	if a.devices == nil {
		return a.report(errors.New("device registration is not available"))
	}
	select {
	case a.devices <- notify.NewDeviceRegistered(token):
		a.say("Device token queued.")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
