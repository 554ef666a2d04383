// Package session implements the session lifecycle of the FlexPay client:
// login, PIN-gated unlock, session-token refresh, inactivity locking, lock
// and logout.
//
// # State
//
// A Manager owns two independent credentials. The AuthToken comes from login,
// is persisted and survives locking. The SessionToken is minted from the
// AuthToken by the refresh endpoint and exists only while Unlocked. LockState
// is tracked explicitly:
//
//	Unauthenticated --Login--> LoggedInLocked
//	LoggedInLocked --AttemptUnlock/SetPin/UnlockWithBiometrics--> Unlocking --> Unlocked
//	Unlocked --Lock/inactivity/background--> LoggedInLocked
//	any --AuthToken rejected (401/403)--> Unauthenticated
//	any --Logout--> Unauthenticated
//
// # Concurrency
//
// All methods are safe to call from multiple goroutines. Login, CheckPinStatus
// and the unlock family (SetPin, AttemptUnlock, UnlockWithBiometrics,
// RefreshSession) are single-flight: a second call while one is pending gets
// ErrBusy. A refresh that completes after Lock or Logout is discarded with
// ErrSuperseded, so only the latest SessionToken is ever trusted.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"

	"github.com/rayyanshah04/flexpay/internal/client/client"
	"github.com/rayyanshah04/flexpay/internal/client/keystore"
	"github.com/rayyanshah04/flexpay/internal/client/models"
	"github.com/rayyanshah04/flexpay/internal/client/repositories/metadata"
	"github.com/rayyanshah04/flexpay/internal/common"
	"github.com/rayyanshah04/flexpay/internal/logging"
	"github.com/rayyanshah04/flexpay/internal/obs"
	"github.com/rayyanshah04/flexpay/internal/redact"
)

// BiometricPrompt is shown by the keystore before a biometric unlock.
const BiometricPrompt = "Authenticate to unlock FlexPay"

// Transition reasons.
const (
	ReasonLogin         = "login"
	ReasonRestore       = "restore"
	ReasonUnlock        = "unlock"
	ReasonPinSet        = "pin_set"
	ReasonBiometric     = "biometric"
	ReasonRefresh       = "refresh"
	ReasonRefreshFailed = "refresh_failed"
	ReasonManual        = "manual"
	ReasonInactivity    = "inactivity"
	ReasonBackground    = "background"
	ReasonTokenRejected = "token_rejected"
	ReasonLogout        = "logout"
)

// AuthPersistence keeps the AuthToken and UserProfile across restarts.
// LoadAuth returns metadata.ErrNotFound when nothing is stored.
type AuthPersistence interface {
	SaveAuth(ctx context.Context, token string, user models.UserProfile) error
	LoadAuth(ctx context.Context) (string, models.UserProfile, error)
	ClearAuth(ctx context.Context) error
}

type Options struct {
	// InactivityTimeout locks an Unlocked session after this long without
	// RecordActivity. Zero disables the timer.
	InactivityTimeout time.Duration
	// BackgroundThreshold locks the session on EnterForeground when the app
	// spent at least this long in background.
	BackgroundThreshold time.Duration
	// PinAttemptsPerMinute throttles AttemptUnlock. Zero means no limit.
	PinAttemptsPerMinute int
	// Clock defaults to the wall clock.
	Clock Clock
}

type Manager struct {
	api     client.Client
	store   keystore.Store
	persist AuthPersistence
	log     logging.Logger
	clock   Clock
	limiter *rate.Limiter

	inactivity time.Duration
	background time.Duration

	mu           sync.Mutex
	authToken    string
	sessionToken string
	user         *models.UserProfile
	state        models.LockState
	lastActivity time.Time
	backgroundAt time.Time

	timer    Timer
	timerGen uint64
	// epoch changes whenever the SessionToken is invalidated; pending
	// network results from an older epoch are dropped.
	epoch uint64

	loginBusy  bool
	pinBusy    bool
	unlockBusy bool

	subs map[chan models.Transition]struct{}
}

// New builds a Manager in the Unauthenticated state. Call Restore to resume
// a persisted login.
func New(api client.Client, store keystore.Store, persist AuthPersistence, log logging.Logger, opts Options) *Manager {
	m := &Manager{
		api:        api,
		store:      store,
		persist:    persist,
		log:        log,
		clock:      opts.Clock,
		inactivity: opts.InactivityTimeout,
		background: opts.BackgroundThreshold,
		state:      models.Unauthenticated,
		subs:       make(map[chan models.Transition]struct{}),
	}
	if m.clock == nil {
		m.clock = realClock{}
	}
	if m.log == nil {
		m.log = logging.Discard()
	}

	if n := opts.PinAttemptsPerMinute; n > 0 {
		m.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), n)
	} else {
		m.log.Warn(context.Background(), "PIN attempt throttling is disabled; unlimited AttemptUnlock retries are allowed")
	}
	return m
}

func (m *Manager) State() models.LockState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) AuthToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authToken
}

func (m *Manager) SessionToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionToken
}

// User returns the profile of the logged in user.
func (m *Manager) User() (models.UserProfile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return models.UserProfile{}, false
	}
	return *m.user, true
}

func (m *Manager) LastActivity() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastActivity
}

// Login exchanges phone and password for an AuthToken, persists it and moves
// to LoggedInLocked. Any previous session is dropped. On failure the state is
// left as it was.
func (m *Manager) Login(ctx context.Context, phone, password string) (models.UserProfile, error) {
	if phone == "" || password == "" {
		return models.UserProfile{}, fmt.Errorf("%w: phone number and password are required", ErrInvalidInput)
	}

	m.mu.Lock()
	if m.loginBusy {
		m.mu.Unlock()
		return models.UserProfile{}, ErrBusy
	}
	m.loginBusy = true
	m.mu.Unlock()
	defer m.release(&m.loginBusy)

	log := m.log.With("phone", redact.Phone(phone))

	token, user, err := m.api.Login(ctx, phone, password)
	if err != nil {
		log.Warn(ctx, "login failed", "error", err)
		if errors.Is(err, client.ErrUnauthorized) || errors.Is(err, client.ErrBadRequest) {
			return models.UserProfile{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return models.UserProfile{}, translate(err, ErrInvalidCredentials)
	}

	if err := m.persist.SaveAuth(ctx, token, user); err != nil {
		log.Error(ctx, "persist auth token", "error", err)
		return models.UserProfile{}, fmt.Errorf("persist login: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopTimerLocked()
	m.epoch++
	m.authToken = token
	m.sessionToken = ""
	m.user = &user
	m.lastActivity = m.clock.Now()
	m.setStateLocked(ctx, models.LoggedInLocked, ReasonLogin)

	log.Info(ctx, "logged in", "user_id", user.ID)
	return user, nil
}

// Restore resumes a persisted login in LoggedInLocked. Nothing stored is not
// an error. A stored AuthToken that is a JWT with a past exp claim is cleared
// and ErrSessionExpired returned.
func (m *Manager) Restore(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.authToken != "" {
		return nil
	}

	token, user, err := m.persist.LoadAuth(ctx)
	if errors.Is(err, metadata.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load persisted login: %w", err)
	}

	if tokenExpired(token, m.clock.Now()) {
		m.log.Info(ctx, "persisted auth token expired")
		if err := m.persist.ClearAuth(ctx); err != nil {
			m.log.Warn(ctx, "clear expired auth token", "error", err)
		}
		return ErrSessionExpired
	}

	m.authToken = token
	m.user = &user
	m.lastActivity = m.clock.Now()
	m.setStateLocked(ctx, models.LoggedInLocked, ReasonRestore)
	return nil
}

// tokenExpired reads the exp claim without verifying the signature; only the
// backend can verify it. Tokens that are not JWTs never expire locally.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return !now.Before(exp.Time)
}

// CheckPinStatus asks the backend whether the user has registered a PIN. The
// backend's answer is authoritative: when it reports none, any local
// PinRecord is removed.
func (m *Manager) CheckPinStatus(ctx context.Context) (bool, error) {
	m.mu.Lock()
	if m.authToken == "" {
		m.mu.Unlock()
		return false, ErrNotLoggedIn
	}
	if m.pinBusy {
		m.mu.Unlock()
		return false, ErrBusy
	}
	m.pinBusy = true
	token := m.authToken
	m.mu.Unlock()
	defer m.release(&m.pinBusy)

	hasPin, err := m.api.CheckPinStatus(ctx, token)
	if err != nil {
		return false, m.fail(ctx, token, err, ErrServerError)
	}
	if !hasPin {
		// A PinRecord left from an earlier install must not unlock an account
		// the backend has no PIN for.
		if err := m.store.DeleteSecret(ctx, common.PinService); err != nil {
			m.log.Warn(ctx, "drop stale PIN record", "error", err)
		}
	}
	return hasPin, nil
}

// SetPin registers a new PIN with the backend, stores it in the keystore
// (replacing any previous one) and unlocks without asking for it again.
func (m *Manager) SetPin(ctx context.Context, pin string) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}

	token, userID, epoch, err := m.beginUnlock()
	if err != nil {
		return err
	}
	defer m.release(&m.unlockBusy)

	if err := m.api.SetPin(ctx, token, pin); err != nil {
		return m.fail(ctx, token, err, ErrInvalidInput)
	}

	m.mu.Lock()
	superseded := m.epoch != epoch || m.authToken != token
	m.mu.Unlock()
	if superseded {
		return ErrSuperseded
	}

	if err := m.store.SetSecret(ctx, common.PinService, userID, pin); err != nil {
		return fmt.Errorf("store PIN: %w", err)
	}
	m.log.Info(ctx, "PIN set", "user_id", userID)

	return m.refresh(ctx, ReasonPinSet)
}

// AttemptUnlock compares pin with the stored PinRecord and, on a match,
// refreshes the session. A wrong PIN leaves the state untouched and may be
// retried; no attempt limit applies unless PinAttemptsPerMinute is set.
func (m *Manager) AttemptUnlock(ctx context.Context, pin string) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}

	_, _, _, err := m.beginUnlock()
	if err != nil {
		return err
	}
	defer m.release(&m.unlockBusy)

	if m.limiter != nil && !m.limiter.Allow() {
		obs.PinUnlockAttempts.WithLabelValues(obs.ResultThrottled).Inc()
		m.log.Warn(ctx, "PIN attempt throttled")
		return ErrTooManyAttempts
	}

	cred, err := m.store.GetSecret(ctx, common.PinService)
	if errors.Is(err, keystore.ErrNotFound) {
		obs.PinUnlockAttempts.WithLabelValues(obs.ResultNotSet).Inc()
		return ErrPinNotSet
	}
	if err != nil {
		obs.PinUnlockAttempts.WithLabelValues(obs.ResultError).Inc()
		return fmt.Errorf("read PIN: %w", err)
	}

	if cred.Secret != pin {
		obs.PinUnlockAttempts.WithLabelValues(obs.ResultWrongPin).Inc()
		m.log.Info(ctx, "wrong PIN entered", "pin", redact.PIN())
		return ErrWrongPin
	}

	obs.PinUnlockAttempts.WithLabelValues(obs.ResultSuccess).Inc()
	return m.refresh(ctx, ReasonUnlock)
}

// UnlockWithBiometrics reads the PinRecord behind the keystore's
// authentication prompt and refreshes the session when the prompt succeeds.
// A failed or cancelled prompt leaves the state untouched.
func (m *Manager) UnlockWithBiometrics(ctx context.Context) error {
	_, _, _, err := m.beginUnlock()
	if err != nil {
		return err
	}
	defer m.release(&m.unlockBusy)

	_, err = m.store.GetSecret(ctx, common.PinService, keystore.WithPrompt(BiometricPrompt))
	switch {
	case errors.Is(err, keystore.ErrNotFound):
		obs.PinUnlockAttempts.WithLabelValues(obs.ResultNotSet).Inc()
		return ErrPinNotSet
	case err != nil:
		obs.PinUnlockAttempts.WithLabelValues(obs.ResultError).Inc()
		m.log.Info(ctx, "biometric unlock declined", "error", err)
		return fmt.Errorf("biometric unlock: %w", err)
	}

	obs.PinUnlockAttempts.WithLabelValues(obs.ResultSuccess).Inc()
	return m.refresh(ctx, ReasonBiometric)
}

// RefreshSession mints a new SessionToken from the AuthToken.
func (m *Manager) RefreshSession(ctx context.Context) error {
	if _, _, _, err := m.beginUnlock(); err != nil {
		return err
	}
	defer m.release(&m.unlockBusy)

	return m.refresh(ctx, ReasonRefresh)
}

// beginUnlock takes the unlock single-flight guard.
func (m *Manager) beginUnlock() (token, userID string, epoch uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.authToken == "" {
		return "", "", 0, ErrNotLoggedIn
	}
	if m.unlockBusy {
		return "", "", 0, ErrBusy
	}
	m.unlockBusy = true

	if m.user != nil {
		userID = m.user.ID
	}
	return m.authToken, userID, m.epoch, nil
}

func (m *Manager) release(flag *bool) {
	m.mu.Lock()
	*flag = false
	m.mu.Unlock()
}

// refresh runs the refresh sequence. The caller holds the unlock guard.
func (m *Manager) refresh(ctx context.Context, reason string) error {
	m.mu.Lock()
	token := m.authToken
	if token == "" {
		m.mu.Unlock()
		return ErrNotLoggedIn
	}
	epoch := m.epoch
	prev := m.state
	if prev != models.Unlocked {
		m.setStateLocked(ctx, models.Unlocking, reason)
	}
	m.mu.Unlock()

	sessionToken, err := m.api.RefreshSession(ctx, token)

	m.mu.Lock()
	defer m.mu.Unlock()

	// A rejected AuthToken ends the session even if a lock landed meanwhile.
	if errors.Is(err, client.ErrUnauthorized) && m.authToken == token {
		m.expireLocked(ctx)
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	if m.epoch != epoch {
		m.log.Info(ctx, "discarding refresh result", "reason", reason)
		return ErrSuperseded
	}

	if err != nil {
		if m.state == models.Unlocking {
			m.setStateLocked(ctx, prev, ReasonRefreshFailed)
		}
		m.log.Warn(ctx, "session refresh failed", "error", err)
		return translate(err, ErrServerError)
	}

	m.sessionToken = sessionToken
	m.lastActivity = m.clock.Now()
	m.setStateLocked(ctx, models.Unlocked, reason)
	m.armTimerLocked()
	return nil
}

// fail handles an error from a call authenticated with the AuthToken sent. A
// rejection ends the session while sent is still the current AuthToken.
func (m *Manager) fail(ctx context.Context, sent string, err, rejected error) error {
	if !errors.Is(err, client.ErrUnauthorized) {
		return translate(err, rejected)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.authToken == sent {
		m.expireLocked(ctx)
	}
	return fmt.Errorf("%w: %w", ErrSessionExpired, err)
}

// Call performs an authenticated API call with the SessionToken. The session
// must be Unlocked. A 401/403 ends the session with ErrSessionExpired.
func (m *Manager) Call(ctx context.Context, method, path string, in, out any) error {
	m.mu.Lock()
	if m.authToken == "" {
		m.mu.Unlock()
		return ErrNotLoggedIn
	}
	if m.state != models.Unlocked || m.sessionToken == "" {
		m.mu.Unlock()
		return ErrLocked
	}
	token, epoch := m.sessionToken, m.epoch
	m.mu.Unlock()

	if err := m.api.Call(ctx, method, path, token, in, out); err != nil {
		if !errors.Is(err, client.ErrUnauthorized) {
			return translate(err, ErrServerError)
		}
		// The SessionToken belongs to one unlock; a lock since then already
		// discarded it.
		m.mu.Lock()
		if m.epoch == epoch {
			m.expireLocked(ctx)
		}
		m.mu.Unlock()
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	m.RecordActivity()
	return nil
}

// RecordActivity marks user activity and restarts the inactivity timer when
// Unlocked. It never touches the network.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastActivity = m.clock.Now()
	if m.state == models.Unlocked {
		m.armTimerLocked()
	}
}

// Lock drops the SessionToken and returns to LoggedInLocked. AuthToken and
// UserProfile are kept. It is a no-op when not logged in.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.authToken == "" {
		return
	}
	m.lockLocked(context.Background(), ReasonManual)
}

// Logout forgets the AuthToken, SessionToken and UserProfile and clears the
// persisted login. The keystore PIN is left in place. The in-memory state is
// cleared even when clearing persistence fails.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearLocked(ctx, ReasonLogout)
	if err := m.persist.ClearAuth(ctx); err != nil {
		m.log.Error(ctx, "clear persisted login", "error", err)
		return fmt.Errorf("clear persisted login: %w", err)
	}
	m.log.Info(ctx, "logged out")
	return nil
}

// EnterBackground notes when the app went to background.
func (m *Manager) EnterBackground() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.backgroundAt = m.clock.Now()
}

// EnterForeground locks an Unlocked session that spent at least
// BackgroundThreshold in background. It reports whether it locked.
func (m *Manager) EnterForeground() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.backgroundAt.IsZero() {
		return false
	}
	away := m.clock.Now().Sub(m.backgroundAt)
	m.backgroundAt = time.Time{}

	if m.state != models.Unlocked || away < m.background {
		return false
	}
	m.lockLocked(context.Background(), ReasonBackground)
	return true
}

// Subscribe returns a channel receiving every LockState transition and a
// function that unsubscribes and closes it. Sends never block; when the
// buffer is full the transition is dropped for that subscriber.
func (m *Manager) Subscribe(buffer int) (<-chan models.Transition, func()) {
	ch := make(chan models.Transition, buffer)

	m.mu.Lock()
	m.subs[ch] = struct{}{}
	m.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs, ch)
			m.mu.Unlock()
			close(ch)
		})
	}
}

func (m *Manager) setStateLocked(ctx context.Context, to models.LockState, reason string) {
	from := m.state
	if from == to {
		return
	}
	m.state = to

	obs.SessionTransitions.WithLabelValues(from.String(), to.String()).Inc()
	m.log.Info(ctx, "session state changed", "from", from.String(), "to", to.String(), "reason", reason)

	t := models.Transition{From: from, To: to, Reason: reason, At: m.clock.Now()}
	for ch := range m.subs {
		select {
		case ch <- t:
		default:
		}
	}
}

func (m *Manager) lockLocked(ctx context.Context, reason string) {
	m.stopTimerLocked()
	m.epoch++
	m.sessionToken = ""
	m.setStateLocked(ctx, models.LoggedInLocked, reason)
}

func (m *Manager) clearLocked(ctx context.Context, reason string) {
	m.stopTimerLocked()
	m.epoch++
	m.authToken = ""
	m.sessionToken = ""
	m.user = nil
	m.setStateLocked(ctx, models.Unauthenticated, reason)
}

// expireLocked ends the session after the backend rejected a token.
func (m *Manager) expireLocked(ctx context.Context) {
	m.log.Warn(ctx, "auth token rejected by backend", "token", redact.Token())
	m.clearLocked(ctx, ReasonTokenRejected)
	if err := m.persist.ClearAuth(ctx); err != nil {
		m.log.Error(ctx, "clear persisted login", "error", err)
	}
}

func (m *Manager) armTimerLocked() {
	m.stopTimerLocked()
	if m.inactivity <= 0 {
		return
	}
	gen := m.timerGen
	m.timer = m.clock.AfterFunc(m.inactivity, func() { m.onInactivity(gen) })
}

// stopTimerLocked cancels the timer and invalidates any callback already
// running.
func (m *Manager) stopTimerLocked() {
	m.timerGen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
}

func (m *Manager) onInactivity(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.timerGen || m.state != models.Unlocked {
		return
	}
	m.lockLocked(context.Background(), ReasonInactivity)
}
