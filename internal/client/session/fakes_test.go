package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rayyanshah04/flexpay/internal/client/keystore"
	"github.com/rayyanshah04/flexpay/internal/client/models"
	"github.com/rayyanshah04/flexpay/internal/client/repositories/metadata"
	"github.com/rayyanshah04/flexpay/internal/common"
	"github.com/rayyanshah04/flexpay/internal/logging"
)

/*************
 * Fake backend
 *************/

type fakeAPI struct {
	mu sync.Mutex

	loginToken string
	loginUser  models.UserProfile
	loginErr   error
	loginCalls int

	hasPin       bool
	pinStatusErr error

	setPinErr error
	setPins   []string

	refreshErr     error
	refreshCalls   int
	refreshStarted chan struct{}
	refreshGate    chan struct{}
	seq            int

	callErr    error
	callTokens []string

	deviceTokens []string
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		loginToken: "auth-token-1",
		loginUser:  models.UserProfile{ID: "42", Name: "Ayesha Khan", Phone: "03001234567"},
	}
}

func (f *fakeAPI) Login(ctx context.Context, phone, password string) (string, models.UserProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loginCalls++
	if f.loginErr != nil {
		return "", models.UserProfile{}, f.loginErr
	}
	return f.loginToken, f.loginUser, nil
}

func (f *fakeAPI) CheckPinStatus(ctx context.Context, authToken string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasPin, f.pinStatusErr
}

func (f *fakeAPI) SetPin(ctx context.Context, authToken, pin string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setPins = append(f.setPins, pin)
	if f.setPinErr != nil {
		return f.setPinErr
	}
	f.hasPin = true
	return nil
}

func (f *fakeAPI) RefreshSession(ctx context.Context, authToken string) (string, error) {
	f.mu.Lock()
	f.refreshCalls++
	f.seq++
	token := fmt.Sprintf("session-%d", f.seq)
	err := f.refreshErr
	started, gate := f.refreshStarted, f.refreshGate
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

func (f *fakeAPI) RegisterDeviceToken(ctx context.Context, authToken, deviceToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deviceTokens = append(f.deviceTokens, deviceToken)
	return nil
}

func (f *fakeAPI) Call(ctx context.Context, method, path, token string, in, out any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callTokens = append(f.callTokens, token)
	return f.callErr
}

func (f *fakeAPI) refreshes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refreshCalls
}

/*************
 * Fake keystore
 *************/

type fakeStore struct {
	mu        sync.Mutex
	entries   map[string]keystore.Credential
	promptErr error
	prompts   []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: map[string]keystore.Credential{}}
}

func (s *fakeStore) SetSecret(ctx context.Context, service, account, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[service] = keystore.Credential{Account: account, Secret: secret}
	return nil
}

func (s *fakeStore) GetSecret(ctx context.Context, service string, opts ...keystore.ReadOption) (keystore.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(opts) > 0 {
		s.prompts = append(s.prompts, service)
		if s.promptErr != nil {
			return keystore.Credential{}, s.promptErr
		}
	}
	c, ok := s.entries[service]
	if !ok {
		return keystore.Credential{}, keystore.ErrNotFound
	}
	return c, nil
}

func (s *fakeStore) DeleteSecret(ctx context.Context, service string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, service)
	return nil
}

func (s *fakeStore) pin() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.entries[common.PinService]
	return c.Secret, ok
}

/*************
 * Fake persistence
 *************/

type fakePersist struct {
	mu       sync.Mutex
	token    string
	user     models.UserProfile
	saveErr  error
	clearErr error
	clears   int
}

func (p *fakePersist) SaveAuth(ctx context.Context, token string, user models.UserProfile) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.token, p.user = token, user
	return nil
}

func (p *fakePersist) LoadAuth(ctx context.Context) (string, models.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.token == "" {
		return "", models.UserProfile{}, metadata.ErrNotFound
	}
	return p.token, p.user, nil
}

func (p *fakePersist) ClearAuth(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clears++
	if p.clearErr != nil {
		return p.clearErr
	}
	p.token, p.user = "", models.UserProfile{}
	return nil
}

func (p *fakePersist) stored() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token
}

/*************
 * Fake clock
 *************/

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
	// leakyStop makes Stop report success without cancelling, like a
	// time.Timer whose callback has already started.
	leakyStop bool
}

type fakeTimer struct {
	clk     *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clk: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clk.mu.Lock()
	defer t.clk.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	if !t.clk.leakyStop {
		t.stopped = true
	}
	return true
}

// Advance moves time forward and runs due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

/*************
 * Harness
 *************/

const (
	testTimeout    = 2 * time.Minute
	testBackground = 30 * time.Second
)

type harness struct {
	m       *Manager
	api     *fakeAPI
	store   *fakeStore
	persist *fakePersist
	clock   *fakeClock
}

func newHarness(t *testing.T, mutate ...func(*Options)) *harness {
	t.Helper()
	h := &harness{
		api:     newFakeAPI(),
		store:   newFakeStore(),
		persist: &fakePersist{},
		clock:   newFakeClock(),
	}
	opts := Options{
		InactivityTimeout:   testTimeout,
		BackgroundThreshold: testBackground,
		Clock:               h.clock,
	}
	for _, f := range mutate {
		f(&opts)
	}
	h.m = New(h.api, h.store, h.persist, logging.Discard(), opts)
	return h
}

func (h *harness) login(t *testing.T) {
	t.Helper()
	_, err := h.m.Login(context.Background(), "03001234567", "secret123")
	require.NoError(t, err)
}

// unlocked logs in with PIN "4321" stored and unlocks.
func (h *harness) unlocked(t *testing.T) {
	t.Helper()
	h.login(t)
	require.NoError(t, h.store.SetSecret(context.Background(), common.PinService, "42", "4321"))
	require.NoError(t, h.m.AttemptUnlock(context.Background(), "4321"))
	require.Equal(t, models.Unlocked, h.m.State())
}
