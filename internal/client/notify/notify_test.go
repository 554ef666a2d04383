package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayyanshah04/flexpay/internal/client/models"
	"github.com/rayyanshah04/flexpay/internal/logging"
)

type fakeSession struct {
	mu          sync.Mutex
	token       string
	transitions chan models.Transition
	subscribed  chan struct{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{
		transitions: make(chan models.Transition),
		subscribed:  make(chan struct{}),
	}
}

func (s *fakeSession) AuthToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *fakeSession) setToken(tok string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = tok
}

func (s *fakeSession) Subscribe(int) (<-chan models.Transition, func()) {
	close(s.subscribed)
	return s.transitions, func() {}
}

type call struct{ auth, device string }

type fakeRegistrar struct {
	mu    sync.Mutex
	calls []call
	err   error
}

func (r *fakeRegistrar) RegisterDeviceToken(_ context.Context, authToken, deviceToken string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{authToken, deviceToken})
	return r.err
}

func (r *fakeRegistrar) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

func start(t *testing.T, s *fakeSession, r *fakeRegistrar) chan<- DeviceRegistered {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan DeviceRegistered)
	done := make(chan error, 1)

	go func() { done <- NewCoordinator(s, r, logging.Discard()).Run(ctx, events) }()
	<-s.subscribed

	t.Cleanup(func() {
		cancel()
		require.ErrorIs(t, <-done, context.Canceled)
	})
	return events
}

// settle sends a transition the coordinator ignores. The coordinator handles
// one message at a time, so once it is received every earlier event and
// transition has been fully processed.
func settle(s *fakeSession) {
	s.transitions <- models.Transition{From: models.LoggedInLocked, To: models.Unlocking}
}

func login(s *fakeSession, auth string) {
	s.setToken(auth)
	s.transitions <- models.Transition{From: models.Unauthenticated, To: models.LoggedInLocked}
	settle(s)
}

func TestTokenWhileLoggedOutIsHeldUntilLogin(t *testing.T) {
	s, r := newFakeSession(), &fakeRegistrar{}
	events := start(t, s, r)

	events <- NewDeviceRegistered("fcm-1")
	settle(s)
	assert.Empty(t, r.snapshot())

	login(s, "auth-1")
	assert.Equal(t, []call{{"auth-1", "fcm-1"}}, r.snapshot())
}

func TestTokenWhileLoggedInIsForwarded(t *testing.T) {
	s, r := newFakeSession(), &fakeRegistrar{}
	s.setToken("auth-1")
	events := start(t, s, r)

	events <- NewDeviceRegistered("fcm-1")
	events <- NewDeviceRegistered("fcm-2")
	settle(s)

	assert.Equal(t, []call{{"auth-1", "fcm-1"}, {"auth-1", "fcm-2"}}, r.snapshot())
}

func TestOtherTransitionsIgnored(t *testing.T) {
	s, r := newFakeSession(), &fakeRegistrar{}
	events := start(t, s, r)

	events <- NewDeviceRegistered("fcm-1")
	settle(s)
	s.setToken("auth-1")
	s.transitions <- models.Transition{From: models.LoggedInLocked, To: models.Unlocking}
	s.transitions <- models.Transition{From: models.Unlocked, To: models.LoggedInLocked}
	settle(s)
	assert.Empty(t, r.snapshot())

	s.transitions <- models.Transition{From: models.Unauthenticated, To: models.LoggedInLocked}
	settle(s)
	assert.Equal(t, []call{{"auth-1", "fcm-1"}}, r.snapshot())
}

func TestEachLoginReRegisters(t *testing.T) {
	s, r := newFakeSession(), &fakeRegistrar{}
	events := start(t, s, r)
	events <- NewDeviceRegistered("fcm-1")
	settle(s)

	login(s, "auth-1")
	login(s, "auth-2")

	assert.Equal(t, []call{{"auth-1", "fcm-1"}, {"auth-2", "fcm-1"}}, r.snapshot())
}

func TestRegistrationFailureIsNotFatal(t *testing.T) {
	s, r := newFakeSession(), &fakeRegistrar{err: errors.New("boom")}
	s.setToken("auth-1")
	events := start(t, s, r)

	events <- NewDeviceRegistered("fcm-1")
	events <- NewDeviceRegistered("fcm-2")
	settle(s)

	assert.Len(t, r.snapshot(), 2)
}

func TestClosedEventsKeepsHandlingLogins(t *testing.T) {
	s, r := newFakeSession(), &fakeRegistrar{}
	events := start(t, s, r)

	events <- NewDeviceRegistered("fcm-1")
	close(events)
	settle(s)

	login(s, "auth-1")
	assert.Equal(t, []call{{"auth-1", "fcm-1"}}, r.snapshot())
}

func TestNewDeviceRegistered(t *testing.T) {
	a, b := NewDeviceRegistered("x"), NewDeviceRegistered("x")
	assert.NotEqual(t, a.ID, b.ID)
	assert.Less(t, a.ID, b.ID)
	assert.Equal(t, "x", a.Token)
}
