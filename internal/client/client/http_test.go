package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rayyanshah04/flexpay/internal/client/models"
)

type captured struct {
	method string
	path   string
	auth   string
	reqID  string
	body   map[string]any
}

// newServer answers every request with status and body and records what it
// received.
func newServer(t *testing.T, status int, body string) (*HTTPClient, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.auth = r.Header.Get("Authorization")
		got.reqID = r.Header.Get("X-Request-Id")
		if r.ContentLength > 0 {
			_ = json.NewDecoder(r.Body).Decode(&got.body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL+"/", time.Second, WithHTTPClient(srv.Client())), got
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantToken string
		wantUser  models.UserProfile
		wantErr   error
	}{
		{
			name:      "auth_token field",
			status:    http.StatusOK,
			body:      `{"auth_token":"A1","user":{"id":1,"name":"Ali","phone_number":"03001234567"}}`,
			wantToken: "A1",
			wantUser:  models.UserProfile{ID: "1", Name: "Ali", Phone: "03001234567"},
		},
		{
			name:      "legacy token field",
			status:    http.StatusOK,
			body:      `{"message":"Login successful","token":"L1","user":{"id":"9"}}`,
			wantToken: "L1",
			wantUser:  models.UserProfile{ID: "9"},
		},
		{
			name:    "no token",
			status:  http.StatusOK,
			body:    `{"user":{"id":1}}`,
			wantErr: ErrServer,
		},
		{
			name:    "wrong password",
			status:  http.StatusBadRequest,
			body:    `{"error":"Incorrect password"}`,
			wantErr: ErrBadRequest,
		},
		{
			name:    "server down",
			status:  http.StatusInternalServerError,
			body:    `oops`,
			wantErr: ErrServer,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, got := newServer(t, tt.status, tt.body)

			token, user, err := c.Login(context.Background(), "03001234567", "secret123")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
			assert.Equal(t, tt.wantUser, user)

			assert.Equal(t, http.MethodPost, got.method)
			assert.Equal(t, PathLogin, got.path)
			assert.Empty(t, got.auth)
			assert.Equal(t, "03001234567", got.body["phone_number"])
			assert.Equal(t, "secret123", got.body["password"])
		})
	}
}

func TestLogin_ErrorMessageKept(t *testing.T) {
	c, _ := newServer(t, http.StatusBadRequest, `{"error":"User doesn't exist"}`)

	_, _, err := c.Login(context.Background(), "1", "2")
	require.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "User doesn't exist")
}

func TestCheckPinStatus(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"has_pin":true}`)

	has, err := c.CheckPinStatus(context.Background(), "AUTH")
	require.NoError(t, err)
	assert.True(t, has)
	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, PathPinCheck, got.path)
	assert.Equal(t, "Bearer AUTH", got.auth)
	assert.NotEmpty(t, got.reqID)
}

func TestCheckPinStatus_Unauthorized(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		c, _ := newServer(t, status, `{"message":"Auth token is invalid!"}`)

		_, err := c.CheckPinStatus(context.Background(), "AUTH")
		require.ErrorIs(t, err, ErrUnauthorized)
		assert.Contains(t, err.Error(), "Auth token is invalid!")
	}
}

func TestSetPin(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{}`)

	require.NoError(t, c.SetPin(context.Background(), "AUTH", "1234"))
	assert.Equal(t, PathPinSet, got.path)
	assert.Equal(t, "Bearer AUTH", got.auth)
	assert.Equal(t, "1234", got.body["pin"])
}

func TestRefreshSession(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"session_token":"S1"}`)

	tok, err := c.RefreshSession(context.Background(), "AUTH")
	require.NoError(t, err)
	assert.Equal(t, "S1", tok)
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, PathRefresh, got.path)
	assert.Equal(t, "Bearer AUTH", got.auth)
}

func TestRefreshSession_EmptyToken(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{}`)

	_, err := c.RefreshSession(context.Background(), "AUTH")
	require.ErrorIs(t, err, ErrServer)
}

func TestRefreshSession_BadJSON(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{"session_token":`)

	_, err := c.RefreshSession(context.Background(), "AUTH")
	require.ErrorIs(t, err, ErrServer)
}

func TestRegisterDeviceToken(t *testing.T) {
	c, got := newServer(t, http.StatusOK, ``)

	require.NoError(t, c.RegisterDeviceToken(context.Background(), "AUTH", "fcm-123"))
	assert.Equal(t, PathDeviceToken, got.path)
	assert.Equal(t, "Bearer AUTH", got.auth)
	assert.Equal(t, "fcm-123", got.body["device_token"])
}

func TestCall_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewHTTPClient(url, time.Second)
	_, err := c.CheckPinStatus(context.Background(), "AUTH")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCall_ContextCanceled(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `{}`)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Call(ctx, http.MethodGet, "/api/user/profile", "S", nil, nil)
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCall_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	c := NewHTTPClient(srv.URL, 50*time.Millisecond)
	_, err := c.RefreshSession(context.Background(), "AUTH")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestCall_NotFound(t *testing.T) {
	c, _ := newServer(t, http.StatusNotFound, ``)

	err := c.Call(context.Background(), http.MethodGet, "/api/nope", "S", nil, nil)
	require.ErrorIs(t, err, ErrBadRequest)
	assert.Contains(t, err.Error(), "Not Found")
}

func TestCall_DecodesOut(t *testing.T) {
	c, got := newServer(t, http.StatusOK, `{"balance": 1500}`)

	var out struct {
		Balance int `json:"balance"`
	}
	require.NoError(t, c.Call(context.Background(), http.MethodGet, "/api/user/balance", "SESSION", nil, &out))
	assert.Equal(t, 1500, out.Balance)
	assert.Equal(t, "Bearer SESSION", got.auth)
}
