package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rayyanshah04/flexpay/internal/client/models"
	"github.com/rayyanshah04/flexpay/internal/common"
	"github.com/rayyanshah04/flexpay/internal/logging"
	"github.com/rayyanshah04/flexpay/internal/obs"
)

const (
	PathLogin       = "/api/login"
	PathPinCheck    = "/api/login-pin/check"
	PathPinSet      = "/api/login-pin/set"
	PathRefresh     = "/api/session/refresh"
	PathDeviceToken = "/api/user/device-token"
	PathProfile     = "/api/user/profile"

	maxErrorBody = 4 << 10
)

type loginRequest struct {
	Phone    string `json:"phone_number"`
	Password string `json:"password"`
}

type loginResponse struct {
	User      models.UserProfile `json:"user"`
	AuthToken string             `json:"auth_token"`
	Token     string             `json:"token"`
}

type pinStatusResponse struct {
	HasPin bool `json:"has_pin"`
}

type setPinRequest struct {
	Pin string `json:"pin"`
}

type refreshResponse struct {
	SessionToken string `json:"session_token"`
}

type deviceTokenRequest struct {
	DeviceToken string `json:"device_token"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HTTPClient implements Client over JSON/REST.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     logging.Logger
}

type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client, e.g. to use an
// httptest server's client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.http = hc }
}

func WithLogger(l logging.Logger) Option {
	return func(c *HTTPClient) { c.log = l }
}

func NewHTTPClient(baseURL string, timeout time.Duration, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *HTTPClient) Login(ctx context.Context, phone, password string) (string, models.UserProfile, error) {
	var resp loginResponse
	if err := c.Call(ctx, http.MethodPost, PathLogin, "", loginRequest{Phone: phone, Password: password}, &resp); err != nil {
		return "", models.UserProfile{}, err
	}

	token := resp.AuthToken
	if token == "" {
		token = resp.Token
	}
	if token == "" {
		return "", models.UserProfile{}, fmt.Errorf("%w: login response without auth token", ErrServer)
	}
	return token, resp.User, nil
}

func (c *HTTPClient) CheckPinStatus(ctx context.Context, authToken string) (bool, error) {
	var resp pinStatusResponse
	if err := c.Call(ctx, http.MethodGet, PathPinCheck, authToken, nil, &resp); err != nil {
		return false, err
	}
	return resp.HasPin, nil
}

func (c *HTTPClient) SetPin(ctx context.Context, authToken, pin string) error {
	return c.Call(ctx, http.MethodPost, PathPinSet, authToken, setPinRequest{Pin: pin}, nil)
}

func (c *HTTPClient) RefreshSession(ctx context.Context, authToken string) (string, error) {
	var resp refreshResponse
	if err := c.Call(ctx, http.MethodPost, PathRefresh, authToken, nil, &resp); err != nil {
		return "", err
	}
	if resp.SessionToken == "" {
		return "", fmt.Errorf("%w: refresh response without session token", ErrServer)
	}
	return resp.SessionToken, nil
}

func (c *HTTPClient) RegisterDeviceToken(ctx context.Context, authToken, deviceToken string) error {
	return c.Call(ctx, http.MethodPost, PathDeviceToken, authToken, deviceTokenRequest{DeviceToken: deviceToken}, nil)
}

// Call sends in as a JSON body (when non-nil) and decodes the response into
// out (when non-nil). A non-empty token is sent as a Bearer credential.
func (c *HTTPClient) Call(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	requestID := uuid.NewString()
	req.Header.Set(common.RequestIDHeaderName, requestID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		obs.ObserveBackend(path, 0, time.Since(start))
		c.log.Warn(ctx, "backend call failed", "method", method, "path", path, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	obs.ObserveBackend(path, resp.StatusCode, time.Since(start))
	c.log.Debug(ctx, "backend call", "method", method, "path", path, "status", resp.StatusCode, "request_id", requestID)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return mapStatus(resp)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: decode %s response: %v", ErrServer, path, err)
	}
	return nil
}

func mapStatus(resp *http.Response) error {
	msg := http.StatusText(resp.StatusCode)
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil {
		switch {
		case e.Error != "":
			msg = e.Error
		case e.Message != "":
			msg = e.Message
		}
	}

	code := resp.StatusCode
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return fmt.Errorf("%w: %d %s", ErrUnauthorized, code, msg)
	case code >= 500:
		return fmt.Errorf("%w: %d %s", ErrServer, code, msg)
	case code >= 400:
		return fmt.Errorf("%w: %d %s", ErrBadRequest, code, msg)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrServer, code)
	}
}
