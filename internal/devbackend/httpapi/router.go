// Package httpapi exposes the dev backend's REST endpoints.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rayyanshah04/flexpay/internal/devbackend/users"
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
	PathMetrics     = "/metrics"
)

// NewRouter builds the handler tree. Auth-token routes accept the login
// token; the profile route needs a session token.
func NewRouter(s *users.Service, log logging.Logger) http.Handler {
	h := NewHandlers(s, log)

	r := chi.NewRouter()
	r.Use(
		Recover(log),
		RequestID(),
		Logging(log),
		obs.Instrument,
	)

	r.Post(PathLogin, h.Login)

	r.Group(func(r chi.Router) {
		r.Use(RequireBearer(s.Authenticate))
		r.Get(PathPinCheck, h.PinStatus)
		r.Post(PathPinSet, h.SetPin)
		r.Post(PathRefresh, h.RefreshSession)
		r.Post(PathDeviceToken, h.DeviceToken)
	})

	r.Group(func(r chi.Router) {
		r.Use(RequireBearer(s.AuthenticateSession))
		r.Get(PathProfile, h.Profile)
	})

	r.Method(http.MethodGet, PathMetrics, obs.Handler())
	return r
}
