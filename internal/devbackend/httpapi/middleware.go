package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rayyanshah04/flexpay/internal/common"
	"github.com/rayyanshah04/flexpay/internal/devbackend/users"
	"github.com/rayyanshah04/flexpay/internal/logging"
	"github.com/rayyanshah04/flexpay/internal/shared"
)

// Middleware is a standard net/http middleware.
type Middleware func(http.Handler) http.Handler

type ctxKey string

const (
	ctxRequestID ctxKey = "requestID"
	ctxUser      ctxKey = "user"
)

// RequestID makes sure every request carries X-Request-Id, generating one
// when the client did not send it. The id is echoed in the response.
func RequestID() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(common.RequestIDHeaderName)
			if id == "" {
				id = uuid.NewString()
				r.Header.Set(common.RequestIDHeaderName, id)
			}
			w.Header().Set(common.RequestIDHeaderName, id)

			ctx := context.WithValue(r.Context(), ctxRequestID, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxRequestID).(string)
	return id
}

// Logging writes one line per request.
func Logging(l logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusWriter{ResponseWriter: w}
			start := time.Now()
			next.ServeHTTP(sw, r)

			l.Info(r.Context(), "http",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.code(),
				"dur", time.Since(start),
				"request_id", requestID(r.Context()),
			)
		})
	}
}

// Recover turns a panic into a 500 without leaking details to the client.
func Recover(l logging.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					l.Error(r.Context(), "panic", "path", r.URL.Path, "reason", rec)
					writeError(w, http.StatusInternalServerError, "internal error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// Authenticator resolves a bearer token to a user.
type Authenticator func(ctx context.Context, token string) (*users.User, error)

// RequireBearer rejects requests without a valid bearer token and stores the
// resolved user in the request context.
func RequireBearer(resolve Authenticator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}
			user, err := resolve(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), ctxUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	const prefix = "Bearer "
	h := r.Header.Get(common.AuthorizationHeaderName)
	if !strings.HasPrefix(h, prefix) {
		return "", shared.ErrorInvalidAuthheaderFormat
	}
	token := strings.TrimSpace(h[len(prefix):])
	if token == "" {
		return "", shared.ErrorInvalidAuthheaderFormat
	}
	return token, nil
}

func userFrom(ctx context.Context) *users.User {
	u, _ := ctx.Value(ctxUser).(*users.User)
	return u
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(p)
}

func (w *statusWriter) code() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}
