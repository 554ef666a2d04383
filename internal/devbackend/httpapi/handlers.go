package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rayyanshah04/flexpay/internal/devbackend/users"
	"github.com/rayyanshah04/flexpay/internal/logging"
	"github.com/rayyanshah04/flexpay/internal/redact"
	"github.com/rayyanshah04/flexpay/internal/shared"
)

type Handlers struct {
	users *users.Service
	log   logging.Logger
}

func NewHandlers(s *users.Service, log logging.Logger) *Handlers {
	return &Handlers{users: s, log: log}
}

type loginRequest struct {
	Phone    string `json:"phone_number"`
	Password string `json:"password"`
}

// userView is the wire form of a user. The id is numeric like the
// production backend's row id.
type userView struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone_number"`
	Email string `json:"email,omitempty"`
}

type loginResponse struct {
	Message   string   `json:"message"`
	AuthToken string   `json:"auth_token"`
	User      userView `json:"user"`
}

type pinRequest struct {
	Pin string `json:"pin"`
}

type deviceTokenRequest struct {
	DeviceToken string `json:"device_token"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in loginRequest
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := h.users.Login(r.Context(), in.Phone, in.Password)
	if err != nil {
		switch {
		case errors.Is(err, shared.ErrorValidation):
			writeError(w, http.StatusBadRequest, "phone number and password are required")
		case errors.Is(err, shared.ErrorInvalidLoginPassword):
			h.log.Info(r.Context(), "login rejected", "phone", redact.Phone(in.Phone))
			writeError(w, http.StatusBadRequest, "Invalid phone number or password")
		default:
			h.internal(w, r, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful",
		AuthToken: token,
		User:      viewOf(user),
	})
}

func (h *Handlers) PinStatus(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"has_pin": user.HasPin()})
}

func (h *Handlers) SetPin(w http.ResponseWriter, r *http.Request) {
	var in pinRequest
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.users.SetPin(r.Context(), userFrom(r.Context()), in.Pin); err != nil {
		if errors.Is(err, shared.ErrorInvalidPinFormat) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.internal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}

func (h *Handlers) RefreshSession(w http.ResponseWriter, r *http.Request) {
	token, err := h.users.IssueSessionToken(r.Context(), userFrom(r.Context()))
	if err != nil {
		h.internal(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_token": token})
}

func (h *Handlers) DeviceToken(w http.ResponseWriter, r *http.Request) {
	var in deviceTokenRequest
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user := userFrom(r.Context())
	if err := h.users.RegisterDeviceToken(r.Context(), user, in.DeviceToken); err != nil {
		if errors.Is(err, shared.ErrorValidation) {
			writeError(w, http.StatusBadRequest, "device_token is required")
			return
		}
		h.internal(w, r, err)
		return
	}
	h.log.Info(r.Context(), "device token registered", "user_id", strconv.FormatInt(user.ID, 10))
	writeJSON(w, http.StatusOK, struct{}{})
}

// Profile is a sample endpoint that requires a session token.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(userFrom(r.Context())))
}

func (h *Handlers) internal(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func viewOf(u *users.User) userView {
	return userView{ID: u.ID, Name: u.Name, Phone: u.Phone, Email: u.Email}
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
