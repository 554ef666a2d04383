package session

import (
	"errors"
	"fmt"

	"github.com/rayyanshah04/flexpay/internal/client/client"
)

var (
	ErrInvalidCredentials = errors.New("invalid phone number or password")
	ErrInvalidInput       = errors.New("invalid input")
	ErrWrongPin           = errors.New("wrong PIN")
	ErrPinMismatch        = errors.New("PINs do not match")
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrNetwork            = errors.New("network error")
	ErrServerError        = errors.New("server error")
	ErrSessionExpired     = errors.New("session expired, please log in again")

	ErrPinNotSet       = errors.New("no PIN stored on this device")
	ErrBusy            = errors.New("operation already in progress")
	ErrLocked          = errors.New("session is locked")
	ErrSuperseded      = errors.New("result discarded after lock or logout")
	ErrTooManyAttempts = errors.New("too many PIN attempts, try again later")
)

// translate maps a transport error to the session taxonomy. rejected is used
// for a 4xx other than 401/403. The original error stays in the chain.
func translate(err error, rejected error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, client.ErrUnauthorized):
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	case errors.Is(err, client.ErrBadRequest):
		return fmt.Errorf("%w: %w", rejected, err)
	case errors.Is(err, client.ErrServer):
		return fmt.Errorf("%w: %w", ErrServerError, err)
	case errors.Is(err, client.ErrUnavailable):
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	default:
		return err
	}
}
