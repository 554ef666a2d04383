package session

import (
	"fmt"

	"github.com/rayyanshah04/flexpay/internal/common"
)

// ValidatePin reports ErrInvalidInput unless pin is exactly four ASCII digits.
func ValidatePin(pin string) error {
	switch {
	case common.IsPin(pin):
		return nil
	case len(pin) != common.PinLength:
		return fmt.Errorf("%w: PIN must be %d digits", ErrInvalidInput, common.PinLength)
	default:
		return fmt.Errorf("%w: PIN must contain digits only", ErrInvalidInput)
	}
}

// ConfirmPin checks the second entry of a new PIN against the first. No
// network call is made.
func ConfirmPin(pin, confirmation string) error {
	if err := ValidatePin(pin); err != nil {
		return err
	}
	if pin != confirmation {
		return ErrPinMismatch
	}
	return nil
}
