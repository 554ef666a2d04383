package cli

import (
	"context"

	"github.com/rayyanshah04/flexpay/internal/client/models"
	"github.com/rayyanshah04/flexpay/internal/client/session"
	"github.com/rayyanshah04/flexpay/internal/common"
)

// getSimpleText and getSecret are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getSecret = GetSecret

// maxPinSetupRounds bounds how often PIN setup restarts after a mismatch.
const maxPinSetupRounds = 3

// Login prompts for phone number and password and signs in. On success it
// continues to PIN entry, which falls back to PIN setup when needed.
func (a *App) Login(ctx context.Context) error {
	if a.session.State() != models.Unauthenticated {
		a.say("Already logged in. Use 'logout' first.")
		return nil
	}

	phone, err := getSimpleText(a.reader, "Enter phone number", a.out)
	if err != nil {
		return err
	}
	password, err := getSecret(a.reader, "Enter password", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.session.Login(ctx, phone, string(password))
	if err != nil {
		return a.report(err)
	}
	a.say("Logged in as %s.", user.Name)
	return a.Unlock(ctx)
}

// PinStatus asks the backend whether a PIN exists for the account.
func (a *App) PinStatus(ctx context.Context) error {
	hasPin, err := a.session.CheckPinStatus(ctx)
	if err != nil {
		return a.report(err)
	}
	if hasPin {
		a.say("A PIN is set for this account.")
	} else {
		a.say("No PIN is set for this account.")
	}
	return nil
}

// SetPin asks for a new PIN twice and registers it. A mismatch or malformed
// PIN restarts the prompt without contacting the backend.
func (a *App) SetPin(ctx context.Context) error {
	for round := 0; round < maxPinSetupRounds; round++ {
		pin, err := getSecret(a.reader, "Create a 4-digit PIN", a.out)
		if err != nil {
			return err
		}
		if err := session.ValidatePin(string(pin)); err != nil {
			common.WipeByteArray(pin)
			a.report(err)
			continue
		}
		confirm, err := getSecret(a.reader, "Confirm PIN", a.out)
		if err != nil {
			common.WipeByteArray(pin)
			return err
		}
		err = session.ConfirmPin(string(pin), string(confirm))
		common.WipeByteArray(confirm)
		if err != nil {
			common.WipeByteArray(pin)
			a.report(err)
			continue
		}

		err = a.session.SetPin(ctx, string(pin))
		common.WipeByteArray(pin)
		if err != nil {
			return a.report(err)
		}
		a.say("PIN set. Session unlocked.")
		return nil
	}
	return a.report(session.ErrPinMismatch)
}

// Unlock asks the backend whether a PIN exists, then asks for it and
// unlocks the session. Without a PIN on the backend it moves on to PIN setup,
// whatever the keystore holds.
func (a *App) Unlock(ctx context.Context) error {
	if a.session.State() == models.Unlocked {
		a.say("Already unlocked.")
		return nil
	}
	hasPin, err := a.session.CheckPinStatus(ctx)
	if err != nil {
		return a.report(err)
	}
	if !hasPin {
		a.say("No PIN set for this account yet.")
		return a.SetPin(ctx)
	}

	pin, err := getSecret(a.reader, "Enter PIN", a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pin)

	if err := a.session.AttemptUnlock(ctx, string(pin)); err != nil {
		return a.report(err)
	}
	a.say("Unlocked.")
	return nil
}

// Biometric unlocks using the stored PIN behind an authentication prompt.
func (a *App) Biometric(ctx context.Context) error {
	if err := a.session.UnlockWithBiometrics(ctx); err != nil {
		return a.report(err)
	}
	a.say("Unlocked.")
	return nil
}

func (a *App) Lock(ctx context.Context) error {
	if a.session.State() == models.Unauthenticated {
		return a.report(session.ErrNotLoggedIn)
	}
	a.session.Lock()
	a.say("Locked.")
	return nil
}

// Logout signs out. The local login is forgotten even when the cleanup
// error is reported.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		a.log.Warn(ctx, "logout cleanup failed", "error", err)
		return a.report(err)
	}
	a.say("Logged out.")
	return nil
}
