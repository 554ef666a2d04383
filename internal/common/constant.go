// Package common contains constants and small helpers shared by the FlexPay
// client, its CLI and the local dev backend.
package common

// AuthorizationHeaderName carries "Bearer <token>" on authenticated requests.
const AuthorizationHeaderName = "Authorization"

// RequestIDHeaderName is attached to every outbound backend request.
const RequestIDHeaderName = "X-Request-Id"

// PinService is the Secure Credential Store service identifier under which
// the user's PIN is kept. The account is the user id.
const PinService = "userPin"

// PinLength is the number of digits in a PIN.
const PinLength = 4

// IsPin reports whether s is exactly PinLength ASCII digits.
func IsPin(s string) bool {
	if len(s) != PinLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
