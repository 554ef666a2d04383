// Package shared holds errors common to the dev backend's layers.
package shared

import "errors"

var (

	// common errors
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")
	ErrorValidation    = errors.New("validation error")

	// auth-specific errors
	ErrorInvalidToken            = errors.New("invalid token")
	ErrorTokenExpired            = errors.New("token expired")
	ErrorInvalidAuthheaderFormat = errors.New("invalid auth header format")
	ErrorInvalidLoginPassword    = errors.New("invalid phone number/password")
	ErrorInvalidPinFormat        = errors.New("PIN must be 4 digits")
)
