// Package keystore is the Secure Credential Store: an encrypted key/value
// store holding one credential per service, optionally gated by a device
// authentication prompt on read.
package keystore

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("keystore: secret not found")
	// ErrNoPrompter is returned for a gated read when the store has no way to
	// authenticate the device owner.
	ErrNoPrompter = errors.New("keystore: authentication prompt unavailable")
)

// Credential is what a service entry holds.
type Credential struct {
	Account string `json:"account"`
	Secret  string `json:"secret"`
}

// Store is implemented by FileStore. Setting a service that already has a
// credential replaces it.
type Store interface {
	SetSecret(ctx context.Context, service, account, secret string) error
	GetSecret(ctx context.Context, service string, opts ...ReadOption) (Credential, error)
	DeleteSecret(ctx context.Context, service string) error
}

// Prompter authenticates the device owner, e.g. with a biometric check. A nil
// error means the owner was verified.
type Prompter interface {
	Authenticate(ctx context.Context, title string) error
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, title string) error

func (f PrompterFunc) Authenticate(ctx context.Context, title string) error {
	return f(ctx, title)
}

type readOptions struct {
	prompt string
}

type ReadOption func(*readOptions)

// WithPrompt requires a successful Prompter check, shown with title, before
// the secret is returned.
func WithPrompt(title string) ReadOption {
	return func(o *readOptions) { o.prompt = title }
}
