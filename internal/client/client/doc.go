// Package client contains the client-side building blocks that talk to the
// outside world.
//
// # Overview
//
//  1. A transport-agnostic contract for the Auth Backend (see the Client
//     interface): Login, CheckPinStatus, SetPin, RefreshSession,
//     RegisterDeviceToken and a generic authenticated Call.
//  2. An HTTP implementation (see HTTPClient) speaking JSON over REST, adding
//     a request id to every call and mapping HTTP outcomes to sentinel errors.
//  3. Local persistence bootstrap (InitDatabase, RunMigrations) wiring an
//     SQLite database and applying embedded goose migrations.
//
// # Error Handling
//
// Outcomes are exposed as sentinel errors matched with errors.Is:
// ErrUnauthorized (401/403), ErrBadRequest (other 4xx), ErrServer (5xx) and
// ErrUnavailable (transport failure or timeout). The server's error message,
// when present, is kept in the wrapped error text.
//
// HTTPClient is safe for concurrent use. It holds no credentials; every
// authenticated call receives its bearer token from the caller.
package client
