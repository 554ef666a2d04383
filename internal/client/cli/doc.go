// Package cli provides the interactive FlexPay command-line client.
//
// It drives a session.Manager from a terminal: sign in with phone number and
// password, create or enter the 4-digit PIN, lock and unlock, and sign out.
// PINs and passwords are read without echo when stdin is a terminal.
//
// Key features:
//   - Login and unlock check the backend's PIN status, then continue to PIN
//     entry or PIN setup
//   - PIN setup asks twice and restarts on a mismatch
//   - Biometric unlock through a terminal consent prompt (TerminalPrompter)
//   - Background / foreground simulation for the background lock
//   - Profile lookup and token refresh for an unlocked session
//   - Asynchronous notices when the inactivity timer locks the session
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
