package models

import "time"

// LockState is the session manager's position in the unlock lifecycle.
type LockState int

const (
	Unauthenticated LockState = iota
	LoggedInLocked
	Unlocking
	Unlocked
)

func (s LockState) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case LoggedInLocked:
		return "locked"
	case Unlocking:
		return "unlocking"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Transition records a LockState change. Reason is a short machine-friendly
// tag such as "login", "inactivity" or "token_rejected".
type Transition struct {
	From   LockState
	To     LockState
	Reason string
	At     time.Time
}
