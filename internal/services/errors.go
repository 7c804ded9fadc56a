package services

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy shared by the services layer. Handlers map these onto HTTP
// status codes; storage detail stays behind the generic wrapped errors.
var (
	// ErrInvalidInput rejects malformed input before any mutation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is the uniform login failure. It must not reveal
	// whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrUnauthenticated means no valid session context was presented.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)

// ConflictError reports a uniqueness violation at registration or profile
// update, naming the field so the user gets a specific message.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already in use", e.Field)
}

// LockedError reports a locked account along with the remaining wait time.
// Revealing the wait time is a deliberate tradeoff carried over from the
// site's original behavior.
type LockedError struct {
	Remaining time.Duration
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked, try again in %d minute(s)", e.RemainingMinutes())
}

// RemainingMinutes rounds up so "30 seconds left" reads as 1 minute.
func (e *LockedError) RemainingMinutes() int {
	mins := int((e.Remaining + time.Minute - 1) / time.Minute)
	if mins < 1 {
		mins = 1
	}
	return mins
}
