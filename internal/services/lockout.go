package services

import (
	"time"
)

const (
	// LockoutThreshold is the number of consecutive failures that locks an
	// account.
	LockoutThreshold = 5
	// LockoutDuration is how long a locked account stays locked.
	LockoutDuration = 15 * time.Minute
)

// LockState is the lockout bookkeeping stored on the user row. A zero value
// means unlocked with no failures on record.
//
// There is no background sweep: every authentication attempt compares the
// stored deadline to the current time, so a stale lock heals itself on the
// next attempt (lazy expiry).
type LockState struct {
	FailedAttempts int
	LockedUntil    *time.Time
}

// Remaining reports whether the account is locked at now, and for how much
// longer.
func (s LockState) Remaining(now time.Time) (time.Duration, bool) {
	if s.LockedUntil == nil || !now.Before(*s.LockedUntil) {
		return 0, false
	}
	return s.LockedUntil.Sub(now), true
}

// RecordFailure returns the state after one wrong credential at now. An
// expired lock is treated as a clean slate before the failure is counted.
func (s LockState) RecordFailure(now time.Time) LockState {
	if _, locked := s.Remaining(now); locked {
		// Attempts against a live lock never change the state.
		return s
	}
	if s.LockedUntil != nil {
		// Expired lock: this attempt starts from zero failures.
		s = LockState{}
	}

	s.FailedAttempts++
	if s.FailedAttempts >= LockoutThreshold {
		until := now.Add(LockoutDuration)
		return LockState{LockedUntil: &until}
	}
	return s
}

// RecordSuccess resets the state: failed attempts go to zero and any expired
// lock is cleared.
func (s LockState) RecordSuccess() LockState {
	return LockState{}
}
