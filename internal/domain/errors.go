package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned when a session id is unknown or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrParticipantNotFound is returned when the user row backing a session is missing.
	ErrParticipantNotFound = errors.New("participant not found")
	// ErrUserExists is returned when registering a user id that is already taken.
	ErrUserExists = errors.New("user already registered")
	// ErrProblemNotFound indicates a submitted problem id is not part of the active contest.
	ErrProblemNotFound = errors.New("problem not found in active contest")
	// ErrDuplicateProblem indicates the sequence number is already used in that contest.
	ErrDuplicateProblem = errors.New("problem sequence already exists in contest")
	// ErrContestNotActive is returned for submissions while waiting or ended.
	ErrContestNotActive = errors.New("contest is not active")
	// ErrTimeUp is returned for submissions after the deadline of an active contest.
	ErrTimeUp = errors.New("contest time is up")
	// ErrInvalidTransition is returned when an admin command does not apply to the current status.
	ErrInvalidTransition = errors.New("invalid contest status transition")
	// ErrValidation marks malformed admin or client input.
	ErrValidation = errors.New("validation failed")
	// ErrVersionConflict is returned by a store when a conditional update lost a race.
	ErrVersionConflict = errors.New("record was modified concurrently")
	// ErrTransientWrite means a write did not complete; the caller may retry.
	ErrTransientWrite = errors.New("write failed, safe to retry")
	// ErrStoreUnavailable means the store could not be reached or timed out.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrCorruptRecord marks a stored field that cannot be parsed.
	ErrCorruptRecord = errors.New("corrupt record")
)

// Validationf wraps ErrValidation with a message for the user.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// CorruptRecordf wraps ErrCorruptRecord naming the table, field and offending value.
func CorruptRecordf(table, field, value string) error {
	return fmt.Errorf("%w: %s.%s=%q", ErrCorruptRecord, table, field, value)
}
