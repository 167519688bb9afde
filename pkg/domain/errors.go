package domain

import "errors"

// Every failure in the roster core is recoverable; callers surface these to
// the UI layer as notifications rather than aborting.
var (
	// ErrInvalidRoom reports an unknown or currently-skipped room passed to a command.
	ErrInvalidRoom = errors.New("room is not in the active rotation")
	// ErrAlreadyCompleted reports a duplicate same-day completion attempt.
	ErrAlreadyCompleted = errors.New("room already completed today's duty")
	// ErrMalformedSnapshot reports a persisted or imported payload that failed validation.
	ErrMalformedSnapshot = errors.New("malformed snapshot")
	// ErrDegenerateRotation reports an empty active room list: no valid current room.
	ErrDegenerateRotation = errors.New("all rooms skipped, rotation is empty")
	// ErrRemoteUnavailable reports an unreachable remote store; the caller degrades to local-only.
	ErrRemoteUnavailable = errors.New("remote store unavailable")
)
