package blockx

import "errors"

var (
	ErrInvalidTopology = errors.New("invalid topology")
	ErrAlreadyStarted  = errors.New("machine already started")
	ErrNotStarted      = errors.New("machine not started")
	// ErrBehaviorFailed wraps an error or panic raised by a guard, effect or
	// activity. The machine stops processing when it occurs.
	ErrBehaviorFailed = errors.New("behavior failed")
	// ErrStopped is reported by Err after a hard stop.
	ErrStopped = errors.New("machine stopped")
)
