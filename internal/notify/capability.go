// Package notify keeps device notification triggers in lockstep with
// reminder records.
package notify

import (
	"errors"
	"time"
)

// ErrUnschedulable reports a trigger instant that is still in the past after
// the one allowed fallback shift.
var ErrUnschedulable = errors.New("trigger instant not schedulable")

// Capability is the underlying platform scheduling primitive. Handles are
// opaque tokens; the Coordinator never interprets them.
type Capability interface {
	// Schedule registers a trigger at the given instant and returns a
	// handle for it. at is guaranteed to be in the future by the caller.
	Schedule(title, body string, at time.Time) (string, error)

	// Cancel removes a registered trigger. Cancelling an unknown,
	// already-fired, or already-cancelled handle is not an error.
	Cancel(handle string) error

	// CancelAll removes every registered trigger.
	CancelAll() error

	// Active returns the handles of all currently registered triggers.
	Active() ([]string, error)
}
