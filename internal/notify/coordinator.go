package notify

import (
	"fmt"
	"log"
	"os"
	"time"

	"remind/internal/schema"
)

// fallbackShift is applied once when a trigger instant is already past.
// A badly-parsed draft gets a second chance tomorrow; anything older fails.
const fallbackShift = 24 * time.Hour

// Coordinator maps each reminder to at most one active trigger on the
// underlying capability.
type Coordinator struct {
	cap    Capability
	logger *log.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewCoordinator creates a Coordinator over the given capability.
//
// If logger is nil, a default logger writing to stderr is used.
func NewCoordinator(c Capability, logger *log.Logger) *Coordinator {
	if logger == nil {
		logger = log.New(os.Stderr, "[notify] ", log.LstdFlags)
	}
	return &Coordinator{cap: c, logger: logger, now: time.Now}
}

// Schedule registers a device trigger for the reminder and returns its
// handle. A past-due instant is shifted forward by exactly 24 hours once; if
// it is still past after the shift, Schedule fails with ErrUnschedulable and
// no trigger is registered.
//
// The caller must persist the returned handle on the reminder record.
func (c *Coordinator) Schedule(rec *schema.Reminder) (string, error) {
	at := rec.TriggerAt
	if !at.After(c.now()) {
		at = at.Add(fallbackShift)
		c.logger.Printf("Trigger for %s is past due, shifting to %s", rec.EphemeralID, at.Format(time.RFC3339))
	}
	if !at.After(c.now()) {
		return "", fmt.Errorf("%w: %s is still past after the fallback shift", ErrUnschedulable, at.Format(time.RFC3339))
	}

	handle, err := c.cap.Schedule(rec.Title, rec.Notes, at)
	if err != nil {
		return "", fmt.Errorf("failed to register trigger for %s: %w", rec.EphemeralID, err)
	}

	c.logger.Printf("Scheduled trigger %s for %s at %s", handle, rec.EphemeralID, at.Format(time.RFC3339))
	return handle, nil
}

// Cancel removes a trigger. Empty, unknown, and already-cancelled handles
// are all no-ops.
func (c *Coordinator) Cancel(handle string) error {
	if handle == "" {
		return nil
	}
	if err := c.cap.Cancel(handle); err != nil {
		return fmt.Errorf("failed to cancel trigger %s: %w", handle, err)
	}
	return nil
}

// Reschedule cancels oldHandle and registers a fresh trigger for the
// reminder. If the second step fails the old trigger is not restored: the
// reminder is left with no active trigger, never with two.
func (c *Coordinator) Reschedule(rec *schema.Reminder, oldHandle string) (string, error) {
	if err := c.Cancel(oldHandle); err != nil {
		return "", err
	}
	return c.Schedule(rec)
}

// CancelAll removes every registered trigger. The caller is responsible for
// clearing persisted handles where appropriate.
func (c *Coordinator) CancelAll() error {
	if err := c.cap.CancelAll(); err != nil {
		return fmt.Errorf("failed to cancel triggers: %w", err)
	}
	c.logger.Printf("Cancelled all triggers")
	return nil
}

// ListActive returns the handles of all currently registered triggers.
func (c *Coordinator) ListActive() ([]string, error) {
	return c.cap.Active()
}
