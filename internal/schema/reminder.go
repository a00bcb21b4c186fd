// Package schema provides the data structures shared by the reminder store,
// the sync reconciler, and the notification coordinator.
package schema

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SyncState tracks how a reminder relates to the remote mirror.
type SyncState string

const (
	// SyncLocal means the record has never reached the remote mirror.
	SyncLocal SyncState = "local"

	// SyncSynced means the record has a durable id and was consistent
	// with the remote mirror the last time we heard from it.
	SyncSynced SyncState = "synced"

	// SyncDirty means the record was edited locally after having been
	// synced; a remote update is pending.
	SyncDirty SyncState = "dirty"
)

// Reminder is the central record of the system.
//
// A reminder is addressed by two independent identifiers: the ephemeral id,
// assigned locally at creation and never reassigned, and the durable id,
// assigned by the remote mirror on first successful insert. The durable id
// is empty until the first sync and, once set, is never cleared except by
// deletion of the whole record.
type Reminder struct {
	EphemeralID string    `json:"ephemeral_id"`
	DurableID   string    `json:"durable_id,omitempty"`
	Title       string    `json:"title"`
	Notes       string    `json:"notes,omitempty"`
	TriggerAt   time.Time `json:"trigger_at"`
	Timezone    string    `json:"timezone,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	// NotificationHandle is the opaque token returned by the scheduling
	// capability. Present if and only if a non-cancelled trigger is
	// currently registered for this record.
	NotificationHandle string `json:"notification_handle,omitempty"`

	SyncState SyncState `json:"sync_state"`
}

// Validate checks the record invariants that every stored reminder must hold.
func (r *Reminder) Validate() error {
	if r.EphemeralID == "" {
		return fmt.Errorf("ephemeral_id is required")
	}
	if r.Title == "" {
		return fmt.Errorf("title is required")
	}
	if r.TriggerAt.IsZero() {
		return fmt.Errorf("trigger_at is required")
	}
	if r.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	switch r.SyncState {
	case SyncLocal, SyncDirty:
	case SyncSynced:
		if r.DurableID == "" {
			return fmt.Errorf("sync_state %q requires a durable id", r.SyncState)
		}
	default:
		return fmt.Errorf("unknown sync_state %q", r.SyncState)
	}
	return nil
}

// NewReminder materializes a local record from a validated draft.
//
// The record gets a fresh ephemeral id, starts in SyncLocal, and carries
// no notification handle until the coordinator registers a trigger.
func NewReminder(d *Draft, now time.Time) (*Reminder, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	at, err := d.TriggerTime()
	if err != nil {
		return nil, err
	}
	return &Reminder{
		EphemeralID: uuid.NewString(),
		Title:       d.Title,
		Notes:       d.Notes,
		TriggerAt:   at,
		Timezone:    d.Timezone,
		CreatedAt:   now.UTC(),
		SyncState:   SyncLocal,
	}, nil
}
