// Package sync reconciles the local reminder store with the remote mirror
// under unreliable connectivity.
package sync

import (
	"context"

	"remind/internal/schema"
)

// Reconciler moves records between the store and the remote mirror,
// preserving at-least-one-copy durability at all times.
//
// Remote failures never abort the broader operation that invoked them: the
// record stays local/dirty and a later ResyncAll retries it. The store is
// only marked synced after the mirror confirms success, never optimistically
// before, so a crash mid-push leaves the record correctly unsynced.
type Reconciler interface {
	// Push attempts to insert the record into the remote mirror. On
	// success the store record gains the durable id and becomes synced;
	// rec is updated in place. A remote failure is reported but leaves
	// the record local (or dirty, if it had synced before).
	Push(ctx context.Context, rec *schema.Reminder) error

	// PushUpdate propagates a local edit of a previously synced record.
	// For records with no durable id yet there is nothing to do remotely;
	// that is not an error.
	PushUpdate(ctx context.Context, rec *schema.Reminder) error

	// PushDelete removes the remote row for a deleted record. An empty
	// durable id means the record never reached the mirror; no-op.
	PushDelete(ctx context.Context, durableID string) error

	// Pull fetches the full remote list and merges it into the store:
	// remote wins for records it knows (matched by durable id), local
	// wins for records it has never seen (no durable id yet). Returns the
	// local records dropped by the merge because the mirror no longer has
	// them, so the caller can cancel their triggers, and the adopted
	// records whose trigger instant moved remotely, so the caller can
	// reschedule them.
	Pull(ctx context.Context) (dropped, retimed []schema.Reminder, err error)

	// ResyncAll retries every record that never reached the mirror or
	// has unpushed edits. Failures are isolated per record. Returns the
	// number of records that transitioned to synced in this sweep.
	ResyncAll(ctx context.Context) (int, error)
}
