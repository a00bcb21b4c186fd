package sync

import (
	"context"
	"fmt"
	"log"
	"os"

	"remind/internal/remote"
	"remind/internal/schema"
	"remind/internal/store"
)

// reconciler implements the Reconciler interface.
type reconciler struct {
	store  *store.Store
	mirror remote.Mirror
	logger *log.Logger
}

// New creates a Reconciler over the given store and mirror.
//
// If logger is nil, a default logger writing to stderr is used.
func New(st *store.Store, mirror remote.Mirror, logger *log.Logger) Reconciler {
	if logger == nil {
		logger = log.New(os.Stderr, "[sync] ", log.LstdFlags)
	}
	return &reconciler{store: st, mirror: mirror, logger: logger}
}

// Push implements Reconciler.Push.
func (r *reconciler) Push(ctx context.Context, rec *schema.Reminder) error {
	if rec.DurableID != "" {
		return r.PushUpdate(ctx, rec)
	}

	// A previous push may have succeeded remotely but lost its
	// confirmation before the store was updated. Adopt the existing row
	// instead of inserting a duplicate for the same ephemeral id.
	durableID, adopted, err := r.mirror.FindEphemeral(ctx, rec.EphemeralID)
	if err != nil {
		return fmt.Errorf("push of %s failed: %w", rec.EphemeralID, err)
	}

	if adopted {
		r.logger.Printf("Adopting existing remote row %s for %s", durableID, rec.EphemeralID)
		if err := r.mirror.Update(ctx, durableID, rec); err != nil {
			return fmt.Errorf("push of %s failed: %w", rec.EphemeralID, err)
		}
	} else {
		durableID, err = r.mirror.Insert(ctx, rec)
		if err != nil {
			return fmt.Errorf("push of %s failed: %w", rec.EphemeralID, err)
		}
	}

	// Mark synced only now that the mirror has confirmed. A crash before
	// this point leaves the record local, which the next sweep fixes.
	rec.DurableID = durableID
	rec.SyncState = schema.SyncSynced
	if err := r.store.Replace(ctx, schema.Ephemeral(rec.EphemeralID), rec); err != nil {
		return fmt.Errorf("failed to record sync of %s: %w", rec.EphemeralID, err)
	}

	r.logger.Printf("Synced reminder %s as %s", rec.EphemeralID, durableID)
	return nil
}

// PushUpdate implements Reconciler.PushUpdate.
func (r *reconciler) PushUpdate(ctx context.Context, rec *schema.Reminder) error {
	if rec.DurableID == "" {
		// Never synced: the edit is already captured locally and the
		// eventual first push carries the latest content.
		return nil
	}

	if err := r.mirror.Update(ctx, rec.DurableID, rec); err != nil {
		return fmt.Errorf("update of %s failed: %w", rec.DurableID, err)
	}

	rec.SyncState = schema.SyncSynced
	if err := r.store.Replace(ctx, schema.Ephemeral(rec.EphemeralID), rec); err != nil {
		return fmt.Errorf("failed to record sync of %s: %w", rec.EphemeralID, err)
	}

	r.logger.Printf("Pushed update for %s", rec.DurableID)
	return nil
}

// PushDelete implements Reconciler.PushDelete.
func (r *reconciler) PushDelete(ctx context.Context, durableID string) error {
	if durableID == "" {
		return nil
	}
	if err := r.mirror.Delete(ctx, durableID); err != nil {
		return fmt.Errorf("remote delete of %s failed: %w", durableID, err)
	}
	r.logger.Printf("Deleted remote row %s", durableID)
	return nil
}

// Pull implements Reconciler.Pull.
func (r *reconciler) Pull(ctx context.Context) ([]schema.Reminder, []schema.Reminder, error) {
	remoteRecs, err := r.mirror.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("pull failed: %w", err)
	}

	var dropped, retimed []schema.Reminder
	err = r.store.Transform(ctx, func(local []schema.Reminder) []schema.Reminder {
		var merged []schema.Reminder
		merged, dropped, retimed = merge(local, remoteRecs)
		return merged
	})
	if err != nil {
		return nil, nil, fmt.Errorf("pull merge failed: %w", err)
	}

	r.logger.Printf("Pulled %d remote records (%d local dropped, %d retimed)", len(remoteRecs), len(dropped), len(retimed))
	return dropped, retimed, nil
}

// merge reconciles the remote list into the local one.
//
// Remote wins for records it knows (matched by durable id); local wins for
// records it has never seen (no durable id yet), so a pull cannot discard
// offline-created reminders. Device-local fields (ephemeral id, notification
// handle) survive from the local copy. Clean synced records absent from the
// remote were deleted there and are dropped; dirty ones keep their unpushed
// edits for the next sweep. Adopted records whose trigger instant differs
// from the local copy are reported as retimed: the surviving local handle
// still points at the old instant.
func merge(local, remoteRecs []schema.Reminder) (merged, dropped, retimed []schema.Reminder) {
	byDurable := make(map[string]int, len(local))
	for i := range local {
		if local[i].DurableID != "" {
			byDurable[local[i].DurableID] = i
		}
	}

	seen := make(map[string]bool, len(remoteRecs))
	for _, rec := range remoteRecs {
		if i, ok := byDurable[rec.DurableID]; ok {
			rec.EphemeralID = local[i].EphemeralID
			rec.NotificationHandle = local[i].NotificationHandle
			if !rec.TriggerAt.Equal(local[i].TriggerAt) {
				retimed = append(retimed, rec)
			}
		}
		seen[rec.DurableID] = true
		merged = append(merged, rec)
	}

	for _, rec := range local {
		switch {
		case rec.DurableID == "":
			merged = append(merged, rec)
		case seen[rec.DurableID]:
			// Already carried over above.
		case rec.SyncState == schema.SyncDirty:
			merged = append(merged, rec)
		default:
			dropped = append(dropped, rec)
		}
	}
	return merged, dropped, retimed
}

// ResyncAll implements Reconciler.ResyncAll.
func (r *reconciler) ResyncAll(ctx context.Context) (int, error) {
	list, err := r.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("resync failed to read store: %w", err)
	}

	synced := 0
	for i := range list {
		rec := list[i]
		var err error
		switch rec.SyncState {
		case schema.SyncLocal:
			err = r.Push(ctx, &rec)
		case schema.SyncDirty:
			err = r.PushUpdate(ctx, &rec)
		default:
			continue
		}
		if err != nil {
			// One record's failure must not prevent attempts on the
			// others.
			r.logger.Printf("WARNING: resync of %s failed: %v", rec.EphemeralID, err)
			continue
		}
		synced++
	}

	r.logger.Printf("Resync sweep complete: %d newly synced", synced)
	return synced, nil
}
