// Package service orchestrates the store, the sync reconciler, and the
// notification coordinator behind one facade.
//
// The local-first contract lives here: every operation completes its local
// half even when the remote mirror or the scheduling capability fails, and
// degraded outcomes are reported alongside the local success rather than
// replacing it.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"remind/internal/notify"
	"remind/internal/schema"
	"remind/internal/store"
	syncpkg "remind/internal/sync"
)

// Service is the operation facade over a store, a reconciler, and a
// notification coordinator.
type Service struct {
	store  *store.Store
	sync   syncpkg.Reconciler
	notify *notify.Coordinator
	events EventSink
	logger *log.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// New creates a Service. events may be nil.
//
// If logger is nil, a default logger writing to stderr is used.
func New(st *store.Store, rec syncpkg.Reconciler, co *notify.Coordinator, events EventSink, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(os.Stderr, "[service] ", log.LstdFlags)
	}
	if events == nil {
		events = func(Event) {}
	}
	return &Service{
		store:  st,
		sync:   rec,
		notify: co,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// CreateResult reports the layered outcome of CreateReminder. The record in
// Reminder is always persisted locally; SyncErr and ScheduleErr carry the
// degraded halves, if any.
type CreateResult struct {
	Reminder    *schema.Reminder
	Synced      bool
	SyncErr     error
	ScheduleErr error
}

// CreateReminder persists a validated draft locally, then attempts the
// remote push and the trigger registration. Only the local persistence is
// load-bearing: a failure there fails the operation, everything after is
// reported through CreateResult without undoing the local record.
func (s *Service) CreateReminder(ctx context.Context, draft *schema.Draft) (*CreateResult, error) {
	rec, err := schema.NewReminder(draft, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Append(ctx, rec); err != nil {
		return nil, err
	}

	res := &CreateResult{Reminder: rec}

	if err := s.sync.Push(ctx, rec); err != nil {
		s.logger.Printf("WARNING: reminder %s saved locally but not synced: %v", rec.EphemeralID, err)
		res.SyncErr = err
	} else {
		res.Synced = true
	}

	handle, err := s.notify.Schedule(rec)
	if err != nil {
		s.logger.Printf("WARNING: reminder %s saved without a trigger: %v", rec.EphemeralID, err)
		res.ScheduleErr = err
	} else {
		rec.NotificationHandle = handle
		if err := s.store.Replace(ctx, schema.Ephemeral(rec.EphemeralID), rec); err != nil {
			return nil, err
		}
	}

	s.emit(EventReminderUpdate, rec)
	return res, nil
}

// ListReminders returns all current records in insertion order.
func (s *Service) ListReminders(ctx context.Context) ([]schema.Reminder, error) {
	return s.store.List(ctx)
}

// FindReminder returns the record addressed by raw, resolving it as an
// ephemeral id first and a durable id second.
func (s *Service) FindReminder(ctx context.Context, raw string) (*schema.Reminder, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if _, i := schema.ResolveRaw(list, raw); i >= 0 {
		rec := list[i]
		return &rec, nil
	}
	return nil, fmt.Errorf("%w: %s", store.ErrNotFound, raw)
}

// Patch is a partial update of a reminder; nil fields are left unchanged.
type Patch struct {
	Title     *string
	Notes     *string
	TriggerAt *time.Time
	Timezone  *string
}

func (p *Patch) apply(rec *schema.Reminder) (changedTrigger bool) {
	if p.Title != nil {
		rec.Title = *p.Title
	}
	if p.Notes != nil {
		rec.Notes = *p.Notes
	}
	if p.TriggerAt != nil && !p.TriggerAt.Equal(rec.TriggerAt) {
		rec.TriggerAt = *p.TriggerAt
		changedTrigger = true
	}
	if p.Timezone != nil {
		rec.Timezone = *p.Timezone
	}
	return changedTrigger
}

// EditReminder applies the patch, marks a previously synced record dirty,
// re-registers the trigger when the instant moved, and attempts the remote
// update. The local edit always lands; remote and scheduling failures are
// logged and left for the next resync.
func (s *Service) EditReminder(ctx context.Context, id schema.Identity, patch *Patch) (*schema.Reminder, error) {
	rec, err := s.store.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	changedTrigger := patch.apply(rec)
	if rec.SyncState == schema.SyncSynced {
		rec.SyncState = schema.SyncDirty
	}

	if changedTrigger {
		handle, err := s.notify.Reschedule(rec, rec.NotificationHandle)
		if err != nil {
			s.logger.Printf("WARNING: reminder %s edited but left without a trigger: %v", rec.EphemeralID, err)
			handle = ""
		}
		rec.NotificationHandle = handle
	}

	if err := s.store.Replace(ctx, schema.Ephemeral(rec.EphemeralID), rec); err != nil {
		return nil, err
	}

	if err := s.sync.PushUpdate(ctx, rec); err != nil {
		s.logger.Printf("WARNING: edit of %s saved locally but not synced: %v", rec.EphemeralID, err)
	}

	s.emit(EventReminderUpdate, rec)
	return rec, nil
}

// DeleteReminder cancels the trigger, removes the remote row, and removes
// the local record. Deleting an absent identity is a no-op. A remote delete
// failure does not keep the record alive locally; the orphaned remote row is
// collected by a later pull on another device or left to expire.
func (s *Service) DeleteReminder(ctx context.Context, id schema.Identity) error {
	rec, err := s.store.Find(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := s.notify.Cancel(rec.NotificationHandle); err != nil {
		s.logger.Printf("WARNING: failed to cancel trigger for %s: %v", rec.EphemeralID, err)
	}
	if err := s.sync.PushDelete(ctx, rec.DurableID); err != nil {
		s.logger.Printf("WARNING: remote row %s not removed: %v", rec.DurableID, err)
	}
	if err := s.store.Remove(ctx, schema.Ephemeral(rec.EphemeralID)); err != nil {
		return err
	}

	s.emit(EventReminderUpdate, nil)
	return nil
}

// DeleteAll removes every record: triggers cancelled, remote rows removed
// best-effort, local list emptied.
func (s *Service) DeleteAll(ctx context.Context) (int, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, rec := range list {
		if err := s.DeleteReminder(ctx, schema.Ephemeral(rec.EphemeralID)); err != nil {
			return 0, err
		}
	}
	return len(list), nil
}

// Resync retries every unsynced record and, when pull is set, merges the
// remote list back in. Triggers of records the merge dropped are cancelled;
// records whose trigger instant moved remotely are rescheduled so the
// registered trigger matches the adopted instant.
func (s *Service) Resync(ctx context.Context, pull bool) (SyncReport, error) {
	var report SyncReport

	n, err := s.sync.ResyncAll(ctx)
	if err != nil {
		return report, err
	}
	report.Synced = n

	if pull {
		dropped, retimed, err := s.sync.Pull(ctx)
		if err != nil {
			return report, err
		}
		report.Dropped = len(dropped)
		report.Retimed = len(retimed)
		for _, rec := range dropped {
			if err := s.notify.Cancel(rec.NotificationHandle); err != nil {
				s.logger.Printf("WARNING: failed to cancel trigger for dropped %s: %v", rec.EphemeralID, err)
			}
		}
		for i := range retimed {
			rec := retimed[i]
			handle, err := s.notify.Reschedule(&rec, rec.NotificationHandle)
			if err != nil {
				s.logger.Printf("WARNING: retimed reminder %s left without a trigger: %v", rec.EphemeralID, err)
				handle = ""
			}
			if handle == rec.NotificationHandle {
				continue
			}
			rec.NotificationHandle = handle
			if err := s.store.Replace(ctx, schema.Ephemeral(rec.EphemeralID), &rec); err != nil {
				return report, err
			}
		}
	}

	s.emit(EventSyncComplete, report)
	return report, nil
}

// RestoreTriggers re-registers a trigger for every future record, for use
// on process start when the in-memory timers of the previous run are gone.
// Past-due records are not re-registered: the grace shift applies once at
// creation, not again on every restart. They only lose their stale handle.
func (s *Service) RestoreTriggers(ctx context.Context) (int, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return 0, err
	}

	restored := 0
	for i := range list {
		rec := list[i]
		var handle string
		if rec.TriggerAt.After(s.now()) {
			handle, err = s.notify.Schedule(&rec)
			if err != nil {
				s.logger.Printf("WARNING: failed to restore trigger for %s: %v", rec.EphemeralID, err)
				handle = ""
			} else {
				restored++
			}
		}
		if handle == rec.NotificationHandle {
			continue
		}
		rec.NotificationHandle = handle
		if err := s.store.Replace(ctx, schema.Ephemeral(rec.EphemeralID), &rec); err != nil {
			return restored, err
		}
	}

	s.logger.Printf("Restored %d triggers", restored)
	return restored, nil
}

// CollectStats summarizes the store for status displays.
func (s *Service) CollectStats(ctx context.Context) (Stats, error) {
	list, err := s.store.List(ctx)
	if err != nil {
		return Stats{}, err
	}

	var st Stats
	st.Total = len(list)
	for _, rec := range list {
		if rec.SyncState == schema.SyncSynced {
			st.Synced++
		} else {
			st.Unsynced++
		}
		if rec.NotificationHandle != "" {
			st.Scheduled++
		}
	}
	s.emit(EventStats, st)
	return st, nil
}

// NotifyFired forwards a fired notification to event consumers and clears
// the handle on the record that owned it.
func (s *Service) NotifyFired(ctx context.Context, n notify.Notification) {
	err := s.store.Transform(ctx, func(list []schema.Reminder) []schema.Reminder {
		for i := range list {
			if list[i].NotificationHandle == n.Handle {
				list[i].NotificationHandle = ""
				break
			}
		}
		return list
	})
	if err != nil {
		s.logger.Printf("WARNING: failed to clear fired handle %s: %v", n.Handle, err)
	}
	s.emit(EventNotificationFired, n)
}

func (s *Service) emit(kind EventKind, payload interface{}) {
	s.events(Event{Kind: kind, At: s.now().UTC(), Payload: payload})
}
