package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	gosync "sync"
	"testing"
	"time"

	"remind/internal/notify"
	"remind/internal/remote"
	"remind/internal/schema"
	"remind/internal/store"
	syncpkg "remind/internal/sync"
)

type fakeMirror struct {
	mu      gosync.Mutex
	rows    map[string]schema.Reminder
	nextID  int64
	failing bool
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{rows: make(map[string]schema.Reminder)}
}

func (f *fakeMirror) unavailable() error {
	return fmt.Errorf("%w: fake mirror offline", remote.ErrUnavailable)
}

func (f *fakeMirror) Insert(ctx context.Context, rec *schema.Reminder) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return "", f.unavailable()
	}
	f.nextID++
	id := fmt.Sprintf("%d", f.nextID)
	stored := *rec
	stored.DurableID = id
	f.rows[id] = stored
	return id, nil
}

func (f *fakeMirror) FindEphemeral(ctx context.Context, ephemeralID string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return "", false, f.unavailable()
	}
	for id, rec := range f.rows {
		if rec.EphemeralID == ephemeralID {
			return id, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeMirror) Update(ctx context.Context, durableID string, rec *schema.Reminder) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return f.unavailable()
	}
	stored := *rec
	stored.DurableID = durableID
	f.rows[durableID] = stored
	return nil
}

func (f *fakeMirror) Delete(ctx context.Context, durableID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return f.unavailable()
	}
	delete(f.rows, durableID)
	return nil
}

func (f *fakeMirror) List(ctx context.Context) ([]schema.Reminder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failing {
		return nil, f.unavailable()
	}
	var out []schema.Reminder
	for id, rec := range f.rows {
		rec.DurableID = id
		rec.SyncState = schema.SyncSynced
		rec.NotificationHandle = ""
		out = append(out, rec)
	}
	return out, nil
}

func (f *fakeMirror) Ping(ctx context.Context) error {
	if f.failing {
		return f.unavailable()
	}
	return nil
}

func (f *fakeMirror) rowCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

var _ remote.Mirror = (*fakeMirror)(nil)

type fakeCapability struct {
	mu     gosync.Mutex
	next   int
	active map[string]time.Time
}

func newFakeCapability() *fakeCapability {
	return &fakeCapability{active: make(map[string]time.Time)}
}

func (f *fakeCapability) Schedule(title, body string, at time.Time) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	handle := fmt.Sprintf("h-%d", f.next)
	f.active[handle] = at
	return handle, nil
}

func (f *fakeCapability) Cancel(handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.active, handle)
	return nil
}

func (f *fakeCapability) CancelAll() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.active = make(map[string]time.Time)
	return nil
}

func (f *fakeCapability) Active() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for h := range f.active {
		out = append(out, h)
	}
	return out, nil
}

func (f *fakeCapability) activeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

var _ notify.Capability = (*fakeCapability)(nil)

type fixture struct {
	svc    *Service
	store  *store.Store
	mirror *fakeMirror
	cap    *fakeCapability
	events []Event
}

func setup(t *testing.T) *fixture {
	t.Helper()

	logger := log.New(os.Stderr, "[test] ", 0)
	st, err := store.Open(filepath.Join(t.TempDir(), "remind.db"), logger)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	f := &fixture{store: st, mirror: newFakeMirror(), cap: newFakeCapability()}
	rec := syncpkg.New(st, f.mirror, logger)
	co := notify.NewCoordinator(f.cap, logger)
	f.svc = New(st, rec, co, func(e Event) { f.events = append(f.events, e) }, logger)
	return f
}

func draftIn(offset time.Duration) *schema.Draft {
	return &schema.Draft{
		Title:        "Call mom",
		Notes:        "about the weekend",
		TriggerAtISO: time.Now().Add(offset).UTC().Format(time.RFC3339),
		Timezone:     "UTC",
		Success:      true,
	}
}

func TestCreateReminder_OnlineFlow(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.CreateReminder(ctx, draftIn(2*time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	if !res.Synced || res.SyncErr != nil || res.ScheduleErr != nil {
		t.Errorf("expected a fully clean result, got %+v", res)
	}

	got, err := f.svc.FindReminder(ctx, res.Reminder.EphemeralID)
	if err != nil {
		t.Fatalf("FindReminder failed: %v", err)
	}
	if got.SyncState != schema.SyncSynced || got.DurableID == "" {
		t.Errorf("expected a synced record, got %+v", got)
	}
	if got.NotificationHandle == "" {
		t.Error("expected a persisted notification handle")
	}
	if got.Title != "Call mom" || got.Notes != "about the weekend" {
		t.Errorf("content mismatch: %+v", got)
	}
	if f.mirror.rowCount() != 1 {
		t.Errorf("expected 1 remote row, got %d", f.mirror.rowCount())
	}
}

func TestCreateReminder_PersistsLocallyWhenOffline(t *testing.T) {
	f := setup(t)
	f.mirror.failing = true
	ctx := context.Background()

	res, err := f.svc.CreateReminder(ctx, draftIn(time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder must succeed locally while offline: %v", err)
	}
	if res.Synced || !errors.Is(res.SyncErr, remote.ErrUnavailable) {
		t.Errorf("expected a degraded-sync result, got %+v", res)
	}

	list, err := f.svc.ListReminders(ctx)
	if err != nil {
		t.Fatalf("ListReminders failed: %v", err)
	}
	if len(list) != 1 || list[0].EphemeralID == "" {
		t.Fatalf("offline create did not persist: %+v", list)
	}
	if list[0].SyncState != schema.SyncLocal {
		t.Errorf("expected a local record, got %q", list[0].SyncState)
	}
	if list[0].NotificationHandle == "" {
		t.Error("offline create must still schedule a trigger")
	}
}

func TestCreateReminder_UnschedulableStillPersists(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.CreateReminder(ctx, draftIn(-25*time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	if !errors.Is(res.ScheduleErr, notify.ErrUnschedulable) {
		t.Fatalf("expected ErrUnschedulable, got %v", res.ScheduleErr)
	}

	got, err := f.svc.FindReminder(ctx, res.Reminder.EphemeralID)
	if err != nil {
		t.Fatalf("record must persist despite the scheduling failure: %v", err)
	}
	if got.NotificationHandle != "" {
		t.Errorf("expected no handle, got %q", got.NotificationHandle)
	}
}

func TestCreateReminder_RejectsInvalidDraft(t *testing.T) {
	f := setup(t)

	bad := &schema.Draft{Success: false, Error: "no time expression"}
	if _, err := f.svc.CreateReminder(context.Background(), bad); err == nil {
		t.Fatal("expected rejection of a failed draft")
	}

	list, err := f.svc.ListReminders(context.Background())
	if err != nil {
		t.Fatalf("ListReminders failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("rejected draft must not persist, got %+v", list)
	}
}

func TestEditReminder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.CreateReminder(ctx, draftIn(time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	title := "Call dad"
	got, err := f.svc.EditReminder(ctx, schema.Ephemeral(res.Reminder.EphemeralID), &Patch{Title: &title})
	if err != nil {
		t.Fatalf("EditReminder failed: %v", err)
	}
	if got.Title != "Call dad" {
		t.Errorf("Title = %q, want %q", got.Title, "Call dad")
	}
	// The mirror is healthy, so the dirty edit went straight back to synced.
	if got.SyncState != schema.SyncSynced {
		t.Errorf("SyncState = %q, want %q", got.SyncState, schema.SyncSynced)
	}

	f.mirror.mu.Lock()
	row := f.mirror.rows[got.DurableID]
	f.mirror.mu.Unlock()
	if row.Title != "Call dad" {
		t.Errorf("remote row not updated: %+v", row)
	}
}

func TestEditReminder_OfflineGoesDirty(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.CreateReminder(ctx, draftIn(time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	f.mirror.failing = true
	title := "Call dad"
	got, err := f.svc.EditReminder(ctx, schema.Ephemeral(res.Reminder.EphemeralID), &Patch{Title: &title})
	if err != nil {
		t.Fatalf("offline edit must succeed locally: %v", err)
	}
	if got.SyncState != schema.SyncDirty {
		t.Errorf("SyncState = %q, want %q", got.SyncState, schema.SyncDirty)
	}

	// Back online, the sweep pushes the pending edit.
	f.mirror.failing = false
	report, err := f.svc.Resync(ctx, false)
	if err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if report.Synced != 1 {
		t.Errorf("expected 1 newly synced record, got %d", report.Synced)
	}
}

func TestEditReminder_AtMostOneActiveTrigger(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.CreateReminder(ctx, draftIn(time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	id := schema.Ephemeral(res.Reminder.EphemeralID)

	for _, offset := range []time.Duration{2 * time.Hour, 3 * time.Hour, 4 * time.Hour} {
		at := time.Now().Add(offset).UTC()
		if _, err := f.svc.EditReminder(ctx, id, &Patch{TriggerAt: &at}); err != nil {
			t.Fatalf("EditReminder failed: %v", err)
		}
		if n := f.cap.activeCount(); n != 1 {
			t.Fatalf("expected exactly 1 active trigger, got %d", n)
		}
	}
}

func TestDeleteReminder_CascadesAndIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.CreateReminder(ctx, draftIn(time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	id := schema.Ephemeral(res.Reminder.EphemeralID)

	if err := f.svc.DeleteReminder(ctx, id); err != nil {
		t.Fatalf("DeleteReminder failed: %v", err)
	}

	if n := f.cap.activeCount(); n != 0 {
		t.Errorf("trigger not cancelled, %d active", n)
	}
	if f.mirror.rowCount() != 0 {
		t.Errorf("remote row not removed, %d left", f.mirror.rowCount())
	}
	list, err := f.svc.ListReminders(ctx)
	if err != nil {
		t.Fatalf("ListReminders failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("local record not removed: %+v", list)
	}

	// Deleting the same identity again is a no-op, not an error.
	if err := f.svc.DeleteReminder(ctx, id); err != nil {
		t.Fatalf("second DeleteReminder failed: %v", err)
	}
}

func TestResync_PullCancelsDroppedTriggers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.CreateReminder(ctx, draftIn(time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	// The row disappears remotely, e.g. deleted from another device.
	if err := f.mirror.Delete(ctx, res.Reminder.DurableID); err != nil {
		t.Fatalf("seed delete failed: %v", err)
	}

	report, err := f.svc.Resync(ctx, true)
	if err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if report.Dropped != 1 {
		t.Errorf("expected 1 dropped record, got %d", report.Dropped)
	}
	if n := f.cap.activeCount(); n != 0 {
		t.Errorf("dropped record's trigger still active, %d total", n)
	}
}

func TestResync_PullReschedulesMovedTriggers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.CreateReminder(ctx, draftIn(time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	oldHandle := res.Reminder.NotificationHandle

	// Another device moves the trigger instant.
	movedTo := time.Now().Add(5 * time.Hour).UTC().Truncate(time.Second)
	remoteCopy := *res.Reminder
	remoteCopy.TriggerAt = movedTo
	if err := f.mirror.Update(ctx, res.Reminder.DurableID, &remoteCopy); err != nil {
		t.Fatalf("seed update failed: %v", err)
	}

	report, err := f.svc.Resync(ctx, true)
	if err != nil {
		t.Fatalf("Resync failed: %v", err)
	}
	if report.Retimed != 1 {
		t.Errorf("expected 1 retimed record, got %d", report.Retimed)
	}

	got, err := f.svc.FindReminder(ctx, res.Reminder.EphemeralID)
	if err != nil {
		t.Fatalf("FindReminder failed: %v", err)
	}
	if !got.TriggerAt.Equal(movedTo) {
		t.Errorf("remote instant not adopted: %+v", got)
	}
	if got.NotificationHandle == "" || got.NotificationHandle == oldHandle {
		t.Errorf("trigger still registered at the old instant: %q", got.NotificationHandle)
	}
	if n := f.cap.activeCount(); n != 1 {
		t.Fatalf("expected exactly 1 active trigger, got %d", n)
	}

	f.cap.mu.Lock()
	at := f.cap.active[got.NotificationHandle]
	f.cap.mu.Unlock()
	if !at.Equal(movedTo) {
		t.Errorf("trigger registered at %v, want %v", at, movedTo)
	}
}

func TestRestoreTriggers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.svc.CreateReminder(ctx, draftIn(time.Hour)); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	stale, err := f.svc.CreateReminder(ctx, draftIn(-25*time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	// Simulate a restart: the previous process's timers are gone.
	if err := f.cap.CancelAll(); err != nil {
		t.Fatalf("CancelAll failed: %v", err)
	}

	restored, err := f.svc.RestoreTriggers(ctx)
	if err != nil {
		t.Fatalf("RestoreTriggers failed: %v", err)
	}
	if restored != 1 {
		t.Errorf("expected 1 restored trigger, got %d", restored)
	}
	if n := f.cap.activeCount(); n != 1 {
		t.Errorf("expected 1 active trigger, got %d", n)
	}

	got, err := f.svc.FindReminder(ctx, stale.Reminder.EphemeralID)
	if err != nil {
		t.Fatalf("FindReminder failed: %v", err)
	}
	if got.NotificationHandle != "" {
		t.Errorf("unschedulable record kept a handle: %q", got.NotificationHandle)
	}
}

func TestRestoreTriggers_PastDueStaysUnregistered(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	// One hour past due: creation grants the one-time grace shift.
	res, err := f.svc.CreateReminder(ctx, draftIn(-time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	if res.Reminder.NotificationHandle == "" {
		t.Fatal("expected the grace shift to register a trigger at creation")
	}

	// Simulate a restart: the previous process's timers are gone, the
	// persisted handle is stale.
	if err := f.cap.CancelAll(); err != nil {
		t.Fatalf("CancelAll failed: %v", err)
	}

	restored, err := f.svc.RestoreTriggers(ctx)
	if err != nil {
		t.Fatalf("RestoreTriggers failed: %v", err)
	}
	if restored != 0 {
		t.Errorf("past-due reminder must not be re-registered, restored %d", restored)
	}
	if n := f.cap.activeCount(); n != 0 {
		t.Errorf("expected no active triggers, got %d", n)
	}

	got, err := f.svc.FindReminder(ctx, res.Reminder.EphemeralID)
	if err != nil {
		t.Fatalf("FindReminder failed: %v", err)
	}
	if got.NotificationHandle != "" {
		t.Errorf("stale handle not cleared: %q", got.NotificationHandle)
	}
}

func TestCollectStats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	if _, err := f.svc.CreateReminder(ctx, draftIn(time.Hour)); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	f.mirror.failing = true
	if _, err := f.svc.CreateReminder(ctx, draftIn(2*time.Hour)); err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}

	st, err := f.svc.CollectStats(ctx)
	if err != nil {
		t.Fatalf("CollectStats failed: %v", err)
	}
	want := Stats{Total: 2, Synced: 1, Unsynced: 1, Scheduled: 2}
	if st != want {
		t.Errorf("Stats = %+v, want %+v", st, want)
	}
}

func TestNotifyFired_ClearsHandle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res, err := f.svc.CreateReminder(ctx, draftIn(time.Hour))
	if err != nil {
		t.Fatalf("CreateReminder failed: %v", err)
	}
	handle := res.Reminder.NotificationHandle

	f.svc.NotifyFired(ctx, notify.Notification{Handle: handle, Title: res.Reminder.Title, FiredAt: time.Now()})

	got, err := f.svc.FindReminder(ctx, res.Reminder.EphemeralID)
	if err != nil {
		t.Fatalf("FindReminder failed: %v", err)
	}
	if got.NotificationHandle != "" {
		t.Errorf("fired handle not cleared: %q", got.NotificationHandle)
	}

	last := f.events[len(f.events)-1]
	if last.Kind != EventNotificationFired {
		t.Errorf("last event = %q, want %q", last.Kind, EventNotificationFired)
	}
}
