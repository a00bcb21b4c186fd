// Package migrate imports reminder dumps from the legacy mobile app.
//
// The legacy app kept its reminders as one JSON array under a single
// AsyncStorage key. An exported dump of that array can be replayed into the
// store; already-synced records keep their server id so the next pull does
// not duplicate them.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"

	"remind/internal/schema"
	"remind/internal/store"
)

// legacyRecord is the shape of one entry in a legacy dump.
type legacyRecord struct {
	LocalID        string          `json:"localId"`
	SupabaseID     json.RawMessage `json:"supabaseId,omitempty"`
	Title          string          `json:"title"`
	Notes          string          `json:"notes,omitempty"`
	DatetimeISO    string          `json:"datetime_iso"`
	Timezone       string          `json:"timezone,omitempty"`
	CreatedAt      string          `json:"createdAt,omitempty"`
	NotificationID string          `json:"notificationId,omitempty"`
}

// Report summarizes an import run.
type Report struct {
	Imported int
	Skipped  int
}

// ImportFile reads a legacy JSON dump and appends its records to the store.
// Records the store already holds (same ephemeral id) and records too
// malformed to convert are skipped, each with a logged reason; one bad entry
// never aborts the rest.
func ImportFile(ctx context.Context, st *store.Store, path string, logger *log.Logger) (Report, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[migrate] ", log.LstdFlags)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, fmt.Errorf("failed to read dump: %w", err)
	}

	var legacy []legacyRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return Report{}, fmt.Errorf("dump is not a legacy reminder array: %w", err)
	}

	existing, err := st.List(ctx)
	if err != nil {
		return Report{}, err
	}
	known := make(map[string]bool, len(existing))
	for _, rec := range existing {
		known[rec.EphemeralID] = true
	}

	var report Report
	for i, lr := range legacy {
		rec, err := convert(lr)
		if err != nil {
			logger.Printf("WARNING: skipping dump entry %d: %v", i, err)
			report.Skipped++
			continue
		}
		if known[rec.EphemeralID] {
			logger.Printf("Skipping already-imported reminder %s", rec.EphemeralID)
			report.Skipped++
			continue
		}
		if err := st.Append(ctx, rec); err != nil {
			return report, err
		}
		known[rec.EphemeralID] = true
		report.Imported++
	}

	logger.Printf("Imported %d reminders, skipped %d", report.Imported, report.Skipped)
	return report, nil
}

// convert maps a legacy entry onto a record. The legacy local id (a
// millisecond timestamp string) becomes the ephemeral id; a present server
// id makes the record synced, otherwise it starts local and the next sweep
// pushes it. Notification ids are not carried over: they belonged to the old
// device.
func convert(lr legacyRecord) (*schema.Reminder, error) {
	if lr.Title == "" {
		return nil, fmt.Errorf("entry has no title")
	}

	at, err := time.Parse(time.RFC3339, lr.DatetimeISO)
	if err != nil {
		return nil, fmt.Errorf("invalid datetime_iso %q: %v", lr.DatetimeISO, err)
	}

	created := at
	if lr.CreatedAt != "" {
		if t, err := time.Parse(time.RFC3339, lr.CreatedAt); err == nil {
			created = t
		}
	}

	eph := lr.LocalID
	if eph == "" {
		eph = uuid.NewString()
	}

	zone := lr.Timezone
	if zone == "" {
		zone = "UTC"
	}

	rec := &schema.Reminder{
		EphemeralID: eph,
		Title:       lr.Title,
		Notes:       lr.Notes,
		TriggerAt:   at,
		Timezone:    zone,
		CreatedAt:   created.UTC(),
		SyncState:   schema.SyncLocal,
	}

	if durable := decodeSupabaseID(lr.SupabaseID); durable != "" {
		rec.DurableID = durable
		rec.SyncState = schema.SyncSynced
	}
	return rec, nil
}

// decodeSupabaseID tolerates both the numeric and the string encoding the
// legacy app produced at different times.
func decodeSupabaseID(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatInt(n, 10)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
