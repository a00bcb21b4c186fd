package service

import "time"

// EventKind labels a service event for dashboard consumers.
type EventKind string

const (
	EventReminderUpdate    EventKind = "reminder_update"
	EventSyncComplete      EventKind = "sync_complete"
	EventNotificationFired EventKind = "notification_fired"
	EventStats             EventKind = "stats"
)

// Event is a broadcastable snapshot of something the service did.
type Event struct {
	Kind    EventKind   `json:"kind"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventSink receives service events. Sinks must not block.
type EventSink func(Event)

// SyncReport is the payload of an EventSyncComplete event.
type SyncReport struct {
	Synced  int `json:"synced"`
	Dropped int `json:"dropped"`
	Retimed int `json:"retimed"`
}

// Stats is the payload of an EventStats event.
type Stats struct {
	Total     int `json:"total"`
	Synced    int `json:"synced"`
	Unsynced  int `json:"unsynced"`
	Scheduled int `json:"scheduled"`
}
