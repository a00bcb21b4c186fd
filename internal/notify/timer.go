package notify

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification is a fired trigger as delivered to a Sink.
type Notification struct {
	Handle  string
	Title   string
	Body    string
	FiredAt time.Time
}

// Sink receives fired notifications. Called from the timer goroutine.
type Sink func(Notification)

// TimerCapability is a process-local Capability backed by in-memory timers.
// Triggers do not survive a restart; the daemon re-registers them from the
// store on startup.
type TimerCapability struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	sink   Sink
	logger *log.Logger
}

// NewTimerCapability creates a TimerCapability delivering fired triggers to
// sink. A nil sink discards them.
//
// If logger is nil, a default logger writing to stderr is used.
func NewTimerCapability(sink Sink, logger *log.Logger) *TimerCapability {
	if logger == nil {
		logger = log.New(os.Stderr, "[notify] ", log.LstdFlags)
	}
	if sink == nil {
		sink = func(Notification) {}
	}
	return &TimerCapability{
		timers: make(map[string]*time.Timer),
		sink:   sink,
		logger: logger,
	}
}

// Schedule implements Capability.Schedule.
func (t *TimerCapability) Schedule(title, body string, at time.Time) (string, error) {
	handle := uuid.NewString()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.timers[handle] = time.AfterFunc(time.Until(at), func() {
		t.mu.Lock()
		delete(t.timers, handle)
		t.mu.Unlock()

		t.logger.Printf("Trigger %s fired: %s", handle, title)
		t.sink(Notification{Handle: handle, Title: title, Body: body, FiredAt: time.Now()})
	})
	return handle, nil
}

// Cancel implements Capability.Cancel.
func (t *TimerCapability) Cancel(handle string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if timer, ok := t.timers[handle]; ok {
		timer.Stop()
		delete(t.timers, handle)
	}
	return nil
}

// CancelAll implements Capability.CancelAll.
func (t *TimerCapability) CancelAll() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	for handle, timer := range t.timers {
		timer.Stop()
		delete(t.timers, handle)
	}
	return nil
}

// Active implements Capability.Active.
func (t *TimerCapability) Active() ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	handles := make([]string, 0, len(t.timers))
	for handle := range t.timers {
		handles = append(handles, handle)
	}
	return handles, nil
}

var _ Capability = (*TimerCapability)(nil)
