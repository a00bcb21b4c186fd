package schema

import (
	"fmt"
	"time"
)

// Draft is the structured output of the natural-language parsing
// collaborator. It is not yet persisted; only drafts with Success set
// enter the store.
type Draft struct {
	Title        string `json:"title"`
	Notes        string `json:"notes,omitempty"`
	TriggerAtISO string `json:"trigger_at_iso"`
	Timezone     string `json:"timezone"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

// Validate checks that the draft is acceptable for persistence.
func (d *Draft) Validate() error {
	if !d.Success {
		if d.Error != "" {
			return fmt.Errorf("draft rejected by parser: %s", d.Error)
		}
		return fmt.Errorf("draft rejected by parser")
	}
	if d.Title == "" {
		return fmt.Errorf("draft title is required")
	}
	if _, err := d.TriggerTime(); err != nil {
		return err
	}
	return nil
}

// TriggerTime parses the draft's trigger instant. The timezone label is
// carried for display only; scheduling operates on the absolute instant.
func (d *Draft) TriggerTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, d.TriggerAtISO)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid trigger_at_iso %q: %w", d.TriggerAtISO, err)
	}
	return t, nil
}
