package schema

import (
	"encoding/json"
	"fmt"
)

// SnapshotVersion is the current version of the remote meta column format.
const SnapshotVersion = 1

// Snapshot is the versioned full-record payload stored in the remote
// mirror's meta column. The narrow columns (title, notes, trigger_at,
// timezone) exist for server-side queries; the snapshot makes reconstruction
// after a pull total and lossless.
type Snapshot struct {
	Version  int      `json:"version"`
	Reminder Reminder `json:"reminder"`
}

// EncodeSnapshot serializes a record for the remote meta column.
func EncodeSnapshot(r *Reminder) (string, error) {
	snap := Snapshot{Version: SnapshotVersion, Reminder: *r}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot for %s: %w", r.EphemeralID, err)
	}
	return string(data), nil
}

// DecodeSnapshot parses a meta column payload back into a record.
// Unknown versions are rejected rather than best-effort merged.
func DecodeSnapshot(data string) (*Reminder, error) {
	var snap Snapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot: %w", err)
	}
	if snap.Version != SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap.Reminder, nil
}
