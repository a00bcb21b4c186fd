package remote

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/tursodatabase/go-libsql"

	"remind/internal/schema"
)

// LibSQL implements Mirror against a libSQL database, either a remote
// Turso instance (libsql://...) or a local file (file:...) for development
// and tests.
type LibSQL struct {
	conn   *sql.DB
	logger *log.Logger
}

// Open connects to the mirror database.
//
// authToken is appended to the DSN when set; pass "" for local files.
// If logger is nil, a default logger writing to stderr is used.
func Open(url, authToken string, logger *log.Logger) (*LibSQL, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[remote] ", log.LstdFlags)
	}

	dsn := url
	if authToken != "" {
		sep := "?"
		if strings.Contains(url, "?") {
			sep = "&"
		}
		dsn = url + sep + "authToken=" + authToken
	}

	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open connection: %v", ErrUnavailable, err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetConnMaxIdleTime(time.Minute)

	return &LibSQL{conn: conn, logger: logger}, nil
}

// Close closes the connection.
func (m *LibSQL) Close() error {
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}

// InitSchema creates the reminders table if it does not exist. Idempotent.
func (m *LibSQL) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS reminders (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL,
		notes      TEXT NOT NULL DEFAULT '',
		trigger_at TEXT NOT NULL,
		timezone   TEXT NOT NULL DEFAULT 'UTC',
		meta       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_reminders_trigger ON reminders(trigger_at);
	`
	if _, err := m.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%w: failed to initialize schema: %v", ErrUnavailable, err)
	}
	return nil
}

// Insert implements Mirror.Insert.
func (m *LibSQL) Insert(ctx context.Context, rec *schema.Reminder) (string, error) {
	meta, err := schema.EncodeSnapshot(rec)
	if err != nil {
		return "", err
	}

	query := `
	INSERT INTO reminders (title, notes, trigger_at, timezone, meta)
	VALUES (?, ?, ?, ?, ?)
	RETURNING id`

	var id int64
	err = m.conn.QueryRowContext(ctx, query,
		rec.Title,
		rec.Notes,
		rec.TriggerAt.UTC().Format(time.RFC3339),
		rec.Timezone,
		meta,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("%w: insert failed: %v", ErrUnavailable, err)
	}

	return strconv.FormatInt(id, 10), nil
}

// FindEphemeral implements Mirror.FindEphemeral.
func (m *LibSQL) FindEphemeral(ctx context.Context, ephemeralID string) (string, bool, error) {
	query := `
	SELECT id FROM reminders
	WHERE json_extract(meta, '$.reminder.ephemeral_id') = ?
	LIMIT 1`

	var id int64
	err := m.conn.QueryRowContext(ctx, query, ephemeralID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: ephemeral lookup failed: %v", ErrUnavailable, err)
	}
	return strconv.FormatInt(id, 10), true, nil
}

// Update implements Mirror.Update.
func (m *LibSQL) Update(ctx context.Context, durableID string, rec *schema.Reminder) error {
	id, err := parseDurableID(durableID)
	if err != nil {
		return err
	}
	meta, err := schema.EncodeSnapshot(rec)
	if err != nil {
		return err
	}

	query := `
	UPDATE reminders
	SET title = ?, notes = ?, trigger_at = ?, timezone = ?, meta = ?
	WHERE id = ?`

	res, err := m.conn.ExecContext(ctx, query,
		rec.Title,
		rec.Notes,
		rec.TriggerAt.UTC().Format(time.RFC3339),
		rec.Timezone,
		meta,
		id,
	)
	if err != nil {
		return fmt.Errorf("%w: update of %s failed: %v", ErrUnavailable, durableID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		m.logger.Printf("WARNING: update of %s matched no remote row", durableID)
	}
	return nil
}

// Delete implements Mirror.Delete.
func (m *LibSQL) Delete(ctx context.Context, durableID string) error {
	id, err := parseDurableID(durableID)
	if err != nil {
		return err
	}
	if _, err := m.conn.ExecContext(ctx, "DELETE FROM reminders WHERE id = ?", id); err != nil {
		return fmt.Errorf("%w: delete of %s failed: %v", ErrUnavailable, durableID, err)
	}
	return nil
}

// List implements Mirror.List.
func (m *LibSQL) List(ctx context.Context) ([]schema.Reminder, error) {
	query := `
	SELECT id, title, notes, trigger_at, timezone, meta
	FROM reminders
	ORDER BY trigger_at ASC`

	rows, err := m.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: list failed: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []schema.Reminder
	for rows.Next() {
		var (
			id                            int64
			title, notes, triggerAt, zone string
			meta                          string
		)
		if err := rows.Scan(&id, &title, &notes, &triggerAt, &zone, &meta); err != nil {
			return nil, fmt.Errorf("%w: scan failed: %v", ErrUnavailable, err)
		}
		out = append(out, rowToRecord(id, title, notes, triggerAt, zone, meta, m.logger))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list failed: %v", ErrUnavailable, err)
	}
	return out, nil
}

// Ping implements Mirror.Ping.
func (m *LibSQL) Ping(ctx context.Context) error {
	if err := m.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func parseDurableID(durableID string) (int64, error) {
	id, err := strconv.ParseInt(durableID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid durable id %q: %w", durableID, err)
	}
	return id, nil
}

// rowToRecord reconstructs a record from a remote row. The snapshot is
// authoritative for local-only fields; the narrow columns win for the
// queryable ones so server-side edits are not shadowed by a stale snapshot.
func rowToRecord(id int64, title, notes, triggerAt, zone, meta string, logger *log.Logger) schema.Reminder {
	durable := strconv.FormatInt(id, 10)

	rec, err := schema.DecodeSnapshot(meta)
	if err != nil {
		logger.Printf("WARNING: row %s has undecodable meta, rebuilding from columns: %v", durable, err)
		rec = &schema.Reminder{EphemeralID: uuid.NewString(), CreatedAt: time.Now().UTC()}
	}

	rec.DurableID = durable
	rec.Title = title
	rec.Notes = notes
	rec.Timezone = zone
	if t, err := time.Parse(time.RFC3339, triggerAt); err == nil {
		rec.TriggerAt = t
	}
	rec.SyncState = schema.SyncSynced
	// Notification handles are device-local; never import one from remote.
	rec.NotificationHandle = ""
	return *rec
}

var _ Mirror = (*LibSQL)(nil)
