// Package remote provides the client for the authoritative remote reminder
// table.
//
// The mirror is the source of truth when reachable; the local store takes
// over when it is not. Every failure here is classified as ErrUnavailable so
// callers can tell "the network is down" apart from local persistence
// problems and keep the local-first half of an operation alive.
package remote

import (
	"context"
	"errors"

	"remind/internal/schema"
)

// ErrUnavailable is returned for any network, auth, or server failure.
// It is non-fatal by contract: the record stays local/dirty and a later
// resync sweep retries it.
var ErrUnavailable = errors.New("remote mirror unavailable")

// Mirror is the remote authoritative reminder table.
//
// Durable ids are assigned by the mirror on insert and treated as opaque
// strings everywhere else.
type Mirror interface {
	// Insert adds the record remotely and returns its durable id.
	Insert(ctx context.Context, rec *schema.Reminder) (string, error)

	// FindEphemeral looks up a durable id by the record's ephemeral id.
	// It makes Insert retries idempotent: a push whose confirmation was
	// lost adopts the existing row instead of creating a duplicate.
	FindEphemeral(ctx context.Context, ephemeralID string) (string, bool, error)

	// Update overwrites the remote row addressed by durableID.
	Update(ctx context.Context, durableID string, rec *schema.Reminder) error

	// Delete removes the remote row. Deleting an absent row is not an
	// error (idempotent).
	Delete(ctx context.Context, durableID string) error

	// List fetches every remote record, reconstructed from the versioned
	// meta snapshot. Returned records carry their durable id and are
	// marked synced.
	List(ctx context.Context) ([]schema.Reminder, error)

	// Ping reports whether the mirror is reachable.
	Ping(ctx context.Context) error
}
