package remote

import (
	"context"

	"remind/internal/schema"
)

// Offline is a Mirror for installations with no remote configured. Every
// operation reports ErrUnavailable, which the rest of the system already
// treats as a degraded-but-working condition: records simply stay local.
type Offline struct{}

func (Offline) Insert(ctx context.Context, rec *schema.Reminder) (string, error) {
	return "", ErrUnavailable
}

func (Offline) FindEphemeral(ctx context.Context, ephemeralID string) (string, bool, error) {
	return "", false, ErrUnavailable
}

func (Offline) Update(ctx context.Context, durableID string, rec *schema.Reminder) error {
	return ErrUnavailable
}

func (Offline) Delete(ctx context.Context, durableID string) error {
	return ErrUnavailable
}

func (Offline) List(ctx context.Context) ([]schema.Reminder, error) {
	return nil, ErrUnavailable
}

func (Offline) Ping(ctx context.Context) error {
	return ErrUnavailable
}

var _ Mirror = Offline{}
