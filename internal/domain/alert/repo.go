package alert

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, a *Alert) error
	// ListForUser returns alerts newest first, optionally only those created
	// at or after since.
	ListForUser(ctx context.Context, forUser string, since *time.Time, limit int) ([]*Alert, error)
	// MarkRead stamps read_at on the user's unread alerts only.
	MarkRead(ctx context.Context, forUser string, at time.Time) (int64, error)
}
