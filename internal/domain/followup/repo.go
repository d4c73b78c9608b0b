package followup

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, f *Followup) error
	GetByID(ctx context.Context, id uuid.UUID) (*Followup, error)
	// UpdateStatus overwrites status and completed_at and returns the row.
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) (*Followup, error)
	// List returns matching rows ordered by effective scheduled time
	// ascending, unscheduled rows first, then by creation order.
	List(ctx context.Context, f Filter) ([]*Followup, error)
	DeleteByClient(ctx context.Context, clientID int64) (int64, error)
}
