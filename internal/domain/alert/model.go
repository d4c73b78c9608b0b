package alert

import (
	"time"

	"github.com/google/uuid"
)

// Alert is a notification addressed to a staff member by display name.
// Alerts are append-only apart from read_at.
type Alert struct {
	ID        uuid.UUID  `db:"id" json:"-"`
	ForUser   string     `db:"for_user" json:"for_user"`
	Kind      string     `db:"kind" json:"kind"`
	Message   string     `db:"message" json:"message"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	ReadAt    *time.Time `db:"read_at" json:"read_at"`
}
