package questionnaire

import (
	"time"

	"github.com/google/uuid"
)

// Submission is one immutable questionnaire entry. A user's current state is
// their most recent submission.
type Submission struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	Answers   Answers   `db:"answers" json:"answers"`
	Computed  Result    `db:"computed" json:"computed"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
