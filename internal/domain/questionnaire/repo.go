package questionnaire

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Submission) error
	// LatestByUser returns nil, nil when the user has never submitted.
	LatestByUser(ctx context.Context, userID uuid.UUID) (*Submission, error)
	// LatestPerUser returns each user's newest submission, newest first.
	LatestPerUser(ctx context.Context) ([]*Submission, error)
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
