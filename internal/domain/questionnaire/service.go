package questionnaire

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/events"
	"github.com/wellness/wellness/internal/platform/metrics"
)

type Service struct {
	repo   Repository
	events events.Publisher
	logger zerolog.Logger
}

func NewService(repo Repository, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{repo: repo, events: pub, logger: logger}
}

func parseUserID(userID string) (uuid.UUID, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, apperr.Invalid("userId missing")
	}
	return id, nil
}

// Submit scores answers and stores them as a new submission for userID.
func (s *Service) Submit(ctx context.Context, userID string, a Answers) (*Submission, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	sub := &Submission{UserID: uid, Answers: a, Computed: Score(a)}
	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, apperr.Internal("Failed to save submission", err)
	}

	metrics.ObserveSubmission(sub.Computed.RiskCategory)
	evt := events.Event{
		Type:       events.SubmissionCreated,
		Key:        uid.String(),
		OccurredAt: time.Now().UTC(),
		Payload:    sub,
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("event", evt.Type).Msg("failed to publish event")
	}
	return sub, nil
}

// Latest returns the caller's newest submission, or nil.
func (s *Service) Latest(ctx context.Context, userID string) (*Submission, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.LatestByUser(ctx, uid)
	if err != nil {
		return nil, apperr.Internal("Failed to load submission", err)
	}
	return sub, nil
}

func (s *Service) LatestForUser(ctx context.Context, userID uuid.UUID) (*Submission, error) {
	return s.repo.LatestByUser(ctx, userID)
}

func (s *Service) LatestPerUser(ctx context.Context) ([]*Submission, error) {
	return s.repo.LatestPerUser(ctx)
}

func (s *Service) DeleteForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.repo.DeleteByUser(ctx, userID)
}
