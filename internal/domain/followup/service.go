package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/events"
	"github.com/wellness/wellness/internal/platform/metrics"
)

// Notifier raises an alert for a staff member, addressed by display name.
type Notifier interface {
	Notify(ctx context.Context, forUser, kind, message string) error
}

const AlertKindAssigned = "followup_assigned"

type Service struct {
	repo     Repository
	notifier Notifier
	events   events.Publisher
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(repo Repository, notifier Notifier, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{repo: repo, notifier: notifier, events: pub, logger: logger, now: time.Now}
}

// Create stores a new follow-up. Status defaults to pending; completed_at is
// stamped only when the initial status is done. When both dates are given the
// legacy followup_date is dropped. Ids are taken as given; presence and
// numeric checks happen where the request is decoded.
func (s *Service) Create(ctx context.Context, f *Followup) error {
	if f.Status == "" {
		f.Status = StatusPending
	}
	if !ValidStatus(f.Status) {
		return apperr.Invalid("status must be pending | done | reached_out")
	}
	if f.ScheduledAt != nil {
		f.FollowupDate = nil
	}
	f.CompletedAt = nil
	if f.Status == StatusDone {
		now := s.now().UTC()
		f.CompletedAt = &now
	}
	if err := s.repo.Create(ctx, f); err != nil {
		return apperr.Internal("Failed to create follow-up", err)
	}

	metrics.ObserveFollowupCreated()
	s.publish(ctx, events.FollowupCreated, f)
	if name := strings.TrimSpace(f.Nutritionist()); name != "" && s.notifier != nil {
		msg := fmt.Sprintf("Follow-up scheduled for client %d (company %d)", f.ClientID, f.CompanyID)
		if at := f.EffectiveScheduledAt(); at != nil {
			msg += " on " + at.UTC().Format("2006-01-02")
		}
		if err := s.notifier.Notify(ctx, name, AlertKindAssigned, msg); err != nil {
			s.logger.Warn().Err(err).Str("followup_id", f.ID.String()).Msg("failed to create follow-up alert")
		}
	}
	return nil
}

// UpdateStatus overwrites the status of follow-up id. Any status may replace
// any other; completed_at is set to now for done and cleared otherwise.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) (*Followup, error) {
	if !ValidStatus(status) {
		return nil, apperr.Invalid("Invalid status")
	}
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, apperr.NotFound("Follow-up not found")
	}

	var completedAt *time.Time
	if status == StatusDone {
		now := s.now().UTC()
		completedAt = &now
	}
	f, err := s.repo.UpdateStatus(ctx, uid, status, completedAt)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, err
		}
		return nil, apperr.Internal("Failed to update follow-up status", err)
	}

	metrics.ObserveFollowupStatus(status)
	s.publish(ctx, events.FollowupStatusChanged, f)
	return f, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Followup, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Followup, error) {
	return s.repo.List(ctx, f)
}

// DeleteForClient removes every follow-up of clientID across companies.
func (s *Service) DeleteForClient(ctx context.Context, clientID int64) (int64, error) {
	return s.repo.DeleteByClient(ctx, clientID)
}

func (s *Service) publish(ctx context.Context, typ string, f *Followup) {
	evt := events.Event{
		Type:       typ,
		Key:        fmt.Sprintf("%d:%d", f.CompanyID, f.ClientID),
		OccurredAt: s.now().UTC(),
		Payload:    f,
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("event", typ).Msg("failed to publish event")
	}
}
