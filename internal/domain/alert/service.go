package alert

import (
	"context"
	"strings"
	"time"

	"github.com/wellness/wellness/internal/platform/apperr"
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Notify appends an alert for forUser.
func (s *Service) Notify(ctx context.Context, forUser, kind, message string) error {
	forUser = strings.TrimSpace(forUser)
	if forUser == "" {
		return nil
	}
	return s.repo.Create(ctx, &Alert{ForUser: forUser, Kind: kind, Message: message})
}

func (s *Service) List(ctx context.Context, forUser string, since *time.Time, limit int) ([]*Alert, error) {
	items, err := s.repo.ListForUser(ctx, forUser, since, limit)
	if err != nil {
		return nil, apperr.Internal("Failed to load alerts", err)
	}
	if items == nil {
		items = []*Alert{}
	}
	return items, nil
}

// MarkRead acknowledges every unread alert of forUser. Alerts that were
// already read keep their original read_at.
func (s *Service) MarkRead(ctx context.Context, forUser string) (int64, error) {
	n, err := s.repo.MarkRead(ctx, forUser, s.now().UTC())
	if err != nil {
		return 0, apperr.Internal("Failed to mark alerts read", err)
	}
	return n, nil
}
