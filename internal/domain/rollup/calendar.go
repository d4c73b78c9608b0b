package rollup

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/wellness/wellness/internal/domain/followup"
	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/auth"
	"github.com/wellness/wellness/internal/platform/httputil"
)

type CalendarEvent struct {
	ID                   uuid.UUID `json:"id"`
	Date                 string    `json:"date"`
	Status               string    `json:"status"`
	Overdue              bool      `json:"overdue"`
	ClientID             int64     `json:"client_id"`
	ClientName           string    `json:"client_name"`
	CompanyID            int64     `json:"company_id"`
	CompanyName          string    `json:"company_name"`
	AssignedNutritionist *string   `json:"assigned_nutritionist"`
}

// Calendar lists follow-ups whose effective time falls between start 00:00
// and end 23:59:59.999 UTC, both given as YYYY-MM-DD.
func (s *Service) Calendar(ctx context.Context, p auth.Principal, start, end, nutritionist string) ([]CalendarEvent, error) {
	if strings.TrimSpace(start) == "" || strings.TrimSpace(end) == "" {
		return nil, apperr.Invalid("start and end are required (YYYY-MM-DD)")
	}
	from, err := httputil.ParseDay(start)
	if err != nil {
		return nil, err
	}
	day, err := httputil.ParseDay(end)
	if err != nil {
		return nil, err
	}
	to := httputil.EndOfDay(day)

	items, err := s.followups.List(ctx, followup.Filter{
		Nutritionist: assignedFilter(p, nutritionist),
		From:         &from,
		To:           &to,
	})
	if err != nil {
		return nil, apperr.Internal("Failed to load calendar", err)
	}
	companyNames, _, err := s.companyNames(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to load calendar", err)
	}

	clientNames, err := s.clientNames(ctx, len(items))
	if err != nil {
		return nil, apperr.Internal("Failed to load calendar", err)
	}

	sortByEffective(items)
	now := s.now()
	events := make([]CalendarEvent, 0, len(items))
	for _, f := range items {
		at := f.EffectiveScheduledAt()
		if at == nil {
			continue
		}
		name := clientNames[clientKey{f.CompanyID, f.ClientID}]
		events = append(events, CalendarEvent{
			ID:                   f.ID,
			Date:                 at.UTC().Format("2006-01-02"),
			Status:               f.Status,
			Overdue:              f.IsOverdue(now),
			ClientID:             f.ClientID,
			ClientName:           name,
			CompanyID:            f.CompanyID,
			CompanyName:          companyNames[f.CompanyID],
			AssignedNutritionist: f.AssignedNutritionist,
		})
	}
	return events, nil
}

// clientNames maps every master client pair to its name. Pairs without a
// master record are absent and read as "".
func (s *Service) clientNames(ctx context.Context, n int) (map[clientKey]string, error) {
	names := make(map[clientKey]string)
	if n == 0 {
		return names, nil
	}
	all, err := s.clients.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		names[clientKey{c.CompanyID, c.ClientID}] = c.Name
	}
	return names, nil
}

// sortByEffective orders follow-ups by effective time ascending, undated
// first, keeping the incoming order for ties.
func sortByEffective(items []*followup.Followup) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].EffectiveScheduledAt(), items[j].EffectiveScheduledAt()
		if a == nil || b == nil {
			return a == nil && b != nil
		}
		return a.Before(*b)
	})
}
