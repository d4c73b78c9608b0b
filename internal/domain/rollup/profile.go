package rollup

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/wellness/wellness/internal/domain/client"
	"github.com/wellness/wellness/internal/domain/company"
	"github.com/wellness/wellness/internal/domain/followup"
	"github.com/wellness/wellness/internal/platform/apperr"
)

// TimelineEntry is a follow-up as shown on a profile, with its effective
// time folded into ScheduledAt.
type TimelineEntry struct {
	ID                   uuid.UUID  `json:"id"`
	Status               string     `json:"status"`
	Overdue              bool       `json:"overdue"`
	AssignedNutritionist *string    `json:"assigned_nutritionist"`
	Requirements         *string    `json:"requirements"`
	PresentReadings      *string    `json:"present_readings"`
	NextTarget           *string    `json:"next_target"`
	GivenPlan            *string    `json:"given_plan"`
	Notes                string     `json:"notes"`
	ScheduledAt          *time.Time `json:"scheduled_at"`
	CompletedAt          *time.Time `json:"completed_at"`
	CreatedAt            time.Time  `json:"created_at"`
}

type Profile struct {
	Company   *company.Company `json:"company"`
	Client    *client.Client   `json:"client"`
	NewForm   *client.Intake   `json:"newForm"`
	Followups []TimelineEntry  `json:"followups"`
	Counts    map[string]int   `json:"counts"`
	Upcoming  *TimelineEntry   `json:"upcoming"`
	LastDone  *TimelineEntry   `json:"lastDone"`
}

func toTimeline(f *followup.Followup, now time.Time) TimelineEntry {
	return TimelineEntry{
		ID:                   f.ID,
		Status:               f.Status,
		Overdue:              f.IsOverdue(now),
		AssignedNutritionist: f.AssignedNutritionist,
		Requirements:         f.Requirements,
		PresentReadings:      f.PresentReadings,
		NextTarget:           f.NextTarget,
		GivenPlan:            f.GivenPlan,
		Notes:                f.Notes,
		ScheduledAt:          f.EffectiveScheduledAt(),
		CompletedAt:          f.CompletedAt,
		CreatedAt:            f.CreatedAt,
	}
}

// Profile assembles one client's company, master record, latest intake and
// follow-up timeline, newest first, with status counts, the soonest future
// follow-up and the most recent completed one.
func (s *Service) Profile(ctx context.Context, companyID, clientID int64) (*Profile, error) {
	c, err := s.clients.Get(ctx, companyID, clientID)
	if err != nil {
		return nil, err
	}
	comp, err := s.companies.Get(ctx, companyID)
	if err != nil && !apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.Internal("Failed to load profile", err)
	}
	intake, err := s.clients.LatestIntake(ctx, companyID, clientID)
	if err != nil {
		return nil, apperr.Internal("Failed to load profile", err)
	}
	items, err := s.followups.List(ctx, followup.Filter{CompanyID: &companyID, ClientID: &clientID})
	if err != nil {
		return nil, apperr.Internal("Failed to load profile", err)
	}

	now := s.now()
	timeline := make([]TimelineEntry, 0, len(items))
	for _, f := range items {
		timeline = append(timeline, toTimeline(f, now))
	}
	sort.SliceStable(timeline, func(i, j int) bool {
		a, b := timeline[i].ScheduledAt, timeline[j].ScheduledAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a == nil && b != nil:
			return false
		case a != nil && b == nil:
			return true
		}
		return timeline[i].CreatedAt.After(timeline[j].CreatedAt)
	})

	p := &Profile{
		Company:   comp,
		Client:    c,
		NewForm:   intake,
		Followups: timeline,
		Counts:    make(map[string]int),
	}
	for i := range timeline {
		e := &timeline[i]
		p.Counts[e.Status]++
		if e.ScheduledAt == nil {
			continue
		}
		if !e.ScheduledAt.Before(now) && (p.Upcoming == nil || e.ScheduledAt.Before(*p.Upcoming.ScheduledAt)) {
			p.Upcoming = e
		}
		if e.Status == followup.StatusDone && (p.LastDone == nil || e.ScheduledAt.After(*p.LastDone.ScheduledAt)) {
			p.LastDone = e
		}
	}
	return p, nil
}

// EditIntake applies a profile intake edit and returns the refreshed profile.
func (s *Service) EditIntake(ctx context.Context, companyID, clientID int64, patch client.IntakePatch, actor string) (*Profile, error) {
	if err := s.clients.EditProfileIntake(ctx, companyID, clientID, patch, actor); err != nil {
		return nil, err
	}
	return s.Profile(ctx, companyID, clientID)
}
