// Package rollup builds the read models of the dashboard: company summaries,
// the follow-up calendar, the unioned client directory and per-client
// profiles. Joins happen in memory after each source is fetched, and every
// derived flag such as overdue is computed against the clock at read time.
package rollup

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/domain/client"
	"github.com/wellness/wellness/internal/domain/company"
	"github.com/wellness/wellness/internal/domain/followup"
	"github.com/wellness/wellness/internal/domain/identity"
	"github.com/wellness/wellness/internal/domain/questionnaire"
	"github.com/wellness/wellness/internal/platform/auth"
)

type CompanySource interface {
	List(ctx context.Context) ([]*company.Company, error)
	Get(ctx context.Context, id int64) (*company.Company, error)
}

type ClientSource interface {
	Get(ctx context.Context, companyID, clientID int64) (*client.Client, error)
	ListByCompany(ctx context.Context, companyID int64) ([]*client.Client, error)
	ListAll(ctx context.Context) ([]*client.Client, error)
	CountByCompany(ctx context.Context) (map[int64]int, error)
	LatestIntake(ctx context.Context, companyID, clientID int64) (*client.Intake, error)
	ListIntakes(ctx context.Context) ([]*client.Intake, error)
	EditProfileIntake(ctx context.Context, companyID, clientID int64, p client.IntakePatch, actor string) error
}

type FollowupSource interface {
	List(ctx context.Context, f followup.Filter) ([]*followup.Followup, error)
}

type SubmissionSource interface {
	LatestPerUser(ctx context.Context) ([]*questionnaire.Submission, error)
	LatestForUser(ctx context.Context, userID uuid.UUID) (*questionnaire.Submission, error)
	DeleteForUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type UserSource interface {
	Get(ctx context.Context, id uuid.UUID) (*identity.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*identity.User, error)
	Update(ctx context.Context, id uuid.UUID, p identity.UserPatch) (*identity.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type Service struct {
	companies   CompanySource
	clients     ClientSource
	followups   FollowupSource
	submissions SubmissionSource
	users       UserSource
	logger      zerolog.Logger
	now         func() time.Time
}

func NewService(companies CompanySource, clients ClientSource, followups FollowupSource,
	submissions SubmissionSource, users UserSource, logger zerolog.Logger) *Service {
	return &Service{
		companies:   companies,
		clients:     clients,
		followups:   followups,
		submissions: submissions,
		users:       users,
		logger:      logger,
		now:         time.Now,
	}
}

// assignedFilter returns the nutritionist name follow-up queries must match.
// Nutritionists are always scoped to themselves; admins may narrow by name.
func assignedFilter(p auth.Principal, requested string) *string {
	if p.IsNutritionist() {
		name := p.Name
		return &name
	}
	if r := strings.TrimSpace(requested); r != "" {
		return &r
	}
	return nil
}

func (s *Service) companyNames(ctx context.Context) (map[int64]string, []*company.Company, error) {
	list, err := s.companies.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	names := make(map[int64]string, len(list))
	for _, c := range list {
		names[c.CompanyID] = c.Name
	}
	return names, list, nil
}
