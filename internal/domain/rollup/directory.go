package rollup

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wellness/wellness/internal/domain/company"
	"github.com/wellness/wellness/internal/domain/followup"
	"github.com/wellness/wellness/internal/domain/identity"
	"github.com/wellness/wellness/internal/domain/questionnaire"
	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/auth"
)

const (
	SourceClients    = "clients"
	SourceIntakes    = "newclients"
	SourceSubmission = "formdata"
)

// DirectoryItem is the common projection of master clients, intake records
// and questionnaire users. ClientID is a number, or the user id string for
// questionnaire users without a linked client.
type DirectoryItem struct {
	Source               string      `json:"source"`
	ClientID             interface{} `json:"client_id"`
	CompanyID            *int64      `json:"company_id"`
	Name                 *string     `json:"name"`
	Contact              *string     `json:"contact"`
	Age                  *int64      `json:"age"`
	MedicalHistory       *string     `json:"medical_history"`
	CurrentCondition     *string     `json:"current_condition"`
	AssignedNutritionist *string     `json:"assigned_nutritionist"`
	Score                *int        `json:"score"`
	Risk                 *string     `json:"risk"`
	LastSubmission       *time.Time  `json:"last_submission"`
}

var (
	honorific  = regexp.MustCompile(`^(?:ms|mrs|mr|dr)(?:\.\s*|\s+)`)
	whitespace = regexp.MustCompile(`\s+`)
)

// NormalizeNameCore lowercases a name, strips one leading honorific and
// collapses whitespace, so "Dr.  Asha Rao" and "asha rao" compare equal.
func NormalizeNameCore(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = honorific.ReplaceAllString(s, "")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// nameMatcher reports whether an assigned nutritionist name refers to the
// viewer. A viewer whose name has no core matches nobody.
type nameMatcher string

func (core nameMatcher) matches(name *string) bool {
	return core != "" && name != nil && NormalizeNameCore(*name) == string(core)
}

// visibility is what a nutritionist may see in the directory: every client
// whose follow-ups name them, and the companies those clients belong to.
type visibility struct {
	core      nameMatcher
	pairs     map[clientKey]bool
	companies map[int64]bool
}

func (v *visibility) allows(companyID, clientID int64, assigned *string) bool {
	return v.core.matches(assigned) || v.pairs[clientKey{companyID, clientID}]
}

func (s *Service) nutritionistVisibility(ctx context.Context, p auth.Principal) (*visibility, error) {
	v := &visibility{
		core:      nameMatcher(NormalizeNameCore(p.Name)),
		pairs:     make(map[clientKey]bool),
		companies: make(map[int64]bool),
	}
	if v.core == "" {
		return v, nil
	}
	items, err := s.followups.List(ctx, followup.Filter{})
	if err != nil {
		return nil, err
	}
	for _, f := range items {
		if v.core.matches(f.AssignedNutritionist) {
			v.pairs[clientKey{f.CompanyID, f.ClientID}] = true
			v.companies[f.CompanyID] = true
		}
	}
	return v, nil
}

// Directory returns master clients, then intake records, then the latest
// questionnaire submission of each user. Nutritionists only see what their
// follow-ups reach; with no assigned company the questionnaire segment is
// skipped without being queried.
func (s *Service) Directory(ctx context.Context, p auth.Principal) ([]DirectoryItem, error) {
	var vis *visibility
	if p.IsNutritionist() {
		v, err := s.nutritionistVisibility(ctx, p)
		if err != nil {
			return nil, apperr.Internal("Failed to build directory", err)
		}
		vis = v
	}

	items := []DirectoryItem{}

	clients, err := s.clients.ListAll(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to build directory", err)
	}
	for _, c := range clients {
		if vis != nil && !vis.allows(c.CompanyID, c.ClientID, c.AssignedNutritionist) {
			continue
		}
		companyID, name := c.CompanyID, c.Name
		items = append(items, DirectoryItem{
			Source:               SourceClients,
			ClientID:             c.ClientID,
			CompanyID:            &companyID,
			Name:                 &name,
			Contact:              c.ContactInfo,
			Age:                  c.Age,
			MedicalHistory:       c.MedicalHistory,
			CurrentCondition:     c.CurrentCondition,
			AssignedNutritionist: c.AssignedNutritionist,
		})
	}

	intakes, err := s.clients.ListIntakes(ctx)
	if err != nil {
		return nil, apperr.Internal("Failed to build directory", err)
	}
	for _, in := range intakes {
		if vis != nil && !vis.allows(in.CompanyID, in.ClientID, in.AssignedNutritionist) {
			continue
		}
		companyID := in.CompanyID
		items = append(items, DirectoryItem{
			Source:               SourceIntakes,
			ClientID:             in.ClientID,
			CompanyID:            &companyID,
			Name:                 in.Name,
			Contact:              in.ContactInfo,
			Age:                  in.Age,
			MedicalHistory:       in.MedicalHistory,
			CurrentCondition:     in.CurrentCondition,
			AssignedNutritionist: in.AssignedNutritionist,
			Risk:                 in.Status,
		})
	}

	if vis != nil && len(vis.companies) == 0 {
		return items, nil
	}
	forms, err := s.submissionItems(ctx, vis)
	if err != nil {
		return nil, apperr.Internal("Failed to build directory", err)
	}
	return append(items, forms...), nil
}

func (s *Service) submissionItems(ctx context.Context, vis *visibility) ([]DirectoryItem, error) {
	subs, err := s.submissions.LatestPerUser(ctx)
	if err != nil || len(subs) == 0 {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.UserID)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*identity.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	var out []DirectoryItem
	for _, sub := range subs {
		u, ok := byID[sub.UserID]
		if !ok {
			continue
		}
		if vis != nil && (u.CompanyID == nil || !vis.companies[*u.CompanyID]) {
			continue
		}
		var clientID interface{} = u.ID.String()
		if u.ClientID != nil {
			clientID = *u.ClientID
		}
		name, email := u.Name, u.Email
		score, risk, created := sub.Computed.TotalScore, sub.Computed.RiskCategory, sub.CreatedAt
		out = append(out, DirectoryItem{
			Source:         SourceSubmission,
			ClientID:       clientID,
			CompanyID:      u.CompanyID,
			Name:           &name,
			Contact:        &email,
			Score:          &score,
			Risk:           &risk,
			LastSubmission: &created,
		})
	}
	return out, nil
}

// FormUser is a questionnaire user with their company and latest submission.
type FormUser struct {
	OK      bool                      `json:"ok"`
	User    *identity.User            `json:"user"`
	Company *company.Company          `json:"company"`
	Form    *questionnaire.Submission `json:"form"`
}

func parseUserID(id string) (uuid.UUID, error) {
	uid, err := uuid.Parse(strings.TrimSpace(id))
	if err != nil {
		return uuid.Nil, apperr.NotFound("User not found")
	}
	return uid, nil
}

func (s *Service) FormUser(ctx context.Context, userID string) (*FormUser, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	form, err := s.submissions.LatestForUser(ctx, uid)
	if err != nil {
		return nil, apperr.Internal("Failed to load form profile", err)
	}
	out := &FormUser{OK: true, User: u, Form: form}
	if u.CompanyID != nil {
		c, err := s.companies.Get(ctx, *u.CompanyID)
		if err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Internal("Failed to load form profile", err)
		}
		out.Company = c
	}
	return out, nil
}

func (s *Service) UpdateFormUser(ctx context.Context, userID string, p identity.UserPatch) (*identity.User, error) {
	uid, err := parseUserID(userID)
	if err != nil {
		return nil, err
	}
	return s.users.Update(ctx, uid, p)
}

// DeleteFormUser removes the user's submissions and then the user.
func (s *Service) DeleteFormUser(ctx context.Context, userID string) error {
	uid, err := parseUserID(userID)
	if err != nil {
		return err
	}
	if _, err := s.users.Get(ctx, uid); err != nil {
		return err
	}
	if _, err := s.submissions.DeleteForUser(ctx, uid); err != nil {
		return apperr.Internal("Failed to delete form user", err)
	}
	return s.users.Delete(ctx, uid)
}
