package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wellness/wellness/internal/domain/company"
	"github.com/wellness/wellness/internal/domain/followup"
	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/events"
	"github.com/wellness/wellness/internal/platform/httputil"
	"github.com/wellness/wellness/internal/platform/metrics"
)

const (
	// MaxPlanFileBytes caps the decoded size of an attached plan file.
	MaxPlanFileBytes = 5 * 1024 * 1024
	maxPlanFileName  = 200
	defaultPlanType  = "application/octet-stream"
)

// CompanyLookup resolves companies by id or by exact name.
type CompanyLookup interface {
	Get(ctx context.Context, id int64) (*company.Company, error)
	GetByName(ctx context.Context, name string) (*company.Company, error)
}

// FollowupWriter creates follow-ups and removes them when a client goes away.
type FollowupWriter interface {
	Create(ctx context.Context, f *followup.Followup) error
	DeleteForClient(ctx context.Context, clientID int64) (int64, error)
}

type Service struct {
	clients   ClientRepository
	intakes   IntakeRepository
	companies CompanyLookup
	followups FollowupWriter
	events    events.Publisher
	logger    zerolog.Logger
	now       func() time.Time
}

func NewService(clients ClientRepository, intakes IntakeRepository, companies CompanyLookup,
	followups FollowupWriter, pub events.Publisher, logger zerolog.Logger) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		clients:   clients,
		intakes:   intakes,
		companies: companies,
		followups: followups,
		events:    pub,
		logger:    logger,
		now:       time.Now,
	}
}

// PlanFileUpload is the plan document as sent by the intake form.
type PlanFileUpload struct {
	Name   *string            `json:"name"`
	Type   *string            `json:"type"`
	Size   httputil.FlexFloat `json:"size"`
	Base64 *string            `json:"base64"`
}

// IntakeRequest is the onboarding form body.
type IntakeRequest struct {
	CompanyID            httputil.FlexInt `json:"company_id"`
	CompanyName          string           `json:"company_name"`
	ClientID             httputil.FlexInt `json:"client_id"`
	EmpID                httputil.FlexInt `json:"emp_id"`
	Name                 string           `json:"name"`
	ContactInfo          string           `json:"contact_info"`
	Age                  httputil.FlexInt `json:"age"`
	MedicalHistory       string           `json:"medical_history"`
	CurrentCondition     string           `json:"current_condition"`
	AssignedNutritionist string           `json:"assigned_nutritionist"`
	FirstFollowupAt      string           `json:"first_followup_at"`
	Status               string           `json:"status"`
	Requirements         string           `json:"requirements"`
	PresentReadings      string           `json:"present_readings"`
	NextTarget           string           `json:"next_target"`
	GivenPlan            string           `json:"given_plan"`
	GivenPlanFile        *PlanFileUpload  `json:"given_plan_file"`
	Notes                string           `json:"notes"`
}

// IntakeResult identifies the client an intake was filed under.
type IntakeResult struct {
	CompanyID int64 `json:"company_id"`
	ClientID  int64 `json:"client_id"`
}

// CreateIntake onboards a client: it appends an intake row, upserts the
// master record and schedules the first follow-up. The steps are not atomic;
// a failure part way leaves the earlier writes in place.
func (s *Service) CreateIntake(ctx context.Context, req IntakeRequest, actor string) (*IntakeResult, error) {
	res, err := s.createIntake(ctx, req, actor)
	if err != nil {
		if apperr.Is(err, apperr.KindInvalid) || apperr.Is(err, apperr.KindNotFound) {
			metrics.ObserveIntake("rejected")
		}
		return nil, err
	}
	metrics.ObserveIntake("ok")
	return res, nil
}

func (s *Service) createIntake(ctx context.Context, req IntakeRequest, actor string) (*IntakeResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperr.Invalid("name is required")
	}
	status := strings.TrimSpace(req.Status)
	if status == "" {
		status = followup.StatusPending
	}
	if !followup.ValidStatus(status) {
		return nil, apperr.Invalid("status must be pending | done | reached_out")
	}
	firstAt, err := httputil.ParseTime(req.FirstFollowupAt)
	if err != nil {
		return nil, err
	}
	plan, err := s.buildPlanFile(req.GivenPlanFile)
	if err != nil {
		return nil, err
	}
	comp, err := s.resolveCompany(ctx, req)
	if err != nil {
		return nil, err
	}

	clientID := req.ClientID.Value
	if !req.ClientID.Valid || clientID == 0 {
		max, err := s.clients.MaxClientID(ctx)
		if err != nil {
			return nil, apperr.Internal("Failed to allocate client id", err)
		}
		clientID = max + 1
	}
	if actor == "" {
		actor = "system"
	}

	in := &Intake{
		CompanyID:            comp.CompanyID,
		ClientID:             clientID,
		CompanyName:          &comp.Name,
		EmpID:                req.EmpID.Ptr(),
		Name:                 &name,
		ContactInfo:          optString(req.ContactInfo),
		Age:                  req.Age.Ptr(),
		MedicalHistory:       optString(req.MedicalHistory),
		CurrentCondition:     optString(req.CurrentCondition),
		AssignedNutritionist: optString(req.AssignedNutritionist),
		FirstFollowupAt:      firstAt,
		Status:               &status,
		Requirements:         optString(req.Requirements),
		PresentReadings:      optString(req.PresentReadings),
		NextTarget:           optString(req.NextTarget),
		GivenPlan:            optString(req.GivenPlan),
		GivenPlanFile:        plan,
		Notes:                optString(req.Notes),
		CreatedBy:            &actor,
	}
	if err := s.intakes.Create(ctx, in); err != nil {
		metrics.ObserveIntake("intake_failed")
		return nil, apperr.Internal("Failed to create client", err)
	}

	master := &Client{
		CompanyID:            comp.CompanyID,
		ClientID:             clientID,
		Name:                 name,
		EmpID:                req.EmpID.Ptr(),
		Age:                  req.Age.Ptr(),
		ContactInfo:          strPtr(req.ContactInfo),
		MedicalHistory:       strPtr(req.MedicalHistory),
		CurrentCondition:     strPtr(req.CurrentCondition),
		AssignedNutritionist: strPtr(req.AssignedNutritionist),
	}
	if err := s.clients.Upsert(ctx, master); err != nil {
		metrics.ObserveIntake("client_failed")
		return nil, apperr.Internal("Failed to create client", err)
	}

	scheduled := firstAt
	if scheduled == nil {
		now := s.now().UTC()
		scheduled = &now
	}
	fu := &followup.Followup{
		CompanyID:            comp.CompanyID,
		ClientID:             clientID,
		ScheduledAt:          scheduled,
		Status:               status,
		Notes:                strings.TrimSpace(req.Notes),
		AssignedNutritionist: optString(req.AssignedNutritionist),
		Requirements:         optString(req.Requirements),
		PresentReadings:      optString(req.PresentReadings),
		NextTarget:           optString(req.NextTarget),
		GivenPlan:            optString(req.GivenPlan),
	}
	if err := s.followups.Create(ctx, fu); err != nil {
		metrics.ObserveIntake("followup_failed")
		return nil, apperr.Internal("Failed to create client", err)
	}

	s.publish(ctx, in)
	return &IntakeResult{CompanyID: comp.CompanyID, ClientID: clientID}, nil
}

// resolveCompany prefers company_id and falls back to an exact name match.
func (s *Service) resolveCompany(ctx context.Context, req IntakeRequest) (*company.Company, error) {
	if req.CompanyID.Valid && req.CompanyID.Value != 0 {
		c, err := s.companies.Get(ctx, req.CompanyID.Value)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Invalid("Unknown company: %d", req.CompanyID.Value)
		}
		return c, err
	}
	if name := strings.TrimSpace(req.CompanyName); name != "" {
		c, err := s.companies.GetByName(ctx, name)
		if apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Invalid("Unknown company: %s", name)
		}
		return c, err
	}
	return nil, apperr.Invalid("company_id or company_name is required")
}

// buildPlanFile keeps an uploaded plan only when it carries both a name and
// base64 content. Size is taken from the form or estimated from the payload.
func (s *Service) buildPlanFile(up *PlanFileUpload) (*PlanFile, error) {
	if up == nil || up.Name == nil || up.Base64 == nil {
		return nil, nil
	}
	size := int64(len(*up.Base64) * 3 / 4)
	if up.Size.Valid {
		size = int64(up.Size.Value)
	}
	if size > MaxPlanFileBytes {
		return nil, apperr.Invalid("File too large. Max 5 MB.")
	}
	name := *up.Name
	if r := []rune(name); len(r) > maxPlanFileName {
		name = string(r[:maxPlanFileName])
	}
	typ := defaultPlanType
	if up.Type != nil && *up.Type != "" {
		typ = *up.Type
	}
	return &PlanFile{
		Name:       name,
		Type:       typ,
		Size:       size,
		Base64:     *up.Base64,
		UploadedAt: s.now().UTC(),
	}, nil
}

// UpdateIntake edits the newest intake of clientID and mirrors the identity
// fields onto the master record.
func (s *Service) UpdateIntake(ctx context.Context, clientID int64, p IntakePatch, actor string) (*Intake, error) {
	if p.Status != nil && !followup.ValidStatus(*p.Status) {
		return nil, apperr.Invalid("status must be pending | done | reached_out")
	}
	in, err := s.intakes.PatchLatestByClientID(ctx, clientID, p, actorOr(actor))
	if err != nil {
		return nil, err
	}
	if m := p.mirror(); !m.IsEmpty() {
		if _, err := s.clients.Patch(ctx, nil, clientID, m); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return nil, apperr.Internal("Failed to update client", err)
		}
	}
	return in, nil
}

// DeleteIntake removes intake rows only; the master record and follow-ups stay.
func (s *Service) DeleteIntake(ctx context.Context, clientID int64) error {
	n, err := s.intakes.DeleteByClientID(ctx, clientID)
	if err != nil {
		return apperr.Internal("Failed to delete client", err)
	}
	if n == 0 {
		return apperr.NotFound("Intake client not found")
	}
	return nil
}

func (s *Service) UpdateClient(ctx context.Context, clientID int64, p ClientPatch) (*Client, error) {
	if p.IsEmpty() {
		return nil, apperr.Invalid("No updatable fields provided")
	}
	return s.clients.Patch(ctx, nil, clientID, p)
}

// DeleteClient removes the master record and every follow-up of clientID.
// Intake rows and questionnaire data are kept.
func (s *Service) DeleteClient(ctx context.Context, clientID int64) error {
	n, err := s.clients.DeleteByClientID(ctx, clientID)
	if err != nil {
		return apperr.Internal("Failed to delete client", err)
	}
	if n == 0 {
		return apperr.NotFound("Client not found")
	}
	if _, err := s.followups.DeleteForClient(ctx, clientID); err != nil {
		return apperr.Internal("Failed to delete client follow-ups", err)
	}
	return nil
}

// EditProfileIntake upserts the intake for the key and mirrors contact and
// medical fields onto the master record. Name is never changed here.
func (s *Service) EditProfileIntake(ctx context.Context, companyID, clientID int64, p IntakePatch, actor string) error {
	if p.Status != nil && !followup.ValidStatus(*p.Status) {
		return apperr.Invalid("status must be pending | done | reached_out")
	}
	p.Name = nil
	if err := s.intakes.UpsertForKey(ctx, companyID, clientID, p, actorOr(actor)); err != nil {
		return apperr.Internal("Failed to update intake", err)
	}
	if m := p.mirror(); !m.IsEmpty() {
		if _, err := s.clients.Patch(ctx, &companyID, clientID, m); err != nil && !apperr.Is(err, apperr.KindNotFound) {
			return apperr.Internal("Failed to update client", err)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, companyID, clientID int64) (*Client, error) {
	return s.clients.Get(ctx, companyID, clientID)
}

func (s *Service) GetByClientID(ctx context.Context, clientID int64) (*Client, error) {
	return s.clients.GetByClientID(ctx, clientID)
}

func (s *Service) ListByCompany(ctx context.Context, companyID int64) ([]*Client, error) {
	return s.clients.ListByCompany(ctx, companyID)
}

func (s *Service) ListAll(ctx context.Context) ([]*Client, error) {
	return s.clients.ListAll(ctx)
}

func (s *Service) CountByCompany(ctx context.Context) (map[int64]int, error) {
	return s.clients.CountByCompany(ctx)
}

func (s *Service) LatestIntake(ctx context.Context, companyID, clientID int64) (*Intake, error) {
	return s.intakes.Latest(ctx, companyID, clientID)
}

func (s *Service) ListIntakes(ctx context.Context) ([]*Intake, error) {
	return s.intakes.ListAll(ctx)
}

func (s *Service) publish(ctx context.Context, in *Intake) {
	evt := events.Event{
		Type:       events.IntakeCreated,
		Key:        fmt.Sprintf("%d:%d", in.CompanyID, in.ClientID),
		OccurredAt: s.now().UTC(),
		Payload: map[string]interface{}{
			"intake_id":             in.ID,
			"company_id":            in.CompanyID,
			"client_id":             in.ClientID,
			"name":                  in.Name,
			"assigned_nutritionist": in.AssignedNutritionist,
			"has_plan_file":         in.GivenPlanFile != nil,
		},
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		s.logger.Warn().Err(err).Str("event", evt.Type).Msg("failed to publish event")
	}
}

func actorOr(actor string) string {
	if actor == "" {
		return "system"
	}
	return actor
}

// optString trims s and returns nil when nothing is left.
func optString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// strPtr keeps empty strings, matching how master rows store absent values.
func strPtr(s string) *string {
	s = strings.TrimSpace(s)
	return &s
}
