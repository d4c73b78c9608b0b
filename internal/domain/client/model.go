package client

import (
	"time"

	"github.com/google/uuid"

	"github.com/wellness/wellness/internal/platform/httputil"
)

// Client is the master record for an employee, keyed by (company_id,
// client_id). Listings, summaries and profiles read from it.
type Client struct {
	CompanyID            int64     `db:"company_id" json:"company_id"`
	ClientID             int64     `db:"client_id" json:"client_id"`
	Name                 string    `db:"name" json:"name"`
	EmpID                *int64    `db:"emp_id" json:"emp_id"`
	Age                  *int64    `db:"age" json:"age"`
	ContactInfo          *string   `db:"contact_info" json:"contact_info"`
	MedicalHistory       *string   `db:"medical_history" json:"medical_history"`
	CurrentCondition     *string   `db:"current_condition" json:"current_condition"`
	AssignedNutritionist *string   `db:"assigned_nutritionist" json:"assigned_nutritionist"`
	Requirements         *string   `db:"requirements" json:"requirements,omitempty"`
	PresentReadings      *string   `db:"present_readings" json:"present_readings,omitempty"`
	NextTarget           *string   `db:"next_target" json:"next_target,omitempty"`
	GivenPlan            *string   `db:"given_plan" json:"given_plan,omitempty"`
	Notes                *string   `db:"notes" json:"notes,omitempty"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// PlanFile is a diet plan document attached at intake, kept inline.
type PlanFile struct {
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	Size       int64     `json:"size"`
	Base64     string    `json:"base64"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Intake is an onboarding submission. It shares its key with the master
// record but is stored and deleted independently; rows are append-only.
type Intake struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	CompanyID            int64      `db:"company_id" json:"company_id"`
	ClientID             int64      `db:"client_id" json:"client_id"`
	CompanyName          *string    `db:"company_name" json:"company_name,omitempty"`
	EmpID                *int64     `db:"emp_id" json:"emp_id,omitempty"`
	Name                 *string    `db:"name" json:"name,omitempty"`
	ContactInfo          *string    `db:"contact_info" json:"contact_info,omitempty"`
	Age                  *int64     `db:"age" json:"age,omitempty"`
	MedicalHistory       *string    `db:"medical_history" json:"medical_history,omitempty"`
	CurrentCondition     *string    `db:"current_condition" json:"current_condition,omitempty"`
	AssignedNutritionist *string    `db:"assigned_nutritionist" json:"assigned_nutritionist,omitempty"`
	FirstFollowupAt      *time.Time `db:"first_followup_at" json:"first_followup_at,omitempty"`
	Status               *string    `db:"status" json:"status,omitempty"`
	Requirements         *string    `db:"requirements" json:"requirements,omitempty"`
	PresentReadings      *string    `db:"present_readings" json:"present_readings,omitempty"`
	NextTarget           *string    `db:"next_target" json:"next_target,omitempty"`
	GivenPlan            *string    `db:"given_plan" json:"given_plan,omitempty"`
	GivenPlanFile        *PlanFile  `db:"given_plan_file" json:"given_plan_file"`
	Notes                *string    `db:"notes" json:"notes,omitempty"`
	CreatedBy            *string    `db:"created_by" json:"created_by,omitempty"`
	UpdatedBy            *string    `db:"updated_by" json:"updated_by,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// ClientPatch lists the editable master fields. Nil fields are left alone;
// Age is written whenever the key was present.
type ClientPatch struct {
	Name                 *string          `json:"name"`
	ContactInfo          *string          `json:"contact_info"`
	Age                  httputil.FlexInt `json:"age"`
	MedicalHistory       *string          `json:"medical_history"`
	CurrentCondition     *string          `json:"current_condition"`
	AssignedNutritionist *string          `json:"assigned_nutritionist"`
	Requirements         *string          `json:"requirements"`
	PresentReadings      *string          `json:"present_readings"`
	NextTarget           *string          `json:"next_target"`
	GivenPlan            *string          `json:"given_plan"`
	Notes                *string          `json:"notes"`
}

func (p ClientPatch) IsEmpty() bool {
	return p.Name == nil && p.ContactInfo == nil && !p.Age.Present &&
		p.MedicalHistory == nil && p.CurrentCondition == nil &&
		p.AssignedNutritionist == nil && p.Requirements == nil &&
		p.PresentReadings == nil && p.NextTarget == nil &&
		p.GivenPlan == nil && p.Notes == nil
}

// IntakePatch lists the editable intake fields.
type IntakePatch struct {
	Name                 *string
	ContactInfo          *string
	Age                  httputil.FlexInt
	MedicalHistory       *string
	CurrentCondition     *string
	AssignedNutritionist *string
	FirstFollowupAt      *time.Time
	Status               *string
	Requirements         *string
	PresentReadings      *string
	NextTarget           *string
	GivenPlan            *string
	Notes                *string
}

// mirror returns the subset of p that is copied onto the master record.
func (p IntakePatch) mirror() ClientPatch {
	return ClientPatch{
		Name:                 p.Name,
		ContactInfo:          p.ContactInfo,
		Age:                  p.Age,
		MedicalHistory:       p.MedicalHistory,
		CurrentCondition:     p.CurrentCondition,
		AssignedNutritionist: p.AssignedNutritionist,
	}
}
