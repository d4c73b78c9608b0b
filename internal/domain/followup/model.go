package followup

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusPending    = "pending"
	StatusDone       = "done"
	StatusReachedOut = "reached_out"
)

// OverdueWindow is how long a pending follow-up may sit past its scheduled
// time before it is reported as overdue.
const OverdueWindow = 48 * time.Hour

var validStatuses = map[string]bool{
	StatusPending: true, StatusDone: true, StatusReachedOut: true,
}

// ValidStatus reports whether s is one of the follow-up statuses.
func ValidStatus(s string) bool { return validStatuses[s] }

// Followup is one scheduled check-in on a client's timeline. ScheduledAt is
// authoritative; FollowupDate is only read for rows written before it existed.
type Followup struct {
	ID                   uuid.UUID  `db:"id" json:"id"`
	CompanyID            int64      `db:"company_id" json:"company_id"`
	ClientID             int64      `db:"client_id" json:"client_id"`
	ScheduledAt          *time.Time `db:"scheduled_at" json:"scheduled_at,omitempty"`
	FollowupDate         *time.Time `db:"followup_date" json:"followup_date,omitempty"`
	Status               string     `db:"status" json:"status"`
	CompletedAt          *time.Time `db:"completed_at" json:"completed_at"`
	Notes                string     `db:"notes" json:"notes"`
	AssignedNutritionist *string    `db:"assigned_nutritionist" json:"assigned_nutritionist,omitempty"`
	Requirements         *string    `db:"requirements" json:"requirements,omitempty"`
	PresentReadings      *string    `db:"present_readings" json:"present_readings,omitempty"`
	NextTarget           *string    `db:"next_target" json:"next_target,omitempty"`
	GivenPlan            *string    `db:"given_plan" json:"given_plan,omitempty"`
	WeightKg             *float64   `db:"weight_kg" json:"weight_kg,omitempty"`
	BMI                  *float64   `db:"bmi" json:"bmi,omitempty"`
	BP                   *string    `db:"bp" json:"bp,omitempty"`
	Sugar                *string    `db:"sugar" json:"sugar,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveScheduledAt returns ScheduledAt, or FollowupDate when it is unset.
func (f *Followup) EffectiveScheduledAt() *time.Time {
	if f.ScheduledAt != nil {
		return f.ScheduledAt
	}
	return f.FollowupDate
}

// IsOverdue reports whether the follow-up is pending and its effective time
// is more than OverdueWindow before now. An unscheduled follow-up is never
// overdue.
func (f *Followup) IsOverdue(now time.Time) bool {
	at := f.EffectiveScheduledAt()
	return f.Status == StatusPending && at != nil && at.Before(now.Add(-OverdueWindow))
}

// Nutritionist returns the assigned nutritionist name, or "".
func (f *Followup) Nutritionist() string {
	if f.AssignedNutritionist == nil {
		return ""
	}
	return *f.AssignedNutritionist
}

// Filter narrows List. Nil fields do not filter. From and To bound the
// effective scheduled time inclusively; rows without one never match a range.
type Filter struct {
	CompanyID    *int64
	ClientID     *int64
	Nutritionist *string
	From         *time.Time
	To           *time.Time
}
