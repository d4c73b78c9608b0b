package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/db"
)

// setList accumulates "col = $n" assignments for partial updates.
type setList struct {
	cols []string
	args []interface{}
}

func (s *setList) add(col string, v interface{}) {
	s.args = append(s.args, v)
	s.cols = append(s.cols, fmt.Sprintf("%s = $%d", col, len(s.args)))
}

func (s *setList) addStr(col string, v *string) {
	if v != nil {
		s.add(col, *v)
	}
}

func (s *setList) arg(v interface{}) string {
	s.args = append(s.args, v)
	return fmt.Sprintf("$%d", len(s.args))
}

func (p ClientPatch) apply(s *setList) {
	s.addStr("name", p.Name)
	s.addStr("contact_info", p.ContactInfo)
	if p.Age.Present {
		s.add("age", p.Age.Ptr())
	}
	s.addStr("medical_history", p.MedicalHistory)
	s.addStr("current_condition", p.CurrentCondition)
	s.addStr("assigned_nutritionist", p.AssignedNutritionist)
	s.addStr("requirements", p.Requirements)
	s.addStr("present_readings", p.PresentReadings)
	s.addStr("next_target", p.NextTarget)
	s.addStr("given_plan", p.GivenPlan)
	s.addStr("notes", p.Notes)
}

func (p IntakePatch) apply(s *setList) {
	s.addStr("name", p.Name)
	s.addStr("contact_info", p.ContactInfo)
	if p.Age.Present {
		s.add("age", p.Age.Ptr())
	}
	s.addStr("medical_history", p.MedicalHistory)
	s.addStr("current_condition", p.CurrentCondition)
	s.addStr("assigned_nutritionist", p.AssignedNutritionist)
	if p.FirstFollowupAt != nil {
		s.add("first_followup_at", *p.FirstFollowupAt)
	}
	s.addStr("status", p.Status)
	s.addStr("requirements", p.Requirements)
	s.addStr("present_readings", p.PresentReadings)
	s.addStr("next_target", p.NextTarget)
	s.addStr("given_plan", p.GivenPlan)
	s.addStr("notes", p.Notes)
}

// -- clients --

type clientRepoPG struct{ db db.Querier }

func NewClientRepoPG(q db.Querier) ClientRepository {
	return &clientRepoPG{db: q}
}

const clientCols = `company_id, client_id, name, emp_id, age, contact_info,
	medical_history, current_condition, assigned_nutritionist, requirements,
	present_readings, next_target, given_plan, notes, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.CompanyID, &c.ClientID, &c.Name, &c.EmpID, &c.Age, &c.ContactInfo,
		&c.MedicalHistory, &c.CurrentCondition, &c.AssignedNutritionist, &c.Requirements,
		&c.PresentReadings, &c.NextTarget, &c.GivenPlan, &c.Notes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clientRepoPG) queryClients(ctx context.Context, query string, args ...interface{}) ([]*Client, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *clientRepoPG) Get(ctx context.Context, companyID, clientID int64) (*Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx,
		`SELECT `+clientCols+` FROM clients WHERE company_id = $1 AND client_id = $2`, companyID, clientID))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Client not found")
	}
	return c, err
}

func (r *clientRepoPG) GetByClientID(ctx context.Context, clientID int64) (*Client, error) {
	c, err := scanClient(r.db.QueryRow(ctx,
		`SELECT `+clientCols+` FROM clients WHERE client_id = $1 ORDER BY company_id LIMIT 1`, clientID))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Client not found")
	}
	return c, err
}

func (r *clientRepoPG) ListByCompany(ctx context.Context, companyID int64) ([]*Client, error) {
	return r.queryClients(ctx,
		`SELECT `+clientCols+` FROM clients WHERE company_id = $1 ORDER BY client_id`, companyID)
}

func (r *clientRepoPG) ListAll(ctx context.Context) ([]*Client, error) {
	return r.queryClients(ctx, `SELECT `+clientCols+` FROM clients ORDER BY name, company_id, client_id`)
}

func (r *clientRepoPG) CountByCompany(ctx context.Context) (map[int64]int, error) {
	rows, err := r.db.Query(ctx, `SELECT company_id, COUNT(*) FROM clients GROUP BY company_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]int)
	for rows.Next() {
		var id int64
		var n int
		if err := rows.Scan(&id, &n); err != nil {
			return nil, err
		}
		out[id] = n
	}
	return out, rows.Err()
}

func (r *clientRepoPG) Upsert(ctx context.Context, c *Client) error {
	return r.db.QueryRow(ctx, `
		INSERT INTO clients (company_id, client_id, name, emp_id, age, contact_info,
			medical_history, current_condition, assigned_nutritionist)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (company_id, client_id) DO UPDATE SET
			name = EXCLUDED.name,
			emp_id = EXCLUDED.emp_id,
			age = EXCLUDED.age,
			contact_info = EXCLUDED.contact_info,
			medical_history = EXCLUDED.medical_history,
			current_condition = EXCLUDED.current_condition,
			assigned_nutritionist = EXCLUDED.assigned_nutritionist,
			updated_at = NOW()
		RETURNING created_at, updated_at`,
		c.CompanyID, c.ClientID, c.Name, c.EmpID, c.Age, c.ContactInfo,
		c.MedicalHistory, c.CurrentCondition, c.AssignedNutritionist,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *clientRepoPG) Patch(ctx context.Context, companyID *int64, clientID int64, p ClientPatch) (*Client, error) {
	var s setList
	p.apply(&s)
	s.cols = append(s.cols, "updated_at = NOW()")
	where := "client_id = " + s.arg(clientID)
	if companyID != nil {
		where += " AND company_id = " + s.arg(*companyID)
	}
	// RETURNING may yield several rows when a client id is shared across
	// companies; QueryRow keeps the first.
	c, err := scanClient(r.db.QueryRow(ctx,
		`UPDATE clients SET `+strings.Join(s.cols, ", ")+` WHERE `+where+` RETURNING `+clientCols,
		s.args...))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Client not found")
	}
	return c, err
}

func (r *clientRepoPG) DeleteByClientID(ctx context.Context, clientID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM clients WHERE client_id = $1`, clientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *clientRepoPG) MaxClientID(ctx context.Context) (int64, error) {
	var max int64
	err := r.db.QueryRow(ctx, `SELECT COALESCE(MAX(client_id), 0) FROM clients`).Scan(&max)
	return max, err
}

// -- intakes --

type intakeRepoPG struct{ db db.Querier }

func NewIntakeRepoPG(q db.Querier) IntakeRepository {
	return &intakeRepoPG{db: q}
}

const intakeCols = `id, company_id, client_id, company_name, emp_id, name, contact_info,
	age, medical_history, current_condition, assigned_nutritionist, first_followup_at,
	status, requirements, present_readings, next_target, given_plan, given_plan_file,
	notes, created_by, updated_by, created_at, updated_at`

func scanIntake(row pgx.Row) (*Intake, error) {
	var in Intake
	err := row.Scan(&in.ID, &in.CompanyID, &in.ClientID, &in.CompanyName, &in.EmpID, &in.Name,
		&in.ContactInfo, &in.Age, &in.MedicalHistory, &in.CurrentCondition,
		&in.AssignedNutritionist, &in.FirstFollowupAt, &in.Status, &in.Requirements,
		&in.PresentReadings, &in.NextTarget, &in.GivenPlan, &in.GivenPlanFile, &in.Notes,
		&in.CreatedBy, &in.UpdatedBy, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &in, nil
}

func (r *intakeRepoPG) Create(ctx context.Context, in *Intake) error {
	in.ID = uuid.New()
	return r.db.QueryRow(ctx, `
		INSERT INTO intakes (id, company_id, client_id, company_name, emp_id, name,
			contact_info, age, medical_history, current_condition, assigned_nutritionist,
			first_followup_at, status, requirements, present_readings, next_target,
			given_plan, given_plan_file, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		RETURNING created_at, updated_at`,
		in.ID, in.CompanyID, in.ClientID, in.CompanyName, in.EmpID, in.Name,
		in.ContactInfo, in.Age, in.MedicalHistory, in.CurrentCondition, in.AssignedNutritionist,
		in.FirstFollowupAt, in.Status, in.Requirements, in.PresentReadings, in.NextTarget,
		in.GivenPlan, in.GivenPlanFile, in.Notes, in.CreatedBy,
	).Scan(&in.CreatedAt, &in.UpdatedAt)
}

func (r *intakeRepoPG) Latest(ctx context.Context, companyID, clientID int64) (*Intake, error) {
	in, err := scanIntake(r.db.QueryRow(ctx, `
		SELECT `+intakeCols+` FROM intakes
		WHERE company_id = $1 AND client_id = $2
		ORDER BY created_at DESC LIMIT 1`, companyID, clientID))
	if db.IsNoRows(err) {
		return nil, nil
	}
	return in, err
}

func (r *intakeRepoPG) ListAll(ctx context.Context) ([]*Intake, error) {
	rows, err := r.db.Query(ctx, `SELECT `+intakeCols+` FROM intakes ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Intake
	for rows.Next() {
		in, err := scanIntake(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, in)
	}
	return items, rows.Err()
}

func (r *intakeRepoPG) PatchLatestByClientID(ctx context.Context, clientID int64, p IntakePatch, actor string) (*Intake, error) {
	var s setList
	p.apply(&s)
	s.add("updated_by", actor)
	s.cols = append(s.cols, "updated_at = NOW()")
	in, err := scanIntake(r.db.QueryRow(ctx, `
		UPDATE intakes SET `+strings.Join(s.cols, ", ")+`
		WHERE id = (SELECT id FROM intakes WHERE client_id = `+s.arg(clientID)+`
			ORDER BY created_at DESC LIMIT 1)
		RETURNING `+intakeCols, s.args...))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Intake client not found")
	}
	return in, err
}

func (r *intakeRepoPG) UpsertForKey(ctx context.Context, companyID, clientID int64, p IntakePatch, actor string) error {
	var s setList
	p.apply(&s)
	s.add("updated_by", actor)
	s.cols = append(s.cols, "updated_at = NOW()")
	tag, err := r.db.Exec(ctx, `
		UPDATE intakes SET `+strings.Join(s.cols, ", ")+`
		WHERE id = (SELECT id FROM intakes
			WHERE company_id = `+s.arg(companyID)+` AND client_id = `+s.arg(clientID)+`
			ORDER BY created_at DESC LIMIT 1)`, s.args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	in := &Intake{
		CompanyID:            companyID,
		ClientID:             clientID,
		Name:                 p.Name,
		ContactInfo:          p.ContactInfo,
		Age:                  p.Age.Ptr(),
		MedicalHistory:       p.MedicalHistory,
		CurrentCondition:     p.CurrentCondition,
		AssignedNutritionist: p.AssignedNutritionist,
		FirstFollowupAt:      p.FirstFollowupAt,
		Status:               p.Status,
		Requirements:         p.Requirements,
		PresentReadings:      p.PresentReadings,
		NextTarget:           p.NextTarget,
		GivenPlan:            p.GivenPlan,
		Notes:                p.Notes,
		CreatedBy:            &actor,
	}
	return r.Create(ctx, in)
}

func (r *intakeRepoPG) DeleteByClientID(ctx context.Context, clientID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM intakes WHERE client_id = $1`, clientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
