package followup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/db"
)

type followupRepoPG struct{ db db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &followupRepoPG{db: q}
}

const fuCols = `id, company_id, client_id, scheduled_at, followup_date, status,
	completed_at, COALESCE(notes, ''), assigned_nutritionist, requirements,
	present_readings, next_target, given_plan, weight_kg, bmi, bp, sugar,
	created_at, updated_at`

func scanFollowup(row pgx.Row) (*Followup, error) {
	var f Followup
	err := row.Scan(&f.ID, &f.CompanyID, &f.ClientID, &f.ScheduledAt, &f.FollowupDate,
		&f.Status, &f.CompletedAt, &f.Notes, &f.AssignedNutritionist, &f.Requirements,
		&f.PresentReadings, &f.NextTarget, &f.GivenPlan, &f.WeightKg, &f.BMI, &f.BP,
		&f.Sugar, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func (r *followupRepoPG) Create(ctx context.Context, f *Followup) error {
	f.ID = uuid.New()
	return r.db.QueryRow(ctx, `
		INSERT INTO followups (id, company_id, client_id, scheduled_at, followup_date,
			status, completed_at, notes, assigned_nutritionist, requirements,
			present_readings, next_target, given_plan, weight_kg, bmi, bp, sugar)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`,
		f.ID, f.CompanyID, f.ClientID, f.ScheduledAt, f.FollowupDate,
		f.Status, f.CompletedAt, f.Notes, f.AssignedNutritionist, f.Requirements,
		f.PresentReadings, f.NextTarget, f.GivenPlan, f.WeightKg, f.BMI, f.BP, f.Sugar,
	).Scan(&f.CreatedAt, &f.UpdatedAt)
}

func (r *followupRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Followup, error) {
	f, err := scanFollowup(r.db.QueryRow(ctx, `SELECT `+fuCols+` FROM followups WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Follow-up not found")
	}
	return f, err
}

func (r *followupRepoPG) UpdateStatus(ctx context.Context, id uuid.UUID, status string, completedAt *time.Time) (*Followup, error) {
	f, err := scanFollowup(r.db.QueryRow(ctx, `
		UPDATE followups SET status = $2, completed_at = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING `+fuCols, id, status, completedAt))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Follow-up not found")
	}
	return f, err
}

func (r *followupRepoPG) List(ctx context.Context, f Filter) ([]*Followup, error) {
	var where []string
	var args []interface{}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CompanyID != nil {
		add("company_id = $%d", *f.CompanyID)
	}
	if f.ClientID != nil {
		add("client_id = $%d", *f.ClientID)
	}
	if f.Nutritionist != nil {
		add("assigned_nutritionist = $%d", *f.Nutritionist)
	}
	if f.From != nil {
		add("COALESCE(scheduled_at, followup_date) >= $%d", *f.From)
	}
	if f.To != nil {
		add("COALESCE(scheduled_at, followup_date) <= $%d", *f.To)
	}

	query := `SELECT ` + fuCols + ` FROM followups`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY COALESCE(scheduled_at, followup_date) ASC NULLS FIRST, created_at ASC, id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Followup
	for rows.Next() {
		fu, err := scanFollowup(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, fu)
	}
	return items, rows.Err()
}

func (r *followupRepoPG) DeleteByClient(ctx context.Context, clientID int64) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM followups WHERE client_id = $1`, clientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
