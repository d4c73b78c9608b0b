package company

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/db"
)

type companyRepoPG struct{ db db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &companyRepoPG{db: q}
}

const companyCols = `company_id, name, created_at`

func scanCompany(row pgx.Row) (*Company, error) {
	var c Company
	if err := row.Scan(&c.CompanyID, &c.Name, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *companyRepoPG) List(ctx context.Context) ([]*Company, error) {
	rows, err := r.db.Query(ctx, `SELECT `+companyCols+` FROM companies ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *companyRepoPG) GetByID(ctx context.Context, id int64) (*Company, error) {
	c, err := scanCompany(r.db.QueryRow(ctx, `SELECT `+companyCols+` FROM companies WHERE company_id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Company not found")
	}
	return c, err
}

func (r *companyRepoPG) GetByName(ctx context.Context, name string) (*Company, error) {
	c, err := scanCompany(r.db.QueryRow(ctx, `SELECT `+companyCols+` FROM companies WHERE name = $1`, name))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("Unknown company: %s", name)
	}
	return c, err
}

func (r *companyRepoPG) Create(ctx context.Context, c *Company) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO companies (company_id, name) VALUES ($1, $2)
		ON CONFLICT (company_id) DO NOTHING`, c.CompanyID, c.Name)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return false, apperr.Conflict("company name %q already exists", c.Name)
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
