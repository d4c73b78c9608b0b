package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wellness/wellness/internal/platform/apperr"
	"github.com/wellness/wellness/internal/platform/db"
)

type userRepoPG struct{ db db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &userRepoPG{db: q}
}

const userCols = `id, name, email, role, password_hash, client_id, company_id, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash,
		&u.ClientID, &u.CompanyID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, role, password_hash, client_id, company_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.Role, u.PasswordHash, u.ClientID, u.CompanyID,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperr.Conflict("email already exists")
	}
	return err
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE id = $1`, id))
	if db.IsNoRows(err) {
		return nil, apperr.NotFound("User not found")
	}
	return u, err
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(ctx, `SELECT `+userCols+` FROM users WHERE email = $1`, email))
	if db.IsNoRows(err) {
		return nil, nil
	}
	return u, err
}

func (r *userRepoPG) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `SELECT `+userCols+` FROM users WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, u)
	}
	return items, rows.Err()
}

func (r *userRepoPG) Update(ctx context.Context, id uuid.UUID, p UserPatch) (*User, error) {
	var sets []string
	var args []interface{}
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Email != nil {
		add("email", *p.Email)
	}
	if p.CompanyID.Present {
		add("company_id", p.CompanyID.Ptr())
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	u, err := scanUser(r.db.QueryRow(ctx,
		fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`, strings.Join(sets, ", "), len(args), userCols),
		args...))
	switch {
	case db.IsNoRows(err):
		return nil, apperr.NotFound("User not found")
	case db.IsUniqueViolation(err):
		return nil, apperr.Conflict("email already exists")
	}
	return u, err
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
