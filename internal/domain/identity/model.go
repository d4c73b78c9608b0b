package identity

import (
	"time"

	"github.com/google/uuid"

	"github.com/wellness/wellness/internal/platform/httputil"
)

type User struct {
	ID           uuid.UUID `db:"id" json:"_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	Role         string    `db:"role" json:"role"`
	PasswordHash string    `db:"password_hash" json:"-"`
	ClientID     *int64    `db:"client_id" json:"client_id,omitempty"`
	CompanyID    *int64    `db:"company_id" json:"company_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserPatch carries the fields staff may change on a form user.
type UserPatch struct {
	Name      *string          `json:"name"`
	Email     *string          `json:"email"`
	CompanyID httputil.FlexInt `json:"company_id"`
}

func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && !p.CompanyID.Present
}

// PublicUser is the user shape returned alongside a token.
type PublicUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

func (u *User) Public() PublicUser {
	return PublicUser{ID: u.ID.String(), Name: u.Name, Role: u.Role, Email: u.Email}
}
