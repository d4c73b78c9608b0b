package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	// GetByEmail returns nil, nil when no user has the address.
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*User, error)
	Update(ctx context.Context, id uuid.UUID, p UserPatch) (*User, error)
	Delete(ctx context.Context, id uuid.UUID) (int64, error)
}
