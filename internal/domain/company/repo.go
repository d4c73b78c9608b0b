package company

import "context"

type Repository interface {
	List(ctx context.Context) ([]*Company, error)
	GetByID(ctx context.Context, id int64) (*Company, error)
	GetByName(ctx context.Context, name string) (*Company, error)
	// Create inserts c, leaving an existing row with the same id untouched.
	// It reports whether a row was written.
	Create(ctx context.Context, c *Company) (bool, error)
}
