package client

import "context"

type ClientRepository interface {
	Get(ctx context.Context, companyID, clientID int64) (*Client, error)
	// GetByClientID returns the first master record with clientID.
	GetByClientID(ctx context.Context, clientID int64) (*Client, error)
	ListByCompany(ctx context.Context, companyID int64) ([]*Client, error)
	ListAll(ctx context.Context) ([]*Client, error)
	CountByCompany(ctx context.Context) (map[int64]int, error)
	// Upsert writes the intake-owned fields of c, creating the row if needed.
	Upsert(ctx context.Context, c *Client) error
	// Patch applies p to every row with clientID, restricted to companyID
	// when it is non-nil, and returns the first updated row.
	Patch(ctx context.Context, companyID *int64, clientID int64, p ClientPatch) (*Client, error)
	DeleteByClientID(ctx context.Context, clientID int64) (int64, error)
	MaxClientID(ctx context.Context) (int64, error)
}

type IntakeRepository interface {
	Create(ctx context.Context, in *Intake) error
	// Latest returns the newest intake row for the key, or nil.
	Latest(ctx context.Context, companyID, clientID int64) (*Intake, error)
	ListAll(ctx context.Context) ([]*Intake, error)
	// PatchLatestByClientID updates the newest intake row with clientID.
	PatchLatestByClientID(ctx context.Context, clientID int64, p IntakePatch, actor string) (*Intake, error)
	// UpsertForKey updates the newest intake row for the key or inserts one.
	UpsertForKey(ctx context.Context, companyID, clientID int64, p IntakePatch, actor string) error
	DeleteByClientID(ctx context.Context, clientID int64) (int64, error)
}
