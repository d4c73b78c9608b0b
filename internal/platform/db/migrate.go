package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationStatus represents the status of a migration (applied or pending).
type MigrationStatus struct {
	Version   int64
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

// Migrator applies the embedded SQL migrations through goose.
type Migrator struct {
	db   *sql.DB
	fsys fs.FS
}

// NewMigrator opens a database/sql handle on top of pool for goose.
func NewMigrator(pool *pgxpool.Pool) (*Migrator, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	return &Migrator{db: stdlib.OpenDBFromPool(pool), fsys: fsys}, nil
}

func (m *Migrator) provider() (*goose.Provider, error) {
	p, err := goose.NewProvider(goose.DialectPostgres, m.db, m.fsys)
	if err != nil {
		return nil, fmt.Errorf("create goose provider: %w", err)
	}
	return p, nil
}

// Up applies all pending migrations and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	p, err := m.provider()
	if err != nil {
		return 0, err
	}
	results, err := p.Up(ctx)
	if err != nil {
		return len(results), fmt.Errorf("apply migrations: %w", err)
	}
	return len(results), nil
}

// Status lists every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	p, err := m.provider()
	if err != nil {
		return nil, err
	}
	statuses, err := p.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration status: %w", err)
	}
	out := make([]MigrationStatus, 0, len(statuses))
	for _, s := range statuses {
		ms := MigrationStatus{
			Version: s.Source.Version,
			Name:    path.Base(s.Source.Path),
			Applied: s.State == goose.StateApplied,
		}
		if ms.Applied && !s.AppliedAt.IsZero() {
			at := s.AppliedAt
			ms.AppliedAt = &at
		}
		out = append(out, ms)
	}
	return out, nil
}

// Close releases the database/sql handle. The underlying pool stays open.
func (m *Migrator) Close() error {
	return m.db.Close()
}
