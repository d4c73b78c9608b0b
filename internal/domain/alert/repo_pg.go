package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wellness/wellness/internal/platform/db"
)

type alertRepoPG struct{ db db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &alertRepoPG{db: q}
}

const alertCols = `id, for_user, kind, message, created_at, read_at`

func (r *alertRepoPG) Create(ctx context.Context, a *Alert) error {
	a.ID = uuid.New()
	return r.db.QueryRow(ctx, `
		INSERT INTO alerts (id, for_user, kind, message) VALUES ($1, $2, $3, $4)
		RETURNING created_at`, a.ID, a.ForUser, a.Kind, a.Message).Scan(&a.CreatedAt)
}

func (r *alertRepoPG) ListForUser(ctx context.Context, forUser string, since *time.Time, limit int) ([]*Alert, error) {
	query := `SELECT ` + alertCols + ` FROM alerts WHERE for_user = $1`
	args := []interface{}{forUser}
	if since != nil {
		args = append(args, *since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.ForUser, &a.Kind, &a.Message, &a.CreatedAt, &a.ReadAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

func (r *alertRepoPG) MarkRead(ctx context.Context, forUser string, at time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `UPDATE alerts SET read_at = $2 WHERE for_user = $1 AND read_at IS NULL`, forUser, at)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
