package questionnaire

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/wellness/wellness/internal/platform/db"
)

type submissionRepoPG struct{ db db.Querier }

func NewRepoPG(q db.Querier) Repository {
	return &submissionRepoPG{db: q}
}

const subCols = `id, user_id, answers, computed, created_at`

// answers and computed are JSONB; pgx encodes and decodes them through
// encoding/json.
func scanSubmission(row pgx.Row) (*Submission, error) {
	var s Submission
	if err := row.Scan(&s.ID, &s.UserID, &s.Answers, &s.Computed, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepoPG) Create(ctx context.Context, s *Submission) error {
	s.ID = uuid.New()
	return r.db.QueryRow(ctx, `
		INSERT INTO questionnaire_submissions (id, user_id, answers, computed)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`,
		s.ID, s.UserID, s.Answers, s.Computed).Scan(&s.CreatedAt)
}

func (r *submissionRepoPG) LatestByUser(ctx context.Context, userID uuid.UUID) (*Submission, error) {
	s, err := scanSubmission(r.db.QueryRow(ctx, `
		SELECT `+subCols+` FROM questionnaire_submissions
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT 1`, userID))
	if db.IsNoRows(err) {
		return nil, nil
	}
	return s, err
}

func (r *submissionRepoPG) LatestPerUser(ctx context.Context) ([]*Submission, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+subCols+` FROM (
			SELECT DISTINCT ON (user_id) `+subCols+`
			FROM questionnaire_submissions
			ORDER BY user_id, created_at DESC
		) latest
		ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *submissionRepoPG) DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM questionnaire_submissions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
