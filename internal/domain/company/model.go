package company

import "time"

// Company is an employer enrolled in the program. Rows are reference data
// created by seeding and never edited by request handlers.
type Company struct {
	CompanyID int64     `db:"company_id" json:"company_id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"-"`
}
