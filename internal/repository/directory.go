package repository

import (
	"context"

	"github.com/hostelhub/fee-ledger/internal/domain"
	"github.com/jmoiron/sqlx"
)

type studentDirectory struct {
	db *sqlx.DB
}

// NewStudentDirectory reads students from the hostel management schema.
func NewStudentDirectory(db *sqlx.DB) StudentDirectory {
	return &studentDirectory{db: db}
}

func (d *studentDirectory) GetActiveStudentsWithRent(ctx context.Context, hostelID int64) ([]*domain.Student, error) {
	query := `
		SELECT id, hostel_id, room_id, monthly_rent, is_active
		FROM students
		WHERE hostel_id = $1 AND is_active = TRUE AND monthly_rent IS NOT NULL
		ORDER BY id
	`

	var students []*domain.Student
	if err := d.db.SelectContext(ctx, &students, query, hostelID); err != nil {
		return nil, translateError(err)
	}
	return students, nil
}

func (d *studentDirectory) GetStudent(ctx context.Context, studentID int64) (*domain.Student, error) {
	query := `SELECT id, hostel_id, room_id, monthly_rent, is_active FROM students WHERE id = $1`

	var student domain.Student
	if err := d.db.GetContext(ctx, &student, query, studentID); err != nil {
		return nil, translateError(err)
	}
	return &student, nil
}

type hostelDirectory struct {
	db *sqlx.DB
}

// NewHostelDirectory reads hostel billing settings.
func NewHostelDirectory(db *sqlx.DB) HostelDirectory {
	return &hostelDirectory{db: db}
}

func (d *hostelDirectory) ListActiveHostelIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := d.db.SelectContext(ctx, &ids, `SELECT id FROM hostels WHERE is_active = TRUE ORDER BY id`); err != nil {
		return nil, translateError(err)
	}
	return ids, nil
}

func (d *hostelDirectory) GetDueDateDefault(ctx context.Context, hostelID int64) (int, error) {
	var day int
	err := d.db.GetContext(ctx, &day, `SELECT COALESCE(rent_due_day, 0) FROM hostels WHERE id = $1`, hostelID)
	if err != nil {
		return 0, translateError(err)
	}
	return day, nil
}
