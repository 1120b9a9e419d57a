package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/edulink/school-fees-api/internal/models"
)

// StudentRepository provides the read-only student lookups the fee
// ledger needs for reference validation.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs the repository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID returns a student by its ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	const query = `SELECT id, full_name, class_id, active, created_at FROM students WHERE id = $1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// ExistsFeeForYear reports whether the student already has a fee record
// for the academic year.
func (r *StudentRepository) ExistsFeeForYear(ctx context.Context, studentID, academicYear string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM fees WHERE student_id = $1 AND academic_year = $2)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, studentID, academicYear); err != nil {
		return false, fmt.Errorf("check existing fee: %w", err)
	}
	return exists, nil
}
