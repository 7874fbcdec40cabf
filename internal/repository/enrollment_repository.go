package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

const enrollmentColumns = `id, student_id, category, class_type, duration, ensemble_variant, early_pay, price, registration_fee, paid_now, date`

// EnrollmentRepository reads enrollment rows. Writes go through BillingRepository
// so the student's balance changes in the same transaction.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs an EnrollmentRepository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// ListByStudent returns a student's enrollments, newest first.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_id = $1 ORDER BY date DESC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	return enrollments, nil
}

// ListAll returns every enrollment grouped by student, each group oldest first.
func (r *EnrollmentRepository) ListAll(ctx context.Context) (map[string][]models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments ORDER BY student_id, date ASC", enrollmentColumns)
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query); err != nil {
		return nil, fmt.Errorf("list all enrollments: %w", err)
	}
	grouped := make(map[string][]models.Enrollment)
	for _, e := range enrollments {
		grouped[e.StudentID] = append(grouped[e.StudentID], e)
	}
	return grouped, nil
}

// LatestByCategory returns the student's most recent enrollment in category,
// or nil when the student never enrolled in it.
func (r *EnrollmentRepository) LatestByCategory(ctx context.Context, studentID string, category pricing.Category) (*models.Enrollment, error) {
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE student_id = $1 AND category = $2 ORDER BY date DESC LIMIT 1", enrollmentColumns)
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentID, category); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("latest enrollment by category: %w", err)
	}
	return &enrollment, nil
}

// ModalityBreakdown counts enrollments of active students per category.
func (r *EnrollmentRepository) ModalityBreakdown(ctx context.Context) ([]models.ModalityShare, error) {
	const query = `SELECT e.category, COUNT(*) AS count FROM enrollments e
        JOIN students s ON s.id = e.student_id
        WHERE s.status = $1 GROUP BY e.category ORDER BY count DESC, e.category ASC`
	var shares []models.ModalityShare
	if err := r.db.SelectContext(ctx, &shares, query, models.StudentStatusActive); err != nil {
		return nil, fmt.Errorf("modality breakdown: %w", err)
	}
	for i := range shares {
		shares[i].Label = shares[i].Category.Label()
	}
	return shares, nil
}
