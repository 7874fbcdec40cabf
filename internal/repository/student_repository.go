package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-academy-api/internal/models"
)

const studentColumns = `s.id, s.first_name, s.last_name, s.age, s.instrument, s.teacher_id, s.phone, s.email, s.status, s.notes,
        s.debt, s.consecutive_absences, s.father_name, s.father_phone, s.mother_name, s.mother_phone,
        s.responsible_name, s.responsible_phone, s.created_at, s.updated_at`

// StudentRepository manages persistence for student records.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("s.status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("s.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(s.first_name || ' ' || s.last_name) LIKE $%d OR LOWER(s.instrument) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	base := fmt.Sprintf("FROM students s WHERE %s", strings.Join(conditions, " AND "))

	allowedSorts := map[string]string{
		"last_name":  "s.last_name",
		"debt":       "s.debt",
		"created_at": "s.created_at",
	}
	column, ok := allowedSorts[filter.SortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d", studentColumns, base, column, order, size, (page-1)*size)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every student ordered by creation time.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s ORDER BY s.created_at ASC", studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.id = $1", studentColumns)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a new student record.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, insertStudentQuery, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

const insertStudentQuery = `INSERT INTO students (id, first_name, last_name, age, instrument, teacher_id, phone, email, status, notes, debt,
        consecutive_absences, father_name, father_phone, mother_name, mother_phone, responsible_name, responsible_phone, created_at, updated_at)
        VALUES (:id, :first_name, :last_name, :age, :instrument, :teacher_id, :phone, :email, :status, :notes, :debt,
        :consecutive_absences, :father_name, :father_phone, :mother_name, :mother_phone, :responsible_name, :responsible_phone, :created_at, :updated_at)`

// Update modifies a student's profile. Debt and absence counters are owned by
// billing and attendance and are never written here.
func (r *StudentRepository) Update(ctx context.Context, student *models.Student) error {
	student.UpdatedAt = time.Now().UTC()
	const query = `UPDATE students SET first_name = :first_name, last_name = :last_name, age = :age, instrument = :instrument,
        teacher_id = :teacher_id, phone = :phone, email = :email, status = :status, notes = :notes,
        father_name = :father_name, father_phone = :father_phone, mother_name = :mother_name, mother_phone = :mother_phone,
        responsible_name = :responsible_name, responsible_phone = :responsible_phone, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// Delete removes a student; enrollments and attendance cascade.
func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete student: %w", err)
	}
	return expectAffected(res, "delete student")
}

// Counts returns active and inactive totals plus the debt owed by active students.
func (r *StudentRepository) Counts(ctx context.Context) (*models.StudentCounts, error) {
	const query = `SELECT
        COUNT(*) FILTER (WHERE status = $1) AS active,
        COUNT(*) FILTER (WHERE status = $2) AS inactive,
        COALESCE(SUM(debt) FILTER (WHERE status = $1), 0) AS total_debt
        FROM students`
	var counts models.StudentCounts
	if err := r.db.GetContext(ctx, &counts, query, models.StudentStatusActive, models.StudentStatusInactive); err != nil {
		return nil, fmt.Errorf("count students by status: %w", err)
	}
	return &counts, nil
}

// CriticalAbsences lists active students with at least threshold consecutive absences.
func (r *StudentRepository) CriticalAbsences(ctx context.Context, threshold int) ([]models.CriticalAbsence, error) {
	const query = `SELECT id, first_name, last_name, consecutive_absences, phone FROM students
        WHERE status = $1 AND consecutive_absences >= $2 ORDER BY consecutive_absences DESC, last_name ASC`
	var rows []models.CriticalAbsence
	if err := r.db.SelectContext(ctx, &rows, query, models.StudentStatusActive, threshold); err != nil {
		return nil, fmt.Errorf("list critical absences: %w", err)
	}
	return rows, nil
}
