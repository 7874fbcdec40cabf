package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

const teacherColumns = `id, name, instrument, phone, email, status, rates, created_at, updated_at`

// TeacherRepository handles persistence for teachers and their rate tables.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository creates a new repository instance.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

// List returns teachers based on filter options.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(name) LIKE $%d OR LOWER(instrument) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	sortColumns := map[string]string{"name": "name", "created_at": "created_at"}
	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = "name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page, size := normalizePage(filter.Page, filter.PageSize)

	query := fmt.Sprintf("SELECT %s FROM teachers %s ORDER BY %s %s LIMIT %d OFFSET %d", teacherColumns, where, column, order, size, (page-1)*size)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM teachers "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// ListAll returns every teacher ordered by name.
func (r *TeacherRepository) ListAll(ctx context.Context) ([]models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers ORDER BY name ASC", teacherColumns)
	var teachers []models.Teacher
	if err := r.db.SelectContext(ctx, &teachers, query); err != nil {
		return nil, fmt.Errorf("list all teachers: %w", err)
	}
	return teachers, nil
}

// FindByID retrieves a teacher by ID.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1", teacherColumns)
	var teacher models.Teacher
	if err := r.db.GetContext(ctx, &teacher, query, id); err != nil {
		return nil, err
	}
	return &teacher, nil
}

// Create inserts a teacher.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	if teacher.Rates == nil {
		teacher.Rates = pricing.RateTable{}
	}
	now := time.Now().UTC()
	if teacher.CreatedAt.IsZero() {
		teacher.CreatedAt = now
	}
	teacher.UpdatedAt = now
	if _, err := r.db.NamedExecContext(ctx, insertTeacherQuery, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

const insertTeacherQuery = `INSERT INTO teachers (id, name, instrument, phone, email, status, rates, created_at, updated_at)
        VALUES (:id, :name, :instrument, :phone, :email, :status, :rates, :created_at, :updated_at)`

// Update modifies a teacher profile. Rates are changed through UpdateRates.
func (r *TeacherRepository) Update(ctx context.Context, teacher *models.Teacher) error {
	teacher.UpdatedAt = time.Now().UTC()
	const query = `UPDATE teachers SET name = :name, instrument = :instrument, phone = :phone, email = :email, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, teacher)
	if err != nil {
		return fmt.Errorf("update teacher: %w", err)
	}
	return expectAffected(res, "update teacher")
}

// UpdateRates locks the teacher row, applies mutate to the current rate table
// and stores the result.
func (r *TeacherRepository) UpdateRates(ctx context.Context, id string, mutate func(pricing.RateTable) (pricing.RateTable, error)) (teacher *models.Teacher, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin update rates: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var current models.Teacher
	query := fmt.Sprintf("SELECT %s FROM teachers WHERE id = $1 FOR UPDATE", teacherColumns)
	if err = tx.GetContext(ctx, &current, query, id); err != nil {
		return nil, fmt.Errorf("lock teacher: %w", err)
	}

	rates, err := mutate(current.Rates.Clone())
	if err != nil {
		return nil, err
	}
	current.Rates = rates
	current.UpdatedAt = time.Now().UTC()
	if _, err = tx.ExecContext(ctx, `UPDATE teachers SET rates = $1, updated_at = $2 WHERE id = $3`, current.Rates, current.UpdatedAt, id); err != nil {
		return nil, fmt.Errorf("update teacher rates: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update rates: %w", err)
	}
	return &current, nil
}

// Delete removes a teacher. Attendance rows keep the stale teacher id.
func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete teacher: %w", err)
	}
	return expectAffected(res, "delete teacher")
}
