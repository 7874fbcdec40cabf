package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-academy-api/internal/models"
)

const attendanceColumns = `id, student_id, teacher_id, date, status, modality, class_type, duration, ensemble_variant, created_at, updated_at`

// AttendanceRepository persists attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Mark stores the attendance for (student, date, modality). An existing record
// only has its status overwritten; teacher and configuration snapshot stay as
// first recorded. The student's absence streak is updated in the same transaction.
func (r *AttendanceRepository) Mark(ctx context.Context, record models.AttendanceRecord) (mark *models.AttendanceMark, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin mark attendance: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var streak int
	if err = tx.GetContext(ctx, &streak, `SELECT consecutive_absences FROM students WHERE id = $1 FOR UPDATE`, record.StudentID); err != nil {
		return nil, fmt.Errorf("lock student: %w", err)
	}

	var existing models.AttendanceRecord
	found := true
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE student_id = $1 AND date = $2 AND modality = $3 FOR UPDATE", attendanceColumns)
	if err = tx.GetContext(ctx, &existing, query, record.StudentID, record.Date, record.Modality); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find attendance: %w", err)
		}
		found = false
		err = nil
	}

	now := time.Now().UTC()
	var previous *models.AttendanceStatus
	stored := record
	if found {
		status := existing.Status
		previous = &status
		stored = existing
		stored.Status = record.Status
		stored.UpdatedAt = now
		if _, err = tx.ExecContext(ctx, `UPDATE attendance SET status = $1, updated_at = $2 WHERE id = $3`, stored.Status, now, stored.ID); err != nil {
			return nil, fmt.Errorf("update attendance: %w", err)
		}
	} else {
		if stored.ID == "" {
			stored.ID = uuid.NewString()
		}
		stored.CreatedAt = now
		stored.UpdatedAt = now
		if _, err = tx.NamedExecContext(ctx, insertAttendanceQuery, &stored); err != nil {
			return nil, fmt.Errorf("insert attendance: %w", err)
		}
	}

	streak = models.NextConsecutiveAbsences(streak, previous, record.Status)
	if _, err = tx.ExecContext(ctx, `UPDATE students SET consecutive_absences = $1, updated_at = $2 WHERE id = $3`, streak, now, record.StudentID); err != nil {
		return nil, fmt.Errorf("update absence streak: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit mark attendance: %w", err)
	}
	return &models.AttendanceMark{Record: stored, Created: !found, ConsecutiveAbsences: streak}, nil
}

const insertAttendanceQuery = `INSERT INTO attendance (id, student_id, teacher_id, date, status, modality, class_type, duration, ensemble_variant, created_at, updated_at)
        VALUES (:id, :student_id, :teacher_id, :date, :status, :modality, :class_type, :duration, :ensemble_variant, :created_at, :updated_at)`

// List returns records matching filter in insertion order.
func (r *AttendanceRepository) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	query := fmt.Sprintf("SELECT %s FROM attendance WHERE %s ORDER BY created_at ASC, id ASC", attendanceColumns, strings.Join(conditions, " AND "))
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return records, nil
}
