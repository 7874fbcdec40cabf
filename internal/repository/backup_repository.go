package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-academy-api/internal/models"
)

// BackupRepository replaces the whole academy state from a backup document.
type BackupRepository struct {
	db *sqlx.DB
}

// NewBackupRepository constructs the repository.
func NewBackupRepository(db *sqlx.DB) *BackupRepository {
	return &BackupRepository{db: db}
}

// Restore deletes every student, teacher, enrollment, attendance record and
// transaction and inserts the backup contents. Prices and settings are only
// replaced when present. Either everything is restored or nothing changes.
func (r *BackupRepository) Restore(ctx context.Context, backup *models.Backup) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"attendance", "transactions", "enrollments", "students", "teachers"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	for i := range backup.Teachers {
		if _, err = tx.NamedExecContext(ctx, insertTeacherQuery, &backup.Teachers[i]); err != nil {
			return fmt.Errorf("restore teacher %s: %w", backup.Teachers[i].ID, err)
		}
	}
	for i := range backup.Students {
		detail := &backup.Students[i]
		if _, err = tx.NamedExecContext(ctx, insertStudentQuery, &detail.Student); err != nil {
			return fmt.Errorf("restore student %s: %w", detail.ID, err)
		}
		for j := range detail.Enrollments {
			if _, err = tx.NamedExecContext(ctx, insertEnrollmentQuery, &detail.Enrollments[j]); err != nil {
				return fmt.Errorf("restore enrollment %s: %w", detail.Enrollments[j].ID, err)
			}
		}
	}
	for i := range backup.Attendance {
		if _, err = tx.NamedExecContext(ctx, insertAttendanceQuery, &backup.Attendance[i]); err != nil {
			return fmt.Errorf("restore attendance %s: %w", backup.Attendance[i].ID, err)
		}
	}
	for i := range backup.Transactions {
		if _, err = tx.NamedExecContext(ctx, insertTransactionQuery, &backup.Transactions[i]); err != nil {
			return fmt.Errorf("restore transaction %s: %w", backup.Transactions[i].ID, err)
		}
	}

	now := time.Now().UTC()
	if backup.Prices != nil {
		const query = `INSERT INTO tariffs (id, prices, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET prices = EXCLUDED.prices, updated_at = EXCLUDED.updated_at`
		if _, err = tx.ExecContext(ctx, query, tariffRowID, *backup.Prices, now); err != nil {
			return fmt.Errorf("restore tariffs: %w", err)
		}
	}
	if backup.Settings != nil {
		for _, cfg := range models.SettingsConfigurations(*backup.Settings) {
			cfg.UpdatedAt = now
			if _, err = tx.NamedExecContext(ctx, upsertConfigurationQuery, cfg); err != nil {
				return fmt.Errorf("restore setting %s: %w", cfg.Key, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	return nil
}
