package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/ams-academy-api/internal/models"
)

const insertEnrollmentQuery = `INSERT INTO enrollments (id, student_id, category, class_type, duration, ensemble_variant, early_pay, price, registration_fee, paid_now, date)
        VALUES (:id, :student_id, :category, :class_type, :duration, :ensemble_variant, :early_pay, :price, :registration_fee, :paid_now, :date)`

// DebtAdjustment computes a new balance from the locked balance and an amount.
type DebtAdjustment func(debt, amount int64) int64

// BillingRepository applies every balance-changing write inside one
// transaction that holds the student row lock.
type BillingRepository struct {
	db *sqlx.DB
}

// NewBillingRepository constructs the repository.
func NewBillingRepository(db *sqlx.DB) *BillingRepository {
	return &BillingRepository{db: db}
}

// Charge stores enrollment, adds debtDelta to the student's balance and, when
// payment is not nil, records the income movement.
func (r *BillingRepository) Charge(ctx context.Context, enrollment *models.Enrollment, debtDelta int64, payment *models.Transaction) (student *models.Student, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin charge: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	locked, err := lockStudent(ctx, tx, enrollment.StudentID)
	if err != nil {
		return nil, err
	}

	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Date.IsZero() {
		enrollment.Date = time.Now().UTC()
	}
	if _, err = tx.NamedExecContext(ctx, insertEnrollmentQuery, enrollment); err != nil {
		return nil, fmt.Errorf("insert enrollment: %w", err)
	}

	if payment != nil {
		prepareTransaction(payment)
		if _, err = tx.NamedExecContext(ctx, insertTransactionQuery, payment); err != nil {
			return nil, fmt.Errorf("insert payment: %w", err)
		}
	}

	if err = setDebt(ctx, tx, locked, locked.Debt+debtDelta); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit charge: %w", err)
	}
	return locked, nil
}

// RemoveEnrollment deletes one of the student's enrollments and sets the
// balance to adjust(debt, enrollment total).
func (r *BillingRepository) RemoveEnrollment(ctx context.Context, studentID, enrollmentID string, adjust DebtAdjustment) (student *models.Student, removed *models.Enrollment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin remove enrollment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	locked, err := lockStudent(ctx, tx, studentID)
	if err != nil {
		return nil, nil, err
	}

	var enrollment models.Enrollment
	query := fmt.Sprintf("SELECT %s FROM enrollments WHERE id = $1 AND student_id = $2", enrollmentColumns)
	if err = tx.GetContext(ctx, &enrollment, query, enrollmentID, studentID); err != nil {
		return nil, nil, fmt.Errorf("find enrollment: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM enrollments WHERE id = $1`, enrollmentID); err != nil {
		return nil, nil, fmt.Errorf("delete enrollment: %w", err)
	}
	if err = setDebt(ctx, tx, locked, adjust(locked.Debt, enrollment.Total())); err != nil {
		return nil, nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit remove enrollment: %w", err)
	}
	return locked, &enrollment, nil
}

// RecordPayment stores a student-linked income and sets the balance to
// adjust(debt, amount).
func (r *BillingRepository) RecordPayment(ctx context.Context, payment *models.Transaction, adjust DebtAdjustment) (student *models.Student, err error) {
	if payment.StudentID == nil {
		return nil, fmt.Errorf("record payment: missing student")
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin record payment: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	locked, err := lockStudent(ctx, tx, *payment.StudentID)
	if err != nil {
		return nil, err
	}
	prepareTransaction(payment)
	if _, err = tx.NamedExecContext(ctx, insertTransactionQuery, payment); err != nil {
		return nil, fmt.Errorf("insert payment: %w", err)
	}
	if err = setDebt(ctx, tx, locked, adjust(locked.Debt, payment.Amount)); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit record payment: %w", err)
	}
	return locked, nil
}

// RemoveTransaction deletes a movement. When it was a student payment and the
// student still exists, the balance becomes adjust(debt, amount).
func (r *BillingRepository) RemoveTransaction(ctx context.Context, id string, adjust DebtAdjustment) (removed *models.Transaction, student *models.Student, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("begin remove transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var movement models.Transaction
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE id = $1 FOR UPDATE", transactionColumns)
	if err = tx.GetContext(ctx, &movement, query, id); err != nil {
		return nil, nil, fmt.Errorf("find transaction: %w", err)
	}

	if movement.IsStudentPayment() {
		var found bool
		student, found, err = lockStudentIfExists(ctx, tx, *movement.StudentID)
		if err != nil {
			return nil, nil, err
		}
		if found {
			if err = setDebt(ctx, tx, student, adjust(student.Debt, movement.Amount)); err != nil {
				return nil, nil, err
			}
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
		return nil, nil, fmt.Errorf("delete transaction: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit remove transaction: %w", err)
	}
	return &movement, student, nil
}

func lockStudent(ctx context.Context, tx *sqlx.Tx, id string) (*models.Student, error) {
	var student models.Student
	query := fmt.Sprintf("SELECT %s FROM students s WHERE s.id = $1 FOR UPDATE", studentColumns)
	if err := tx.GetContext(ctx, &student, query, id); err != nil {
		return nil, fmt.Errorf("lock student: %w", err)
	}
	return &student, nil
}

func lockStudentIfExists(ctx context.Context, tx *sqlx.Tx, id string) (*models.Student, bool, error) {
	student, err := lockStudent(ctx, tx, id)
	if err != nil {
		if isNoRows(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return student, true, nil
}

func setDebt(ctx context.Context, tx *sqlx.Tx, student *models.Student, debt int64) error {
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `UPDATE students SET debt = $1, updated_at = $2 WHERE id = $3`, debt, now, student.ID); err != nil {
		return fmt.Errorf("update student debt: %w", err)
	}
	student.Debt = debt
	student.UpdatedAt = now
	return nil
}
