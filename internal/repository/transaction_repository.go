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

const transactionColumns = `id, date, type, amount, category, description, student_id, method, created_at`

// TransactionRepository persists cash-flow movements.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository constructs the repository.
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// List returns movements newest first.
func (r *TransactionRepository) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error) {
	where, args := transactionWhere(filter)
	page, size := normalizePage(filter.Page, filter.PageSize)
	query := fmt.Sprintf("SELECT %s FROM transactions %s ORDER BY date DESC, created_at DESC LIMIT %d OFFSET %d", transactionColumns, where, size, (page-1)*size)
	var txs []models.Transaction
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list transactions: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM transactions "+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count transactions: %w", err)
	}
	return txs, total, nil
}

// ListAll returns every movement matching filter without pagination.
func (r *TransactionRepository) ListAll(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	where, args := transactionWhere(filter)
	query := fmt.Sprintf("SELECT %s FROM transactions %s ORDER BY date DESC, created_at DESC", transactionColumns, where)
	var txs []models.Transaction
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, fmt.Errorf("list all transactions: %w", err)
	}
	return txs, nil
}

// FindByID fetches one movement.
func (r *TransactionRepository) FindByID(ctx context.Context, id string) (*models.Transaction, error) {
	query := fmt.Sprintf("SELECT %s FROM transactions WHERE id = $1", transactionColumns)
	var tx models.Transaction
	if err := r.db.GetContext(ctx, &tx, query, id); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create inserts a movement that does not touch any student balance.
func (r *TransactionRepository) Create(ctx context.Context, tx *models.Transaction) error {
	prepareTransaction(tx)
	if _, err := r.db.NamedExecContext(ctx, insertTransactionQuery, tx); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	return nil
}

// Summary totals income and expense for the filtered movements.
func (r *TransactionRepository) Summary(ctx context.Context, filter models.TransactionFilter) (*models.CashSummary, error) {
	where, args := transactionWhere(filter)
	query := fmt.Sprintf(`SELECT
        COALESCE(SUM(amount) FILTER (WHERE type = 'income'), 0) AS income,
        COALESCE(SUM(amount) FILTER (WHERE type = 'expense'), 0) AS expense
        FROM transactions %s`, where)
	var summary models.CashSummary
	if err := r.db.GetContext(ctx, &summary, query, args...); err != nil {
		return nil, fmt.Errorf("summarize transactions: %w", err)
	}
	summary.Net = summary.Income - summary.Expense
	return &summary, nil
}

const insertTransactionQuery = `INSERT INTO transactions (id, date, type, amount, category, description, student_id, method, created_at)
        VALUES (:id, :date, :type, :amount, :category, :description, :student_id, :method, :created_at)`

func prepareTransaction(tx *models.Transaction) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now
	}
	if tx.Date.IsZero() {
		tx.Date = now.Truncate(24 * time.Hour)
	}
}

func transactionWhere(filter models.TransactionFilter) (string, []interface{}) {
	args := []interface{}{}
	conditions := []string{"1=1"}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, *filter.Type)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
