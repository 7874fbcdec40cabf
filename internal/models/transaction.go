package models

import "time"

// TransactionType separates money coming in from money going out.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Valid reports whether the type is supported.
func (t TransactionType) Valid() bool {
	return t == TransactionIncome || t == TransactionExpense
}

// StudentPaymentCategory labels income generated by a student payment.
const StudentPaymentCategory = "Cuota Alumno"

// Transaction is one cash movement.
type Transaction struct {
	ID          string          `db:"id" json:"id"`
	Date        time.Time       `db:"date" json:"date"`
	Type        TransactionType `db:"type" json:"type"`
	Amount      int64           `db:"amount" json:"amount"`
	Category    string          `db:"category" json:"category"`
	Description string          `db:"description" json:"description"`
	StudentID   *string         `db:"student_id" json:"student_id,omitempty"`
	Method      *string         `db:"method" json:"method,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

// IsStudentPayment reports whether deleting the transaction must restore debt.
func (t Transaction) IsStudentPayment() bool {
	return t.Type == TransactionIncome && t.StudentID != nil && *t.StudentID != ""
}

// TransactionFilter scopes cash-flow listings.
type TransactionFilter struct {
	Type      *TransactionType
	StudentID string
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// CashSummary totals the cash flow.
type CashSummary struct {
	Income  int64 `db:"income" json:"income"`
	Expense int64 `db:"expense" json:"expense"`
	Net     int64 `db:"-" json:"net"`
}
