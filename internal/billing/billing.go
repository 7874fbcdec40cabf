// Package billing holds the balance rules applied when plans are charged and
// when enrollments or payments are removed.
package billing

// ChargeOutcome describes how a charge affects the books. Exactly one of
// DebtDelta and IncomeAmount is non-zero for a positive charge.
type ChargeOutcome struct {
	DebtDelta    int64 `json:"debt_delta"`
	IncomeAmount int64 `json:"income_amount"`
}

// RecordsIncome reports whether an income transaction must be created.
func (o ChargeOutcome) RecordsIncome() bool {
	return o.IncomeAmount > 0
}

// PlanCharge decides whether a charge of total is collected now or added to
// the student's debt.
func PlanCharge(total int64, paidNow bool) ChargeOutcome {
	if paidNow {
		return ChargeOutcome{IncomeAmount: total}
	}
	return ChargeOutcome{DebtDelta: total}
}

// DebtAfterEnrollmentRemoval reverses an enrollment charge. The balance never
// goes below zero; a reversed charge that was paid upfront is not refunded.
func DebtAfterEnrollmentRemoval(debt, price int64) int64 {
	if remaining := debt - price; remaining > 0 {
		return remaining
	}
	return 0
}

// DebtAfterPaymentRemoval restores debt that a deleted payment had settled.
func DebtAfterPaymentRemoval(debt, amount int64) int64 {
	return debt + amount
}

// DebtAfterPayment applies a payment against debt. Overpayment is allowed and
// leaves a negative balance, which is credit in the student's favor.
func DebtAfterPayment(debt, amount int64) int64 {
	return debt - amount
}
