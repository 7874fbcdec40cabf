package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanCharge(t *testing.T) {
	paid := PlanCharge(130660, true)
	assert.Equal(t, ChargeOutcome{IncomeAmount: 130660}, paid)
	assert.True(t, paid.RecordsIncome())

	owed := PlanCharge(130660, false)
	assert.Equal(t, ChargeOutcome{DebtDelta: 130660}, owed)
	assert.False(t, owed.RecordsIncome())
}

func TestDebtAfterEnrollmentRemoval(t *testing.T) {
	cases := []struct {
		name        string
		debt, price int64
		want        int64
	}{
		{"partial", 200000, 130660, 69340},
		{"exact", 130660, 130660, 0},
		{"floors at zero", 50000, 130660, 0},
		{"already clear", 0, 29500, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DebtAfterEnrollmentRemoval(tc.debt, tc.price))
		})
	}
}

func TestPaymentRemovalRestoresDebt(t *testing.T) {
	debt := int64(0)
	outcome := PlanCharge(130660, true)
	debt += outcome.DebtDelta
	assert.Equal(t, int64(0), debt)

	debt = DebtAfterPaymentRemoval(debt, outcome.IncomeAmount)
	assert.Equal(t, int64(130660), debt)
}

func TestDebtAfterPayment(t *testing.T) {
	assert.Equal(t, int64(30000), DebtAfterPayment(130660, 100660))
	assert.Equal(t, int64(-5000), DebtAfterPayment(0, 5000))
	assert.Equal(t, int64(130660), DebtAfterPaymentRemoval(DebtAfterPayment(130660, 40000), 40000))
}
