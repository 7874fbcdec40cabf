package models

import "github.com/noah-isme/ams-academy-api/internal/pricing"

// DashboardSummary aggregates the numbers shown on the administrator home page.
type DashboardSummary struct {
	ActiveStudents    int               `json:"active_students"`
	InactiveStudents  int               `json:"inactive_students"`
	TotalDebt         int64             `json:"total_debt"`
	CriticalAbsences  []CriticalAbsence `json:"critical_absences"`
	ModalityBreakdown []ModalityShare   `json:"modality_breakdown"`
	Cash              CashSummary       `json:"cash"`
	PayrollTotal      int64             `json:"payroll_total"`
	Teachers          int               `json:"teachers"`
}

// CriticalAbsence flags an active student with repeated consecutive absences.
type CriticalAbsence struct {
	StudentID           string `db:"id" json:"student_id"`
	FirstName           string `db:"first_name" json:"first_name"`
	LastName            string `db:"last_name" json:"last_name"`
	ConsecutiveAbsences int    `db:"consecutive_absences" json:"consecutive_absences"`
	Phone               string `db:"phone" json:"phone"`
}

// ModalityShare counts enrollments in one category.
type ModalityShare struct {
	Category pricing.Category `db:"category" json:"category"`
	Label    string           `db:"-" json:"label"`
	Count    int              `db:"count" json:"count"`
}

// StudentCounts holds the per-status student totals.
type StudentCounts struct {
	Active    int   `db:"active"`
	Inactive  int   `db:"inactive"`
	TotalDebt int64 `db:"total_debt"`
}
