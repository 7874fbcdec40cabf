package models

import (
	"time"

	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

// Enrollment is a charge for a class plan. The configuration is flattened into
// columns so the row can be indexed by category.
type Enrollment struct {
	ID              string                   `db:"id" json:"id"`
	StudentID       string                   `db:"student_id" json:"student_id"`
	Category        pricing.Category         `db:"category" json:"category"`
	ClassType       *pricing.ClassType       `db:"class_type" json:"class_type,omitempty"`
	Duration        *pricing.Duration        `db:"duration" json:"duration,omitempty"`
	EnsembleVariant *pricing.EnsembleVariant `db:"ensemble_variant" json:"ensemble_variant,omitempty"`
	EarlyPay        bool                     `db:"early_pay" json:"early_pay"`
	Price           int64                    `db:"price" json:"price"`
	RegistrationFee int64                    `db:"registration_fee" json:"registration_fee"`
	PaidNow         bool                     `db:"paid_now" json:"paid_now"`
	Date            time.Time                `db:"date" json:"date"`
}

// Configuration rebuilds the class configuration stored on the row.
func (e Enrollment) Configuration() pricing.ClassConfiguration {
	return pricing.ClassConfiguration{
		Category:        e.Category,
		Type:            e.ClassType,
		Duration:        e.Duration,
		EnsembleVariant: e.EnsembleVariant,
		EarlyPay:        e.EarlyPay,
	}
}

// Total is the full amount charged for the enrollment.
func (e Enrollment) Total() int64 {
	return e.Price + e.RegistrationFee
}

// SetConfiguration copies cfg into the flattened columns.
func (e *Enrollment) SetConfiguration(cfg pricing.ClassConfiguration) {
	cfg = cfg.Normalize()
	e.Category = cfg.Category
	e.ClassType = cfg.Type
	e.Duration = cfg.Duration
	e.EnsembleVariant = cfg.EnsembleVariant
	e.EarlyPay = cfg.EarlyPay
}

// EnrollmentFilter provides filters for listing enrollments.
type EnrollmentFilter struct {
	StudentID string
	Category  pricing.Category
}
