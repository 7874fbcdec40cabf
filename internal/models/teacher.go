package models

import (
	"time"

	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

// TeacherStatus tracks whether a teacher is currently working.
type TeacherStatus string

const (
	TeacherStatusActive   TeacherStatus = "ACTIVE"
	TeacherStatusInactive TeacherStatus = "INACTIVE"
)

// Teacher represents an instructor and the rates they are paid per class.
type Teacher struct {
	ID         string            `db:"id" json:"id"`
	Name       string            `db:"name" json:"name"`
	Instrument string            `db:"instrument" json:"instrument"`
	Phone      *string           `db:"phone" json:"phone,omitempty"`
	Email      *string           `db:"email" json:"email,omitempty"`
	Status     TeacherStatus     `db:"status" json:"status"`
	Rates      pricing.RateTable `db:"rates" json:"rates"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// TeacherFilter captures filtering options for listing teachers.
type TeacherFilter struct {
	Search    string
	Status    *TeacherStatus
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
