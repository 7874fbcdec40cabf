package models

import (
	"time"

	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "present"
	AttendanceStatusAbsent  AttendanceStatus = "absent"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusAbsent
}

// AttendanceRecord is one class a student attended or missed. The class
// configuration is a snapshot taken when attendance was marked.
type AttendanceRecord struct {
	ID              string                   `db:"id" json:"id"`
	StudentID       string                   `db:"student_id" json:"student_id"`
	TeacherID       string                   `db:"teacher_id" json:"teacher_id"`
	Date            time.Time                `db:"date" json:"date"`
	Status          AttendanceStatus         `db:"status" json:"status"`
	Modality        pricing.Category         `db:"modality" json:"modality"`
	ClassType       *pricing.ClassType       `db:"class_type" json:"class_type,omitempty"`
	Duration        *pricing.Duration        `db:"duration" json:"duration,omitempty"`
	EnsembleVariant *pricing.EnsembleVariant `db:"ensemble_variant" json:"ensemble_variant,omitempty"`
	CreatedAt       time.Time                `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time                `db:"updated_at" json:"updated_at"`
}

// Configuration returns the configuration snapshot. Early pay never affects
// teacher rates so it is not stored.
func (r AttendanceRecord) Configuration() pricing.ClassConfiguration {
	return pricing.ClassConfiguration{
		Category:        r.Modality,
		Type:            r.ClassType,
		Duration:        r.Duration,
		EnsembleVariant: r.EnsembleVariant,
	}
}

// SnapshotFrom copies the configuration of an enrollment onto the record.
func (r *AttendanceRecord) SnapshotFrom(e Enrollment) {
	cfg := e.Configuration().Normalize()
	r.Modality = cfg.Category
	r.ClassType = cfg.Type
	r.Duration = cfg.Duration
	r.EnsembleVariant = cfg.EnsembleVariant
}

// AttendanceFilter defines query filters.
type AttendanceFilter struct {
	StudentID string
	TeacherID string
	Status    *AttendanceStatus
	DateFrom  *time.Time
	DateTo    *time.Time
}

// NextConsecutiveAbsences returns the student's new absence streak after a
// class is marked. previous is the status the same class had before, nil when
// it was never marked; re-marking an absence does not extend the streak.
func NextConsecutiveAbsences(current int, previous *AttendanceStatus, next AttendanceStatus) int {
	if next == AttendanceStatusPresent {
		return 0
	}
	if previous != nil && *previous == AttendanceStatusAbsent {
		return current
	}
	return current + 1
}

// AttendanceMark is the outcome of marking one class.
type AttendanceMark struct {
	Record              AttendanceRecord `json:"record"`
	Created             bool             `json:"created"`
	ConsecutiveAbsences int              `json:"consecutive_absences"`
}
