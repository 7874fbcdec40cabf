package models

import "time"

// StudentStatus tracks whether a student is currently taking classes.
type StudentStatus string

const (
	StudentStatusActive   StudentStatus = "ACTIVE"
	StudentStatusInactive StudentStatus = "INACTIVE"
)

// Valid reports whether the status is supported.
func (s StudentStatus) Valid() bool {
	return s == StudentStatusActive || s == StudentStatusInactive
}

// CriticalAbsenceThreshold is the consecutive absence count that flags a student.
const CriticalAbsenceThreshold = 2

// Student represents a learner registered in the academy.
type Student struct {
	ID                  string        `db:"id" json:"id"`
	FirstName           string        `db:"first_name" json:"first_name"`
	LastName            string        `db:"last_name" json:"last_name"`
	Age                 int           `db:"age" json:"age"`
	Instrument          string        `db:"instrument" json:"instrument"`
	TeacherID           *string       `db:"teacher_id" json:"teacher_id,omitempty"`
	Phone               string        `db:"phone" json:"phone"`
	Email               string        `db:"email" json:"email"`
	Status              StudentStatus `db:"status" json:"status"`
	Notes               string        `db:"notes" json:"notes"`
	Debt                int64         `db:"debt" json:"debt"`
	ConsecutiveAbsences int           `db:"consecutive_absences" json:"consecutive_absences"`
	FatherName          *string       `db:"father_name" json:"father_name,omitempty"`
	FatherPhone         *string       `db:"father_phone" json:"father_phone,omitempty"`
	MotherName          *string       `db:"mother_name" json:"mother_name,omitempty"`
	MotherPhone         *string       `db:"mother_phone" json:"mother_phone,omitempty"`
	ResponsibleName     *string       `db:"responsible_name" json:"responsible_name,omitempty"`
	ResponsiblePhone    *string       `db:"responsible_phone" json:"responsible_phone,omitempty"`
	CreatedAt           time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time     `db:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (s Student) FullName() string {
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Status    *StudentStatus
	TeacherID string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// StudentDetail contains a student with their enrollment history.
type StudentDetail struct {
	Student
	Enrollments []Enrollment `json:"enrollments"`
}
