// Package payroll computes what each teacher is owed from attendance records
// and their per-class rate tables.
package payroll

import (
	"sort"
	"time"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

// Rate is the resolved pay for one attended class.
type Rate struct {
	Key        pricing.Key `json:"key"`
	Amount     int64       `json:"amount"`
	Configured bool        `json:"configured"`
}

// LineItem is one paid (or unpaid, when unconfigured) class.
type LineItem struct {
	RecordID   string           `json:"record_id"`
	StudentID  string           `json:"student_id"`
	TeacherID  string           `json:"teacher_id"`
	Date       time.Time        `json:"date"`
	Modality   pricing.Category `json:"modality"`
	Key        pricing.Key      `json:"key"`
	Amount     int64            `json:"amount"`
	Configured bool             `json:"configured"`
}

// Earnings is the accumulated pay of one teacher.
type Earnings struct {
	TeacherID    string     `json:"teacher_id"`
	TeacherName  string     `json:"teacher_name,omitempty"`
	Total        int64      `json:"total"`
	Classes      int        `json:"classes"`
	Unconfigured int        `json:"unconfigured"`
	LineItems    []LineItem `json:"line_items"`
}

// Summary is the school-wide payroll.
type Summary struct {
	Teachers   []Earnings `json:"teachers"`
	Total      int64      `json:"total"`
	Unassigned []LineItem `json:"unassigned"`
}

// RateKeyFor builds the rate key for the configuration snapshot on a record.
func RateKeyFor(record models.AttendanceRecord) (pricing.Key, bool) {
	return pricing.ConfigKey(record.Configuration())
}

// RateForRecord resolves what teacher is paid for record. A nil teacher, an
// incomplete snapshot or a missing rate yields an unconfigured zero rate.
func RateForRecord(record models.AttendanceRecord, teacher *models.Teacher) Rate {
	key, ok := RateKeyFor(record)
	if !ok || teacher == nil {
		return Rate{Key: key}
	}
	amount, configured := teacher.Rates.Lookup(key)
	return Rate{Key: key, Amount: amount, Configured: configured}
}

// AccumulateEarnings totals the present records taught by teacherID. Absent
// records and records of other teachers never contribute. Line items are
// returned most recent first; records sharing a date keep newest-inserted first.
func AccumulateEarnings(teacherID string, records []models.AttendanceRecord, teacher *models.Teacher) Earnings {
	earnings := Earnings{TeacherID: teacherID, LineItems: []LineItem{}}
	if teacher != nil {
		earnings.TeacherName = teacher.Name
	}
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		if record.TeacherID != teacherID || record.Status != models.AttendanceStatusPresent {
			continue
		}
		rate := RateForRecord(record, teacher)
		earnings.LineItems = append(earnings.LineItems, lineItem(record, rate))
		earnings.Classes++
		if !rate.Configured {
			earnings.Unconfigured++
			continue
		}
		earnings.Total += rate.Amount
	}
	sortNewestFirst(earnings.LineItems)
	return earnings
}

// Summarize computes every teacher's earnings in input order. Present records
// whose teacher is blank or no longer exists are reported as unassigned and
// never added to the total.
func Summarize(teachers []models.Teacher, records []models.AttendanceRecord) Summary {
	summary := Summary{Teachers: make([]Earnings, 0, len(teachers)), Unassigned: []LineItem{}}
	known := make(map[string]struct{}, len(teachers))
	for i := range teachers {
		teacher := &teachers[i]
		known[teacher.ID] = struct{}{}
		earnings := AccumulateEarnings(teacher.ID, records, teacher)
		summary.Total += earnings.Total
		summary.Teachers = append(summary.Teachers, earnings)
	}
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		if record.Status != models.AttendanceStatusPresent {
			continue
		}
		if _, ok := known[record.TeacherID]; ok {
			continue
		}
		summary.Unassigned = append(summary.Unassigned, lineItem(record, RateForRecord(record, nil)))
	}
	sortNewestFirst(summary.Unassigned)
	return summary
}

// SchoolWideTotal is the sum of every teacher's earnings.
func SchoolWideTotal(teachers []models.Teacher, records []models.AttendanceRecord) int64 {
	return Summarize(teachers, records).Total
}

func lineItem(record models.AttendanceRecord, rate Rate) LineItem {
	return LineItem{
		RecordID:   record.ID,
		StudentID:  record.StudentID,
		TeacherID:  record.TeacherID,
		Date:       record.Date,
		Modality:   record.Modality,
		Key:        rate.Key,
		Amount:     rate.Amount,
		Configured: rate.Configured,
	}
}

func sortNewestFirst(items []LineItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Date.After(items[j].Date)
	})
}
