package payroll

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
)

func day(d int) time.Time {
	return time.Date(2024, time.March, d, 0, 0, 0, 0, time.UTC)
}

func singleRecord(id, teacherID string, date time.Time, status models.AttendanceStatus) models.AttendanceRecord {
	record := models.AttendanceRecord{ID: id, StudentID: "stu-1", TeacherID: teacherID, Date: date, Status: status}
	record.SnapshotFrom(models.Enrollment{
		Category:  pricing.CategorySingleClass,
		ClassType: ptr(pricing.TypeIndividual),
		Duration:  ptr(pricing.Duration30),
	})
	return record
}

func TestRateForRecord(t *testing.T) {
	teacher := &models.Teacher{ID: "t1", Rates: pricing.RateTable{"SUELTA_INDIVIDUAL_30 min": 15000}}
	record := singleRecord("a1", "t1", day(1), models.AttendanceStatusPresent)

	rate := RateForRecord(record, teacher)
	assert.Equal(t, Rate{Key: "SUELTA_INDIVIDUAL_30 min", Amount: 15000, Configured: true}, rate)

	teacher.Rates = pricing.RateTable{}
	rate = RateForRecord(record, teacher)
	assert.Equal(t, int64(0), rate.Amount)
	assert.False(t, rate.Configured)

	rate = RateForRecord(record, nil)
	assert.False(t, rate.Configured)

	incomplete := models.AttendanceRecord{TeacherID: "t1", Modality: pricing.CategoryMonthlyCombo}
	rate = RateForRecord(incomplete, &models.Teacher{Rates: pricing.RateTable{"COMBO_INDIVIDUAL_30 min": 1}})
	assert.False(t, rate.Configured)
	assert.Empty(t, rate.Key)
}

func TestAccumulateEarnings(t *testing.T) {
	teacher := &models.Teacher{ID: "t1", Name: "Ana", Rates: pricing.RateTable{"SUELTA_INDIVIDUAL_30 min": 15000}}
	records := []models.AttendanceRecord{
		singleRecord("a1", "t1", day(1), models.AttendanceStatusPresent),
		singleRecord("a2", "t1", day(3), models.AttendanceStatusPresent),
	}

	earnings := AccumulateEarnings("t1", records, teacher)
	assert.Equal(t, int64(30000), earnings.Total)
	assert.Equal(t, 2, earnings.Classes)
	require.Len(t, earnings.LineItems, 2)
	assert.Equal(t, "a2", earnings.LineItems[0].RecordID)
	assert.Equal(t, "a1", earnings.LineItems[1].RecordID)
}

func TestAccumulateEarningsIgnoresAbsencesAndOtherTeachers(t *testing.T) {
	teacher := &models.Teacher{ID: "t1", Rates: pricing.RateTable{"SUELTA_INDIVIDUAL_30 min": 15000}}
	records := []models.AttendanceRecord{
		singleRecord("a1", "t1", day(1), models.AttendanceStatusAbsent),
		singleRecord("a2", "t2", day(2), models.AttendanceStatusPresent),
		singleRecord("a3", "t1", day(2), models.AttendanceStatusPresent),
	}

	earnings := AccumulateEarnings("t1", records, teacher)
	assert.Equal(t, int64(15000), earnings.Total)
	require.Len(t, earnings.LineItems, 1)
	assert.Equal(t, "a3", earnings.LineItems[0].RecordID)
}

func TestAccumulateEarningsCountsUnconfigured(t *testing.T) {
	teacher := &models.Teacher{ID: "t1", Rates: pricing.RateTable{"SUELTA_INDIVIDUAL_30 min": 15000}}
	practice := models.AttendanceRecord{ID: "p1", TeacherID: "t1", Date: day(5), Status: models.AttendanceStatusPresent, Modality: pricing.CategoryPractice, Duration: ptr(pricing.Duration45)}
	records := []models.AttendanceRecord{singleRecord("a1", "t1", day(1), models.AttendanceStatusPresent), practice}

	earnings := AccumulateEarnings("t1", records, teacher)
	assert.Equal(t, int64(15000), earnings.Total)
	assert.Equal(t, 2, earnings.Classes)
	assert.Equal(t, 1, earnings.Unconfigured)
	assert.Equal(t, pricing.Key("PRACTICA_45 min"), earnings.LineItems[0].Key)
	assert.False(t, earnings.LineItems[0].Configured)
}

func TestSameDayLinesKeepNewestInsertedFirst(t *testing.T) {
	teacher := &models.Teacher{ID: "t1", Rates: pricing.RateTable{"SUELTA_INDIVIDUAL_30 min": 15000}}
	records := []models.AttendanceRecord{
		singleRecord("first", "t1", day(4), models.AttendanceStatusPresent),
		singleRecord("second", "t1", day(4), models.AttendanceStatusPresent),
	}

	earnings := AccumulateEarnings("t1", records, teacher)
	require.Len(t, earnings.LineItems, 2)
	assert.Equal(t, "second", earnings.LineItems[0].RecordID)
}

func TestSummarizeMatchesPerTeacherSums(t *testing.T) {
	teachers := []models.Teacher{
		{ID: "t1", Rates: pricing.RateTable{"SUELTA_INDIVIDUAL_30 min": 15000}},
		{ID: "t2", Rates: pricing.RateTable{"SUELTA_INDIVIDUAL_30 min": 12000}},
	}
	records := []models.AttendanceRecord{
		singleRecord("a1", "t1", day(1), models.AttendanceStatusPresent),
		singleRecord("a2", "t2", day(1), models.AttendanceStatusPresent),
		singleRecord("a3", "t2", day(2), models.AttendanceStatusPresent),
		singleRecord("a4", "gone", day(2), models.AttendanceStatusPresent),
		singleRecord("a5", "", day(3), models.AttendanceStatusPresent),
		singleRecord("a6", "gone", day(3), models.AttendanceStatusAbsent),
	}

	summary := Summarize(teachers, records)
	var sum int64
	for i := range teachers {
		sum += AccumulateEarnings(teachers[i].ID, records, &teachers[i]).Total
	}
	assert.Equal(t, sum, summary.Total)
	assert.Equal(t, int64(39000), summary.Total)
	assert.Equal(t, summary.Total, SchoolWideTotal(teachers, records))

	require.Len(t, summary.Unassigned, 2)
	assert.Equal(t, "a5", summary.Unassigned[0].RecordID)
	for _, line := range summary.Unassigned {
		assert.False(t, line.Configured)
		assert.Zero(t, line.Amount)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	summary := Summarize(nil, nil)
	assert.Zero(t, summary.Total)
	assert.Empty(t, summary.Teachers)
	assert.Empty(t, summary.Unassigned)
}

func ptr[T any](v T) *T {
	return &v
}
