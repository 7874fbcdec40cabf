package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type attendanceKey struct {
	studentID string
	date      time.Time
	modality  pricing.Category
}

type mockAttendanceRepo struct {
	records map[attendanceKey]models.AttendanceRecord
	order   []attendanceKey
	streaks map[string]int
}

func newMockAttendanceRepo(studentIDs ...string) *mockAttendanceRepo {
	repo := &mockAttendanceRepo{records: map[attendanceKey]models.AttendanceRecord{}, streaks: map[string]int{}}
	for _, id := range studentIDs {
		repo.streaks[id] = 0
	}
	return repo
}

func (m *mockAttendanceRepo) Mark(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceMark, error) {
	streak, ok := m.streaks[record.StudentID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	key := attendanceKey{record.StudentID, record.Date, record.Modality}
	existing, found := m.records[key]
	var previous *models.AttendanceStatus
	if found {
		status := existing.Status
		previous = &status
		existing.Status = record.Status
		record = existing
	} else {
		record.ID = record.StudentID + "-" + record.Date.Format(attendanceDateLayout)
		m.order = append(m.order, key)
	}
	m.records[key] = record
	streak = models.NextConsecutiveAbsences(streak, previous, record.Status)
	m.streaks[record.StudentID] = streak
	return &models.AttendanceMark{Record: record, Created: !found, ConsecutiveAbsences: streak}, nil
}

func (m *mockAttendanceRepo) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, key := range m.order {
		record := m.records[key]
		if filter.TeacherID != "" && record.TeacherID != filter.TeacherID {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func newAttendanceServiceForTest(repo *mockAttendanceRepo) *AttendanceService {
	enrollments := &mockEnrollmentReader{latest: map[pricing.Category]models.Enrollment{
		pricing.CategorySingleClass: {ID: "e1", Category: pricing.CategorySingleClass, ClassType: ptrTo(pricing.TypeIndividual), Duration: ptrTo(pricing.Duration30), EarlyPay: true},
	}}
	teachers := &mockTeacherFinder{teachers: map[string]models.Teacher{"t1": {ID: "t1"}, "t2": {ID: "t2"}}}
	return NewAttendanceService(repo, enrollments, teachers, nil, NewMetricsService(), nil, nil)
}

func TestAttendanceServiceMarkSnapshotsEnrollment(t *testing.T) {
	repo := newMockAttendanceRepo("s1")
	svc := newAttendanceServiceForTest(repo)

	mark, err := svc.Mark(context.Background(), MarkAttendanceRequest{StudentID: "s1", TeacherID: "t1", Date: "2024-03-04", Status: models.AttendanceStatusPresent, Modality: pricing.CategorySingleClass})
	require.NoError(t, err)
	assert.True(t, mark.Created)
	assert.Equal(t, pricing.TypeIndividual, *mark.Record.ClassType)
	assert.Equal(t, pricing.Duration30, *mark.Record.Duration)
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), mark.Record.Date)

	key, ok := pricing.ConfigKey(mark.Record.Configuration())
	require.True(t, ok)
	assert.Equal(t, pricing.Key("SUELTA_INDIVIDUAL_30 min"), key)
}

func TestAttendanceServiceAbsenceStreak(t *testing.T) {
	repo := newMockAttendanceRepo("s1")
	svc := newAttendanceServiceForTest(repo)
	ctx := context.Background()

	absent := func(date string) *models.AttendanceMark {
		mark, err := svc.Mark(ctx, MarkAttendanceRequest{StudentID: "s1", TeacherID: "t1", Date: date, Status: models.AttendanceStatusAbsent, Modality: pricing.CategorySingleClass})
		require.NoError(t, err)
		return mark
	}

	assert.Equal(t, 1, absent("2024-03-04").ConsecutiveAbsences)
	assert.Equal(t, 2, absent("2024-03-05").ConsecutiveAbsences)

	remark := absent("2024-03-05")
	assert.False(t, remark.Created)
	assert.Equal(t, 2, remark.ConsecutiveAbsences)

	mark, err := svc.Mark(ctx, MarkAttendanceRequest{StudentID: "s1", TeacherID: "t2", Date: "2024-03-05", Status: models.AttendanceStatusPresent, Modality: pricing.CategorySingleClass})
	require.NoError(t, err)
	assert.Equal(t, 0, mark.ConsecutiveAbsences)
	assert.Equal(t, "t1", mark.Record.TeacherID, "re-marking keeps the original teacher")
}

func TestAttendanceServiceMarkValidation(t *testing.T) {
	svc := newAttendanceServiceForTest(newMockAttendanceRepo("s1"))
	ctx := context.Background()
	base := MarkAttendanceRequest{StudentID: "s1", TeacherID: "t1", Date: "2024-03-04", Status: models.AttendanceStatusPresent, Modality: pricing.CategoryPractice}

	req := base
	req.TeacherID = ""
	_, err := svc.Mark(ctx, req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = base
	req.TeacherID = "ghost"
	_, err = svc.Mark(ctx, req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = base
	req.Date = "04/03/2024"
	_, err = svc.Mark(ctx, req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = base
	req.Modality = "YOGA"
	_, err = svc.Mark(ctx, req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = base
	cfg := pricing.Single(pricing.TypeDuo, pricing.Duration30)
	req.Configuration = &cfg
	_, err = svc.Mark(ctx, req)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	req = base
	req.StudentID = "ghost"
	_, err = svc.Mark(ctx, req)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAttendanceServiceExplicitConfiguration(t *testing.T) {
	svc := newAttendanceServiceForTest(newMockAttendanceRepo("s1"))

	cfg := pricing.Practice(pricing.Duration45)
	mark, err := svc.Mark(context.Background(), MarkAttendanceRequest{StudentID: "s1", TeacherID: "t1", Date: "2024-03-04", Status: models.AttendanceStatusPresent, Modality: pricing.CategoryPractice, Configuration: &cfg})
	require.NoError(t, err)
	assert.Equal(t, pricing.Duration45, *mark.Record.Duration)
	assert.Nil(t, mark.Record.ClassType)
}

func TestAttendanceServiceList(t *testing.T) {
	repo := newMockAttendanceRepo("s1")
	svc := newAttendanceServiceForTest(repo)

	records, err := svc.List(context.Background(), models.AttendanceFilter{TeacherID: "t1"})
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)

	bad := models.AttendanceStatus("late")
	_, err = svc.List(context.Background(), models.AttendanceFilter{Status: &bad})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func ptrTo[T any](v T) *T {
	return &v
}
