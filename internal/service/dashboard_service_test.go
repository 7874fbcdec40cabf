package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type stubStudentStats struct {
	counts        models.StudentCounts
	critical      []models.CriticalAbsence
	lastThreshold int
	calls         int
	err           error
}

func (s *stubStudentStats) Counts(ctx context.Context) (*models.StudentCounts, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	counts := s.counts
	return &counts, nil
}

func (s *stubStudentStats) CriticalAbsences(ctx context.Context, threshold int) ([]models.CriticalAbsence, error) {
	s.lastThreshold = threshold
	return s.critical, nil
}

type stubModalityCounter struct {
	shares []models.ModalityShare
}

func (s *stubModalityCounter) ModalityBreakdown(ctx context.Context) ([]models.ModalityShare, error) {
	return s.shares, nil
}

type stubPayrollTotal struct {
	total int64
}

func (s stubPayrollTotal) Total(ctx context.Context) (int64, error) {
	return s.total, nil
}

func newDashboardFixture(stats *stubStudentStats, cache *CacheService) *DashboardService {
	return NewDashboardService(DashboardServiceParams{
		Students: stats,
		Enrollments: &stubModalityCounter{shares: []models.ModalityShare{
			{Category: pricing.CategoryMonthlyCombo, Count: 4},
			{Category: pricing.CategoryPractice, Count: 1},
		}},
		Cash:     &mockTransactionRepo{summary: models.CashSummary{Income: 500000, Expense: 200000}},
		Teachers: &mockTeacherRepo{teachers: map[string]models.Teacher{"t1": {ID: "t1"}, "t2": {ID: "t2"}}},
		Payroll:  stubPayrollTotal{total: 45000},
		Cache:    cache,
		CacheTTL: time.Minute,
	})
}

func TestDashboardServiceSummary(t *testing.T) {
	stats := &stubStudentStats{
		counts:   models.StudentCounts{Active: 5, Inactive: 2, TotalDebt: 261320},
		critical: []models.CriticalAbsence{{StudentID: "s1", FirstName: "Lucia", ConsecutiveAbsences: 3}},
	}
	svc := newDashboardFixture(stats, nil)

	summary, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 5, summary.ActiveStudents)
	assert.Equal(t, 2, summary.InactiveStudents)
	assert.Equal(t, int64(261320), summary.TotalDebt)
	assert.Equal(t, models.CriticalAbsenceThreshold, stats.lastThreshold)
	require.Len(t, summary.CriticalAbsences, 1)
	assert.Equal(t, "Combo (Mes)", summary.ModalityBreakdown[0].Label)
	assert.Equal(t, int64(300000), summary.Cash.Net)
	assert.Equal(t, int64(45000), summary.PayrollTotal)
	assert.Equal(t, 2, summary.Teachers)
}

func TestDashboardServiceCachesSummary(t *testing.T) {
	stats := &stubStudentStats{counts: models.StudentCounts{Active: 1}}
	cache := NewCacheService(newMockCacheRepo(), nil, time.Minute, nil, true)
	svc := newDashboardFixture(stats, cache)

	_, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)

	summary, hit, err := svc.Summary(context.Background())
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, summary.ActiveStudents)
	assert.NotNil(t, summary.CriticalAbsences)
	assert.Equal(t, 1, stats.calls)
}

func TestDashboardServiceFailure(t *testing.T) {
	svc := newDashboardFixture(&stubStudentStats{err: errors.New("db down")}, nil)

	_, _, err := svc.Summary(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}
