package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/models"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

const dashboardCacheKey = dashboardCachePrefix + "summary"

type studentStats interface {
	Counts(ctx context.Context) (*models.StudentCounts, error)
	CriticalAbsences(ctx context.Context, threshold int) ([]models.CriticalAbsence, error)
}

type modalityCounter interface {
	ModalityBreakdown(ctx context.Context) ([]models.ModalityShare, error)
}

type cashSummarizer interface {
	Summary(ctx context.Context, filter models.TransactionFilter) (*models.CashSummary, error)
}

type teacherCounter interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
}

type payrollTotaler interface {
	Total(ctx context.Context) (int64, error)
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Students    studentStats
	Enrollments modalityCounter
	Cash        cashSummarizer
	Teachers    teacherCounter
	Payroll     payrollTotaler
	Cache       *CacheService
	CacheTTL    time.Duration
	Logger      *zap.Logger
}

// DashboardService composes the administrator home page.
type DashboardService struct {
	students    studentStats
	enrollments modalityCounter
	cash        cashSummarizer
	teachers    teacherCounter
	payroll     payrollTotaler
	cache       *CacheService
	ttl         time.Duration
	logger      *zap.Logger
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	ttl := params.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		students:    params.Students,
		enrollments: params.Enrollments,
		cash:        params.Cash,
		teachers:    params.Teachers,
		payroll:     params.Payroll,
		cache:       params.Cache,
		ttl:         ttl,
		logger:      logger,
	}
}

// Summary returns the dashboard and indicates cache utilisation.
func (s *DashboardService) Summary(ctx context.Context) (*models.DashboardSummary, bool, error) {
	if s.cache != nil {
		var cached models.DashboardSummary
		if hit, err := s.cache.Get(ctx, dashboardCacheKey, &cached); err == nil && hit {
			return &cached, true, nil
		}
	}

	summary, err := s.compose(ctx)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, summary, s.ttl); err != nil {
			s.logger.Warn("dashboard cache write failed", zap.Error(err))
		}
	}
	return summary, false, nil
}

func (s *DashboardService) compose(ctx context.Context) (*models.DashboardSummary, error) {
	counts, err := s.students.Counts(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count students")
	}
	critical, err := s.students.CriticalAbsences(ctx, models.CriticalAbsenceThreshold)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load critical absences")
	}
	shares, err := s.enrollments.ModalityBreakdown(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load modality breakdown")
	}
	cash, err := s.cash.Summary(ctx, models.TransactionFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize cash flow")
	}
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count teachers")
	}
	payrollTotal, err := s.payroll.Total(ctx)
	if err != nil {
		return nil, err
	}

	if critical == nil {
		critical = []models.CriticalAbsence{}
	}
	if shares == nil {
		shares = []models.ModalityShare{}
	}
	for i := range shares {
		shares[i].Label = shares[i].Category.Label()
	}
	cash.Net = cash.Income - cash.Expense

	return &models.DashboardSummary{
		ActiveStudents:    counts.Active,
		InactiveStudents:  counts.Inactive,
		TotalDebt:         counts.TotalDebt,
		CriticalAbsences:  critical,
		ModalityBreakdown: shares,
		Cash:              *cash,
		PayrollTotal:      payrollTotal,
		Teachers:          len(teachers),
	}, nil
}
