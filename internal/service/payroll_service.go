package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/payroll"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type teacherLister interface {
	ListAll(ctx context.Context) ([]models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

type attendanceLister interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

// PayrollPeriod limits payroll to attendance dated within the bounds.
type PayrollPeriod struct {
	From *time.Time
	To   *time.Time
}

func (p PayrollPeriod) cacheKey() string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(attendanceDateLayout)
	}
	return format(p.From) + ":" + format(p.To)
}

// PayrollService computes teacher earnings from attendance.
type PayrollService struct {
	teachers   teacherLister
	attendance attendanceLister
	cache      *CacheService
	metrics    *MetricsService
	ttl        time.Duration
	logger     *zap.Logger
}

// NewPayrollService constructs the payroll service.
func NewPayrollService(teachers teacherLister, attendance attendanceLister, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *PayrollService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PayrollService{teachers: teachers, attendance: attendance, cache: cache, metrics: metrics, ttl: ttl, logger: logger}
}

// Summary returns the school-wide payroll and whether it was served from cache.
func (s *PayrollService) Summary(ctx context.Context, period PayrollPeriod) (*payroll.Summary, bool, error) {
	if err := period.validate(); err != nil {
		return nil, false, err
	}
	key := payrollCachePrefix + "summary:" + period.cacheKey()
	var cached payroll.Summary
	if s.fromCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{DateFrom: period.From, DateTo: period.To})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	summary := payroll.Summarize(teachers, records)
	if len(summary.Unassigned) > 0 {
		s.logger.Debug("attendance without a known teacher", zap.Int("records", len(summary.Unassigned)))
	}
	if period.From == nil && period.To == nil {
		s.metrics.SetPayrollTotal(summary.Total)
	}
	s.toCache(ctx, key, summary)
	return &summary, false, nil
}

// TeacherEarnings returns one teacher's earnings and whether it was cached.
func (s *PayrollService) TeacherEarnings(ctx context.Context, teacherID string, period PayrollPeriod) (*payroll.Earnings, bool, error) {
	if err := period.validate(); err != nil {
		return nil, false, err
	}
	key := fmt.Sprintf("%steacher:%s:%s", payrollCachePrefix, teacherID, period.cacheKey())
	var cached payroll.Earnings
	if s.fromCache(ctx, key, &cached) {
		return &cached, true, nil
	}

	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		return nil, false, lookupError(err, "teacher not found", "failed to load teacher")
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{TeacherID: teacherID, DateFrom: period.From, DateTo: period.To})
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attendance")
	}
	earnings := payroll.AccumulateEarnings(teacherID, records, teacher)
	s.toCache(ctx, key, earnings)
	return &earnings, false, nil
}

// Total is the school-wide payroll over all recorded attendance.
func (s *PayrollService) Total(ctx context.Context) (int64, error) {
	summary, _, err := s.Summary(ctx, PayrollPeriod{})
	if err != nil {
		return 0, err
	}
	return summary.Total, nil
}

func (p PayrollPeriod) validate() error {
	if p.From != nil && p.To != nil && p.To.Before(*p.From) {
		return appErrors.Clone(appErrors.ErrValidation, "to must not be before from")
	}
	return nil
}

func (s *PayrollService) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if s.cache == nil {
		return false
	}
	hit, err := s.cache.Get(ctx, key, dest)
	return err == nil && hit
}

func (s *PayrollService) toCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value, s.ttl); err != nil {
		s.logger.Warn("payroll cache write failed", zap.String("key", key), zap.Error(err))
	}
}
