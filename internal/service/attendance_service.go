package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

const attendanceDateLayout = "2006-01-02"

type attendanceRepository interface {
	Mark(ctx context.Context, record models.AttendanceRecord) (*models.AttendanceMark, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type latestEnrollmentFinder interface {
	LatestByCategory(ctx context.Context, studentID string, category pricing.Category) (*models.Enrollment, error)
}

// MarkAttendanceRequest marks one class for a student. The class configuration
// is copied from the student's latest enrollment of the modality unless one is
// given explicitly.
type MarkAttendanceRequest struct {
	StudentID     string                      `json:"student_id" validate:"required"`
	TeacherID     string                      `json:"teacher_id" validate:"required"`
	Date          string                      `json:"date" validate:"required,datetime=2006-01-02"`
	Status        models.AttendanceStatus     `json:"status" validate:"required,oneof=present absent"`
	Modality      pricing.Category            `json:"modality" validate:"required"`
	Configuration *pricing.ClassConfiguration `json:"configuration"`
}

// AttendanceService records attendance and keeps absence streaks current.
type AttendanceService struct {
	repo        attendanceRepository
	enrollments latestEnrollmentFinder
	teachers    teacherFinder
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewAttendanceService creates an attendance service.
func NewAttendanceService(repo attendanceRepository, enrollments latestEnrollmentFinder, teachers teacherFinder, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		repo:        repo,
		enrollments: enrollments,
		teachers:    teachers,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
	}
}

// Mark upserts the record for (student, date, modality).
func (s *AttendanceService) Mark(ctx context.Context, req MarkAttendanceRequest) (*models.AttendanceMark, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	if !req.Modality.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown modality")
	}
	date, err := time.Parse(attendanceDateLayout, req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}
	if _, err := s.teachers.FindByID(ctx, req.TeacherID); err != nil {
		if isNotFound(err) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "a registered teacher is required to take attendance")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	record := models.AttendanceRecord{
		StudentID: req.StudentID,
		TeacherID: req.TeacherID,
		Date:      date,
		Status:    req.Status,
		Modality:  req.Modality,
	}
	if err := s.snapshot(ctx, &record, req.Configuration); err != nil {
		return nil, err
	}

	mark, err := s.repo.Mark(ctx, record)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to mark attendance")
	}
	s.metrics.RecordAttendance(string(req.Status))
	s.cache.InvalidateDerived(ctx)
	if mark.ConsecutiveAbsences >= models.CriticalAbsenceThreshold {
		s.logger.Warn("student reached critical absences",
			zap.String("student_id", req.StudentID),
			zap.Int("consecutive_absences", mark.ConsecutiveAbsences),
		)
	}
	return mark, nil
}

// List returns attendance in insertion order.
func (s *AttendanceService) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown attendance status")
	}
	records, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}

func (s *AttendanceService) snapshot(ctx context.Context, record *models.AttendanceRecord, explicit *pricing.ClassConfiguration) error {
	if explicit != nil {
		cfg := explicit.Normalize()
		if cfg.Category != record.Modality {
			return appErrors.Clone(appErrors.ErrValidation, "configuration category must match the modality")
		}
		if err := cfg.Validate(); err != nil {
			return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
		record.SnapshotFrom(models.Enrollment{Category: cfg.Category, ClassType: cfg.Type, Duration: cfg.Duration, EnsembleVariant: cfg.EnsembleVariant})
		return nil
	}
	enrollment, err := s.enrollments.LatestByCategory(ctx, record.StudentID, record.Modality)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment == nil {
		s.logger.Debug("no enrollment to snapshot", zap.String("student_id", record.StudentID), zap.String("modality", string(record.Modality)))
		return nil
	}
	record.SnapshotFrom(*enrollment)
	return nil
}
