package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type backupStudentSource interface {
	ListAll(ctx context.Context) ([]models.Student, error)
}

type backupEnrollmentSource interface {
	ListAll(ctx context.Context) (map[string][]models.Enrollment, error)
}

type backupTransactionSource interface {
	ListAll(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error)
}

type backupRestorer interface {
	Restore(ctx context.Context, backup *models.Backup) error
}

type settingsReader interface {
	Get(ctx context.Context) (*models.SchoolSettings, error)
}

// BackupServiceParams groups constructor dependencies.
type BackupServiceParams struct {
	Students     backupStudentSource
	Enrollments  backupEnrollmentSource
	Teachers     teacherCounter
	Attendance   attendanceLister
	Transactions backupTransactionSource
	Tariffs      tariffReader
	Settings     settingsReader
	Restorer     backupRestorer
	Cache        *CacheService
	Logger       *zap.Logger
}

// BackupService exports and restores the full academy state.
type BackupService struct {
	students     backupStudentSource
	enrollments  backupEnrollmentSource
	teachers     teacherCounter
	attendance   attendanceLister
	transactions backupTransactionSource
	tariffs      tariffReader
	settings     settingsReader
	restorer     backupRestorer
	cache        *CacheService
	logger       *zap.Logger
	now          func() time.Time
}

// NewBackupService constructs the backup service.
func NewBackupService(params BackupServiceParams) *BackupService {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{
		students:     params.Students,
		enrollments:  params.Enrollments,
		teachers:     params.Teachers,
		attendance:   params.Attendance,
		transactions: params.Transactions,
		tariffs:      params.Tariffs,
		settings:     params.Settings,
		restorer:     params.Restorer,
		cache:        params.Cache,
		logger:       logger,
		now:          time.Now,
	}
}

// Export assembles the backup document.
func (s *BackupService) Export(ctx context.Context) (*models.Backup, error) {
	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export students")
	}
	enrollments, err := s.enrollments.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export enrollments")
	}
	teachers, err := s.teachers.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export teachers")
	}
	attendance, err := s.attendance.List(ctx, models.AttendanceFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export attendance")
	}
	transactions, err := s.transactions.ListAll(ctx, models.TransactionFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export transactions")
	}
	tariffs, err := s.tariffs.Get(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	backup := &models.Backup{
		Version:      models.BackupVersion,
		ExportDate:   s.now().UTC(),
		Students:     make([]models.StudentDetail, 0, len(students)),
		Teachers:     teachers,
		Attendance:   attendance,
		Transactions: transactions,
		Prices:       &tariffs.Table,
		Settings:     settings,
	}
	for _, student := range students {
		list := enrollments[student.ID]
		if list == nil {
			list = []models.Enrollment{}
		}
		backup.Students = append(backup.Students, models.StudentDetail{Student: student, Enrollments: list})
	}
	if backup.Teachers == nil {
		backup.Teachers = []models.Teacher{}
	}
	if backup.Attendance == nil {
		backup.Attendance = []models.AttendanceRecord{}
	}
	if backup.Transactions == nil {
		backup.Transactions = []models.Transaction{}
	}
	s.logger.Info("backup exported",
		zap.Int("students", len(backup.Students)),
		zap.Int("teachers", len(backup.Teachers)),
		zap.Int("attendance", len(backup.Attendance)),
		zap.Int("transactions", len(backup.Transactions)),
	)
	return backup, nil
}

// Import replaces the academy state with backup. Nothing changes when the
// document is rejected or the restore fails.
func (s *BackupService) Import(ctx context.Context, backup *models.Backup) error {
	if backup == nil || backup.Students == nil {
		return appErrors.Clone(appErrors.ErrValidation, "backup must contain a students list")
	}
	if backup.Version != "" && !strings.HasPrefix(backup.Version, "1.") {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported backup version %q", backup.Version))
	}
	dropped, err := s.normalize(backup)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if err := s.restorer.Restore(ctx, backup); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore backup")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("backup restored",
		zap.String("version", backup.Version),
		zap.Int("students", len(backup.Students)),
		zap.Int("teachers", len(backup.Teachers)),
		zap.Int("dropped_attendance", dropped),
	)
	return nil
}

// normalize fills defaults, rejects invalid rows and detaches references to
// records the backup does not contain. It returns the number of attendance
// records dropped because their student is missing.
func (s *BackupService) normalize(backup *models.Backup) (int, error) {
	now := s.now().UTC()
	teacherIDs := make(map[string]struct{}, len(backup.Teachers))
	for i := range backup.Teachers {
		teacher := &backup.Teachers[i]
		if teacher.ID == "" {
			teacher.ID = uuid.NewString()
		}
		if _, dup := teacherIDs[teacher.ID]; dup {
			return 0, fmt.Errorf("duplicate teacher id %s", teacher.ID)
		}
		teacherIDs[teacher.ID] = struct{}{}
		if teacher.Status == "" {
			teacher.Status = models.TeacherStatusActive
		}
		if teacher.Rates == nil {
			teacher.Rates = pricing.RateTable{}
		}
		if err := teacher.Rates.Validate(); err != nil {
			return 0, fmt.Errorf("teacher %s: %w", teacher.ID, err)
		}
		stampTimes(&teacher.CreatedAt, &teacher.UpdatedAt, now)
	}

	studentIDs := make(map[string]struct{}, len(backup.Students))
	for i := range backup.Students {
		detail := &backup.Students[i]
		if detail.ID == "" {
			detail.ID = uuid.NewString()
		}
		if _, dup := studentIDs[detail.ID]; dup {
			return 0, fmt.Errorf("duplicate student id %s", detail.ID)
		}
		studentIDs[detail.ID] = struct{}{}
		if detail.Status == "" {
			detail.Status = models.StudentStatusActive
		}
		if !detail.Status.Valid() {
			return 0, fmt.Errorf("student %s: unknown status %q", detail.ID, detail.Status)
		}
		if detail.TeacherID != nil {
			if _, ok := teacherIDs[*detail.TeacherID]; !ok {
				detail.TeacherID = nil
			}
		}
		stampTimes(&detail.CreatedAt, &detail.UpdatedAt, now)
		for j := range detail.Enrollments {
			enrollment := &detail.Enrollments[j]
			if enrollment.ID == "" {
				enrollment.ID = uuid.NewString()
			}
			enrollment.StudentID = detail.ID
			if enrollment.Date.IsZero() {
				enrollment.Date = now
			}
			if enrollment.Price < 0 || enrollment.RegistrationFee < 0 {
				return 0, fmt.Errorf("enrollment %s: negative amount", enrollment.ID)
			}
		}
	}

	dropped := 0
	kept := backup.Attendance[:0]
	for _, record := range backup.Attendance {
		if _, ok := studentIDs[record.StudentID]; !ok {
			dropped++
			continue
		}
		if record.ID == "" {
			record.ID = uuid.NewString()
		}
		if !record.Status.Valid() {
			return 0, fmt.Errorf("attendance %s: unknown status %q", record.ID, record.Status)
		}
		stampTimes(&record.CreatedAt, &record.UpdatedAt, now)
		kept = append(kept, record)
	}
	backup.Attendance = kept

	for i := range backup.Transactions {
		tx := &backup.Transactions[i]
		if tx.ID == "" {
			tx.ID = uuid.NewString()
		}
		if !tx.Type.Valid() {
			return 0, fmt.Errorf("transaction %s: unknown type %q", tx.ID, tx.Type)
		}
		if tx.Amount < 0 {
			return 0, fmt.Errorf("transaction %s: negative amount", tx.ID)
		}
		if tx.Date.IsZero() {
			tx.Date = now
		}
		if tx.CreatedAt.IsZero() {
			tx.CreatedAt = now
		}
	}

	if backup.Prices != nil {
		if err := backup.Prices.Validate(); err != nil {
			return 0, err
		}
	}
	if backup.Settings != nil && strings.TrimSpace(backup.Settings.Name) == "" {
		backup.Settings.Name = models.DefaultSchoolName
	}
	return dropped, nil
}

func stampTimes(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}
	if updated.IsZero() {
		*updated = *created
	}
}
