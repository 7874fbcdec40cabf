package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/models"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentEnrollmentReader interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.Enrollment, error)
}

type teacherFinder interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// StudentRequest holds the editable profile of a student.
type StudentRequest struct {
	FirstName        string                `json:"first_name" validate:"required,max=80"`
	LastName         string                `json:"last_name" validate:"max=80"`
	Age              int                   `json:"age" validate:"gte=0,lte=120"`
	Instrument       string                `json:"instrument" validate:"max=80"`
	TeacherID        *string               `json:"teacher_id"`
	Phone            string                `json:"phone" validate:"max=40"`
	Email            string                `json:"email" validate:"omitempty,email"`
	Status           *models.StudentStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	Notes            string                `json:"notes" validate:"max=2000"`
	FatherName       *string               `json:"father_name" validate:"omitempty,max=120"`
	FatherPhone      *string               `json:"father_phone" validate:"omitempty,max=40"`
	MotherName       *string               `json:"mother_name" validate:"omitempty,max=120"`
	MotherPhone      *string               `json:"mother_phone" validate:"omitempty,max=40"`
	ResponsibleName  *string               `json:"responsible_name" validate:"omitempty,max=120"`
	ResponsiblePhone *string               `json:"responsible_phone" validate:"omitempty,max=40"`
}

// StudentService handles student use-cases.
type StudentService struct {
	repo        studentRepository
	enrollments studentEnrollmentReader
	teachers    teacherFinder
	cache       *CacheService
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo studentRepository, enrollments studentEnrollmentReader, teachers teacherFinder, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, enrollments: enrollments, teachers: teachers, cache: cache, validator: validate, logger: logger}
}

// List returns students and pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown student status")
	}
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a student with their enrollment history.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	enrollments, err := s.enrollments.ListByStudent(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollments")
	}
	if enrollments == nil {
		enrollments = []models.Enrollment{}
	}
	return &models.StudentDetail{Student: *student, Enrollments: enrollments}, nil
}

// Create registers a new student with a zero balance.
func (s *StudentService) Create(ctx context.Context, req StudentRequest) (*models.Student, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	student := &models.Student{Status: models.StudentStatusActive}
	applyStudentRequest(student, req)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("student created", zap.String("student_id", student.ID))
	return student, nil
}

// Update modifies a student's profile. Balance and absence streak are kept.
func (s *StudentService) Update(ctx context.Context, id string, req StudentRequest) (*models.Student, error) {
	if err := s.validate(ctx, req); err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to load student")
	}
	applyStudentRequest(student, req)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	s.cache.InvalidateDerived(ctx)
	return student, nil
}

// Delete removes a student together with enrollments and attendance.
// Payments stay in the cash flow.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "student not found", "failed to delete student")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("student deleted", zap.String("student_id", id))
	return nil
}

func (s *StudentService) validate(ctx context.Context, req StudentRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if req.TeacherID == nil || *req.TeacherID == "" {
		return nil
	}
	if _, err := s.teachers.FindByID(ctx, *req.TeacherID); err != nil {
		if isNotFound(err) {
			return appErrors.Clone(appErrors.ErrValidation, "assigned teacher does not exist")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return nil
}

func applyStudentRequest(student *models.Student, req StudentRequest) {
	student.FirstName = strings.TrimSpace(req.FirstName)
	student.LastName = strings.TrimSpace(req.LastName)
	student.Age = req.Age
	student.Instrument = strings.TrimSpace(req.Instrument)
	student.TeacherID = nil
	if req.TeacherID != nil && *req.TeacherID != "" {
		teacherID := *req.TeacherID
		student.TeacherID = &teacherID
	}
	student.Phone = strings.TrimSpace(req.Phone)
	student.Email = strings.TrimSpace(req.Email)
	if req.Status != nil {
		student.Status = *req.Status
	}
	student.Notes = req.Notes
	student.FatherName = req.FatherName
	student.FatherPhone = req.FatherPhone
	student.MotherName = req.MotherName
	student.MotherPhone = req.MotherPhone
	student.ResponsibleName = req.ResponsibleName
	student.ResponsiblePhone = req.ResponsiblePhone
}
