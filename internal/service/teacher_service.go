package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type teacherRepository interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	Update(ctx context.Context, teacher *models.Teacher) error
	UpdateRates(ctx context.Context, id string, mutate func(pricing.RateTable) (pricing.RateTable, error)) (*models.Teacher, error)
	Delete(ctx context.Context, id string) error
}

// TeacherRequest describes the editable profile of a teacher.
type TeacherRequest struct {
	Name       string                `json:"name" validate:"required,max=120"`
	Instrument string                `json:"instrument" validate:"max=80"`
	Phone      *string               `json:"phone" validate:"omitempty,max=40"`
	Email      *string               `json:"email" validate:"omitempty,email"`
	Status     *models.TeacherStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	Rates      pricing.RateTable     `json:"rates"`
}

// RatesRequest replaces or merges a teacher's rate table.
type RatesRequest struct {
	Rates pricing.RateTable `json:"rates" validate:"required"`
	Merge bool              `json:"merge"`
}

// TeacherService exposes teacher management use-cases.
type TeacherService struct {
	repo      teacherRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTeacherService builds a TeacherService instance.
func NewTeacherService(repo teacherRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{repo: repo, cache: cache, validator: validate, logger: logger}
}

// List returns teachers with pagination metadata.
func (s *TeacherService) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	teachers, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, newPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns a teacher by id.
func (s *TeacherService) Get(ctx context.Context, id string) (*models.Teacher, error) {
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher not found", "failed to load teacher")
	}
	return teacher, nil
}

// Create registers a new teacher. Initial rates are optional.
func (s *TeacherService) Create(ctx context.Context, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	if err := req.Rates.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	teacher := &models.Teacher{Status: models.TeacherStatusActive, Rates: req.Rates.Clone()}
	applyTeacherRequest(teacher, req)
	if err := s.repo.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID))
	return teacher, nil
}

// Update modifies the teacher profile. Rates in the request are ignored.
func (s *TeacherService) Update(ctx context.Context, id string, req TeacherRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	teacher, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "teacher not found", "failed to load teacher")
	}
	applyTeacherRequest(teacher, req)
	if err := s.repo.Update(ctx, teacher); err != nil {
		return nil, lookupError(err, "teacher not found", "failed to update teacher")
	}
	s.cache.InvalidateDerived(ctx)
	return teacher, nil
}

// UpdateRates validates every key and stores the new rate table under a row lock.
func (s *TeacherService) UpdateRates(ctx context.Context, id string, req RatesRequest) (*models.Teacher, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid rates payload")
	}
	if err := req.Rates.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	teacher, err := s.repo.UpdateRates(ctx, id, func(current pricing.RateTable) (pricing.RateTable, error) {
		if !req.Merge {
			return req.Rates.Clone(), nil
		}
		if current == nil {
			current = pricing.RateTable{}
		}
		for key, amount := range req.Rates {
			current[key] = amount
		}
		return current, nil
	})
	if err != nil {
		return nil, lookupError(err, "teacher not found", "failed to update rates")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("teacher rates updated", zap.String("teacher_id", id), zap.Int("rates", len(teacher.Rates)))
	return teacher, nil
}

// Delete removes a teacher. Their attendance history stays and shows up as
// unassigned in payroll; assigned students lose the assignment.
func (s *TeacherService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return lookupError(err, "teacher not found", "failed to delete teacher")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("teacher deleted", zap.String("teacher_id", id))
	return nil
}

func applyTeacherRequest(teacher *models.Teacher, req TeacherRequest) {
	teacher.Name = strings.TrimSpace(req.Name)
	teacher.Instrument = strings.TrimSpace(req.Instrument)
	teacher.Phone = req.Phone
	teacher.Email = req.Email
	if req.Status != nil {
		teacher.Status = *req.Status
	}
}
