package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/models"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type configurationRepository interface {
	ListByKeys(ctx context.Context, keys []string) ([]models.Configuration, error)
	BulkUpsert(ctx context.Context, cfgs []models.Configuration) error
}

var settingKeys = []string{models.SettingSchoolName, models.SettingSchoolLogoURL}

// SettingsService reads and writes the school branding.
type SettingsService struct {
	repo      configurationRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSettingsService constructs the settings service.
func NewSettingsService(repo configurationRepository, validate *validator.Validate, logger *zap.Logger) *SettingsService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SettingsService{repo: repo, validator: validate, logger: logger}
}

// Get returns the stored settings, defaulting the school name.
func (s *SettingsService) Get(ctx context.Context) (*models.SchoolSettings, error) {
	cfgs, err := s.repo.ListByKeys(ctx, settingKeys)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load settings")
	}
	settings := models.SettingsFromConfigurations(cfgs)
	return &settings, nil
}

// Update replaces the settings.
func (s *SettingsService) Update(ctx context.Context, req models.SchoolSettings) (*models.SchoolSettings, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.LogoURL != nil && strings.TrimSpace(*req.LogoURL) == "" {
		req.LogoURL = nil
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid settings payload")
	}
	if err := s.repo.BulkUpsert(ctx, models.SettingsConfigurations(req)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save settings")
	}
	s.logger.Info("school settings updated", zap.String("name", req.Name))
	return &req, nil
}
