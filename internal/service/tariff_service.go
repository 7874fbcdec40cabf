package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type tariffRepository interface {
	Get(ctx context.Context) (*models.TariffSnapshot, error)
	Seed(ctx context.Context, table pricing.TariffTable) error
	Update(ctx context.Context, mutate func(pricing.TariffTable) (pricing.TariffTable, error)) (*models.TariffSnapshot, error)
}

var minAdjustmentPercent = decimal.NewFromInt(-100)

// QuoteRequest prices a configuration, optionally with the registration fee.
type QuoteRequest struct {
	Configuration       pricing.ClassConfiguration `json:"configuration"`
	IncludeRegistration bool                       `json:"include_registration"`
	Household           pricing.Household          `json:"household" validate:"omitempty,oneof=INDIVIDUAL FAMILIAR"`
}

// Quote is the price breakdown of a configuration.
type Quote struct {
	Key             pricing.Key `json:"key"`
	Price           int64       `json:"price"`
	RegistrationFee int64       `json:"registration_fee"`
	Total           int64       `json:"total"`
}

// CellUpdateRequest sets one tariff cell.
type CellUpdateRequest struct {
	Path  string `json:"path" validate:"required"`
	Price int64  `json:"price" validate:"gte=0"`
}

// AdjustRequest scales every cell by Percent (10 means +10%).
type AdjustRequest struct {
	Percent decimal.Decimal `json:"percent"`
}

// TariffService reads and edits the tariff table.
type TariffService struct {
	repo      tariffRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTariffService constructs the tariff service.
func NewTariffService(repo tariffRepository, validate *validator.Validate, logger *zap.Logger) *TariffService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TariffService{repo: repo, validator: validate, logger: logger}
}

// Get returns the current table, seeding the defaults on first use.
func (s *TariffService) Get(ctx context.Context) (*models.TariffSnapshot, error) {
	snapshot, err := s.repo.Get(ctx)
	if err == nil {
		return snapshot, nil
	}
	if !isNotFound(err) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tariffs")
	}
	if err := s.repo.Seed(ctx, pricing.DefaultTariffTable()); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed tariffs")
	}
	s.logger.Info("tariff table seeded with defaults")
	snapshot, err = s.repo.Get(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load tariffs")
	}
	return snapshot, nil
}

// Keys lists every composite rate key.
func (s *TariffService) Keys() []pricing.Key {
	return pricing.AllKeys()
}

// Quote prices a configuration against the current table.
func (s *TariffService) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid quote payload")
	}
	snapshot, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	return quoteFor(req.Configuration, snapshot.Table, req.IncludeRegistration, req.Household)
}

// UpdateCell edits one cell of the table.
func (s *TariffService) UpdateCell(ctx context.Context, req CellUpdateRequest) (*models.TariffSnapshot, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid tariff cell payload")
	}
	if _, err := s.Get(ctx); err != nil {
		return nil, err
	}
	snapshot, err := s.repo.Update(ctx, func(table pricing.TariffTable) (pricing.TariffTable, error) {
		return table.WithCell(req.Path, req.Price)
	})
	if err != nil {
		return nil, tariffError(err, "failed to update tariff cell")
	}
	s.logger.Info("tariff cell updated", zap.String("path", req.Path), zap.Int64("price", req.Price))
	return snapshot, nil
}

// Adjust applies a bulk percentage to every cell. Cells pushed below zero are
// clamped and reported in the log.
func (s *TariffService) Adjust(ctx context.Context, req AdjustRequest) (*models.TariffSnapshot, error) {
	if req.Percent.LessThan(minAdjustmentPercent) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "percent must not be below -100")
	}
	if _, err := s.Get(ctx); err != nil {
		return nil, err
	}
	var clamped []string
	snapshot, err := s.repo.Update(ctx, func(table pricing.TariffTable) (pricing.TariffTable, error) {
		adjusted := pricing.ApplyBulkAdjustment(table, req.Percent)
		before := table.Leaves()
		for i, leaf := range adjusted.Leaves() {
			if leaf.Price == 0 && before[i].Price > 0 {
				clamped = append(clamped, leaf.Path)
			}
		}
		return adjusted, nil
	})
	if err != nil {
		return nil, tariffError(err, "failed to adjust tariffs")
	}
	if len(clamped) > 0 {
		s.logger.Warn("tariff cells clamped to zero", zap.String("percent", req.Percent.String()), zap.Strings("paths", clamped))
	}
	s.logger.Info("tariffs adjusted", zap.String("percent", req.Percent.String()))
	return snapshot, nil
}

func quoteFor(cfg pricing.ClassConfiguration, table pricing.TariffTable, includeRegistration bool, household pricing.Household) (*Quote, error) {
	cfg = cfg.Normalize()
	price, err := pricing.PriceFor(cfg, table)
	if err != nil {
		return nil, tariffError(err, "failed to price configuration")
	}
	key, _ := pricing.ConfigKey(cfg)
	total := pricing.AddRegistrationFee(price, includeRegistration, table.Registration, household)
	return &Quote{Key: key, Price: price, RegistrationFee: total - price, Total: total}, nil
}

// tariffError maps pricing sentinel errors to validation errors.
func tariffError(err error, internalMsg string) error {
	switch {
	case errors.Is(err, pricing.ErrInvalidConfiguration),
		errors.Is(err, pricing.ErrMissingTariff),
		errors.Is(err, pricing.ErrUnknownCell),
		errors.Is(err, pricing.ErrNegativePrice):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	case isNotFound(err):
		return appErrors.Clone(appErrors.ErrNotFound, "tariff table not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, internalMsg)
}
