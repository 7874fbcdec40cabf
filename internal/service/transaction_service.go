package service

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/models"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type transactionRepository interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, int, error)
	Create(ctx context.Context, tx *models.Transaction) error
	Summary(ctx context.Context, filter models.TransactionFilter) (*models.CashSummary, error)
}

type transactionRemover interface {
	RemoveTransaction(ctx context.Context, id string) (*models.Transaction, *models.Student, error)
}

// TransactionRequest is a manual cash movement. Student payments go through
// the billing endpoints so balances stay in sync.
type TransactionRequest struct {
	Date        *time.Time             `json:"date"`
	Type        models.TransactionType `json:"type" validate:"required,oneof=income expense"`
	Amount      int64                  `json:"amount" validate:"gt=0"`
	Category    string                 `json:"category" validate:"required,max=80"`
	Description string                 `json:"description" validate:"max=255"`
}

// TransactionService manages the academy cash flow.
type TransactionService struct {
	repo      transactionRepository
	remover   transactionRemover
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTransactionService constructs the cash flow service.
func NewTransactionService(repo transactionRepository, remover transactionRemover, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *TransactionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TransactionService{repo: repo, remover: remover, cache: cache, validator: validate, logger: logger}
}

// List returns movements newest first.
func (s *TransactionService) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, *models.Pagination, error) {
	if err := validateTransactionFilter(filter); err != nil {
		return nil, nil, err
	}
	txs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list transactions")
	}
	return txs, newPagination(filter.Page, filter.PageSize, total), nil
}

// Create records a manual income or expense.
func (s *TransactionService) Create(ctx context.Context, req TransactionRequest) (*models.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid transaction payload")
	}
	tx := &models.Transaction{
		Type:        req.Type,
		Amount:      req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Description: strings.TrimSpace(req.Description),
	}
	if req.Date != nil {
		tx.Date = req.Date.UTC()
	}
	if err := s.repo.Create(ctx, tx); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create transaction")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("transaction created", zap.String("transaction_id", tx.ID), zap.String("type", string(tx.Type)), zap.Int64("amount", tx.Amount))
	return tx, nil
}

// Summary totals income and expense with the net difference.
func (s *TransactionService) Summary(ctx context.Context, filter models.TransactionFilter) (*models.CashSummary, error) {
	if err := validateTransactionFilter(filter); err != nil {
		return nil, err
	}
	summary, err := s.repo.Summary(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to summarize transactions")
	}
	summary.Net = summary.Income - summary.Expense
	return summary, nil
}

// Delete removes a movement, restoring debt for student payments.
func (s *TransactionService) Delete(ctx context.Context, id string) (*models.Student, error) {
	_, student, err := s.remover.RemoveTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	return student, nil
}

func validateTransactionFilter(filter models.TransactionFilter) error {
	if filter.Type != nil && !filter.Type.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "unknown transaction type")
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return appErrors.Clone(appErrors.ErrValidation, "date_to must not be before date_from")
	}
	return nil
}
