package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-academy-api/internal/billing"
	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
	"github.com/noah-isme/ams-academy-api/internal/repository"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

// DefaultPaymentMethod is used when a payment does not name one.
const DefaultPaymentMethod = "Efectivo"

type billingRepository interface {
	Charge(ctx context.Context, enrollment *models.Enrollment, debtDelta int64, payment *models.Transaction) (*models.Student, error)
	RemoveEnrollment(ctx context.Context, studentID, enrollmentID string, adjust repository.DebtAdjustment) (*models.Student, *models.Enrollment, error)
	RecordPayment(ctx context.Context, payment *models.Transaction, adjust repository.DebtAdjustment) (*models.Student, error)
	RemoveTransaction(ctx context.Context, id string, adjust repository.DebtAdjustment) (*models.Transaction, *models.Student, error)
}

type tariffReader interface {
	Get(ctx context.Context) (*models.TariffSnapshot, error)
}

// EnrollRequest charges a class plan to a student.
type EnrollRequest struct {
	Configuration       pricing.ClassConfiguration `json:"configuration"`
	IncludeRegistration bool                       `json:"include_registration"`
	Household           pricing.Household          `json:"household" validate:"omitempty,oneof=INDIVIDUAL FAMILIAR"`
	PaidNow             bool                       `json:"paid_now"`
	Method              string                     `json:"method" validate:"max=40"`
}

// PaymentRequest records money received from a student.
type PaymentRequest struct {
	Amount      int64  `json:"amount" validate:"gt=0"`
	Method      string `json:"method" validate:"max=40"`
	Description string `json:"description" validate:"max=255"`
}

// EnrollmentResult is the outcome of charging a plan.
type EnrollmentResult struct {
	Enrollment models.Enrollment     `json:"enrollment"`
	Student    models.Student        `json:"student"`
	Outcome    billing.ChargeOutcome `json:"outcome"`
	Payment    *models.Transaction   `json:"payment,omitempty"`
}

// BillingService charges plans and keeps student balances consistent with
// the cash flow.
type BillingService struct {
	repo      billingRepository
	tariffs   tariffReader
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBillingService constructs the billing service.
func NewBillingService(repo billingRepository, tariffs tariffReader, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *BillingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{repo: repo, tariffs: tariffs, cache: cache, metrics: metrics, validator: validate, logger: logger}
}

// Enroll prices the configuration against the current tariffs and charges it.
// A paid-now charge leaves the balance untouched and records one income
// movement; otherwise the total is added to the student's debt.
func (s *BillingService) Enroll(ctx context.Context, studentID string, req EnrollRequest) (*EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}
	snapshot, err := s.tariffs.Get(ctx)
	if err != nil {
		return nil, err
	}
	quote, err := quoteFor(req.Configuration, snapshot.Table, req.IncludeRegistration, req.Household)
	if err != nil {
		return nil, err
	}

	enrollment := &models.Enrollment{
		StudentID:       studentID,
		Price:           quote.Price,
		RegistrationFee: quote.RegistrationFee,
		PaidNow:         req.PaidNow,
	}
	enrollment.SetConfiguration(req.Configuration)

	outcome := billing.PlanCharge(enrollment.Total(), req.PaidNow)
	var payment *models.Transaction
	if outcome.RecordsIncome() {
		payment = studentPayment(studentID, outcome.IncomeAmount, req.Method,
			fmt.Sprintf("Pago inmediato: %s", enrollment.Category.Label()))
	}

	student, err := s.repo.Charge(ctx, enrollment, outcome.DebtDelta, payment)
	if err != nil {
		return nil, lookupError(err, "student not found", "failed to charge enrollment")
	}
	s.metrics.RecordCharge(string(enrollment.Category), req.PaidNow, enrollment.Total())
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("enrollment charged",
		zap.String("student_id", studentID),
		zap.String("category", string(enrollment.Category)),
		zap.Int64("total", enrollment.Total()),
		zap.Bool("paid_now", req.PaidNow),
	)
	return &EnrollmentResult{Enrollment: *enrollment, Student: *student, Outcome: outcome, Payment: payment}, nil
}

// RemoveEnrollment deletes an enrollment and reverses its charge without
// letting the balance drop below zero.
func (s *BillingService) RemoveEnrollment(ctx context.Context, studentID, enrollmentID string) (*models.Student, error) {
	student, removed, err := s.repo.RemoveEnrollment(ctx, studentID, enrollmentID, billing.DebtAfterEnrollmentRemoval)
	if err != nil {
		return nil, lookupError(err, "enrollment not found", "failed to remove enrollment")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("enrollment removed",
		zap.String("student_id", studentID),
		zap.String("enrollment_id", removed.ID),
		zap.Int64("debt", student.Debt),
	)
	return student, nil
}

// RecordPayment registers a student payment as income and lowers the balance.
// Overpaying leaves a credit.
func (s *BillingService) RecordPayment(ctx context.Context, studentID string, req PaymentRequest) (*models.Student, *models.Transaction, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = "Pago de cuota"
	}
	payment := studentPayment(studentID, req.Amount, req.Method, description)
	student, err := s.repo.RecordPayment(ctx, payment, billing.DebtAfterPayment)
	if err != nil {
		return nil, nil, lookupError(err, "student not found", "failed to record payment")
	}
	s.cache.InvalidateDerived(ctx)
	s.logger.Info("payment recorded", zap.String("student_id", studentID), zap.Int64("amount", req.Amount))
	return student, payment, nil
}

// RemoveTransaction deletes a cash movement. A student payment gives its
// amount back to the student's debt when the student still exists.
func (s *BillingService) RemoveTransaction(ctx context.Context, id string) (*models.Transaction, *models.Student, error) {
	removed, student, err := s.repo.RemoveTransaction(ctx, id, billing.DebtAfterPaymentRemoval)
	if err != nil {
		return nil, nil, lookupError(err, "transaction not found", "failed to delete transaction")
	}
	s.cache.InvalidateDerived(ctx)
	fields := []zap.Field{zap.String("transaction_id", id), zap.Int64("amount", removed.Amount)}
	if student != nil {
		fields = append(fields, zap.String("student_id", student.ID), zap.Int64("debt", student.Debt))
	}
	s.logger.Info("transaction removed", fields...)
	return removed, student, nil
}

func studentPayment(studentID string, amount int64, method, description string) *models.Transaction {
	method = strings.TrimSpace(method)
	if method == "" {
		method = DefaultPaymentMethod
	}
	sid := studentID
	return &models.Transaction{
		Type:        models.TransactionIncome,
		Amount:      amount,
		Category:    models.StudentPaymentCategory,
		Description: description,
		StudentID:   &sid,
		Method:      &method,
	}
}
