package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/service"
	"github.com/noah-isme/ams-academy-api/pkg/response"
)

type billingService interface {
	Enroll(ctx context.Context, studentID string, req service.EnrollRequest) (*service.EnrollmentResult, error)
	RemoveEnrollment(ctx context.Context, studentID, enrollmentID string) (*models.Student, error)
	RecordPayment(ctx context.Context, studentID string, req service.PaymentRequest) (*models.Student, *models.Transaction, error)
}

// PaymentResponse pairs the updated student with the income transaction.
type PaymentResponse struct {
	Student     *models.Student     `json:"student"`
	Transaction *models.Transaction `json:"transaction"`
}

// BillingHandler charges plans and records payments against student balances.
type BillingHandler struct {
	billing billingService
}

// NewBillingHandler constructs BillingHandler.
func NewBillingHandler(billing billingService) *BillingHandler {
	return &BillingHandler{billing: billing}
}

// Enroll godoc
// @Summary Charge a plan to a student
// @Description Paid-now charges create an income transaction, otherwise the price is added to the student's debt.
// @Tags Billing
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/{id}/enrollments [post]
func (h *BillingHandler) Enroll(c *gin.Context) {
	var req service.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid enrollment payload"))
		return
	}
	result, err := h.billing.Enroll(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// RemoveEnrollment godoc
// @Summary Delete an enrollment and reverse its charge
// @Tags Billing
// @Produce json
// @Param id path string true "Student ID"
// @Param eid path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/enrollments/{eid} [delete]
func (h *BillingHandler) RemoveEnrollment(c *gin.Context) {
	student, err := h.billing.RemoveEnrollment(c.Request.Context(), c.Param("id"), c.Param("eid"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// RecordPayment godoc
// @Summary Record a student payment
// @Tags Billing
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.PaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Router /students/{id}/payments [post]
func (h *BillingHandler) RecordPayment(c *gin.Context) {
	var req service.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid payment payload"))
		return
	}
	student, tx, err := h.billing.RecordPayment(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, PaymentResponse{Student: student, Transaction: tx})
}
