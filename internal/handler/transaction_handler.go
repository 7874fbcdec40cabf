package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/service"
	"github.com/noah-isme/ams-academy-api/pkg/response"
)

type transactionService interface {
	List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, *models.Pagination, error)
	Create(ctx context.Context, req service.TransactionRequest) (*models.Transaction, error)
	Summary(ctx context.Context, filter models.TransactionFilter) (*models.CashSummary, error)
	Delete(ctx context.Context, id string) (*models.Student, error)
}

// TransactionHandler exposes the cash flow.
type TransactionHandler struct {
	transactions transactionService
}

// NewTransactionHandler constructs TransactionHandler.
func NewTransactionHandler(transactions transactionService) *TransactionHandler {
	return &TransactionHandler{transactions: transactions}
}

func transactionFilter(c *gin.Context) (models.TransactionFilter, error) {
	var filter models.TransactionFilter
	if kind := strings.TrimSpace(c.Query("type")); kind != "" {
		t := models.TransactionType(strings.ToLower(kind))
		filter.Type = &t
	}
	filter.StudentID = c.Query("studentId")
	from, to, err := dateRange(c)
	if err != nil {
		return filter, err
	}
	filter.DateFrom, filter.DateTo = from, to
	filter.Page, filter.PageSize = pageParams(c)
	return filter, nil
}

// List godoc
// @Summary List cash movements, newest first
// @Tags Transactions
// @Produce json
// @Param type query string false "income or expense"
// @Param studentId query string false "Student ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	filter, err := transactionFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	items, pagination, err := h.transactions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Create godoc
// @Summary Record a manual income or expense
// @Tags Transactions
// @Accept json
// @Produce json
// @Param payload body service.TransactionRequest true "Transaction payload"
// @Success 201 {object} response.Envelope
// @Router /transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req service.TransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid transaction payload"))
		return
	}
	tx, err := h.transactions.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, tx)
}

// Summary godoc
// @Summary Income, expense and net totals
// @Tags Transactions
// @Produce json
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /transactions/summary [get]
func (h *TransactionHandler) Summary(c *gin.Context) {
	filter, err := transactionFilter(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, err := h.transactions.Summary(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Delete godoc
// @Summary Delete a cash movement
// @Description Deleting a student payment adds its amount back to the student's debt and returns the student.
// @Tags Transactions
// @Produce json
// @Param id path string true "Transaction ID"
// @Success 200 {object} response.Envelope
// @Success 204
// @Router /transactions/{id} [delete]
func (h *TransactionHandler) Delete(c *gin.Context) {
	student, err := h.transactions.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if student == nil {
		response.NoContent(c)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
