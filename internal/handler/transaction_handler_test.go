package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/service"
)

type transactionServiceMock struct {
	lastFilter models.TransactionFilter
	created    service.TransactionRequest
	restored   *models.Student
}

func (m *transactionServiceMock) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Transaction{}, &models.Pagination{Page: 1, PageSize: 20}, nil
}

func (m *transactionServiceMock) Create(ctx context.Context, req service.TransactionRequest) (*models.Transaction, error) {
	m.created = req
	return &models.Transaction{ID: "tx-1", Type: req.Type, Amount: req.Amount}, nil
}

func (m *transactionServiceMock) Summary(ctx context.Context, filter models.TransactionFilter) (*models.CashSummary, error) {
	m.lastFilter = filter
	return &models.CashSummary{Income: 130660, Expense: 45000, Net: 85660}, nil
}

func (m *transactionServiceMock) Delete(ctx context.Context, id string) (*models.Student, error) {
	return m.restored, nil
}

func TestTransactionHandlerListFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &transactionServiceMock{}
	handler := NewTransactionHandler(svc)

	c, w := newGinContext(http.MethodGet, "/transactions?type=INCOME&from=2024-03-01&to=2024-03-31&studentId=stu-1", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastFilter.Type)
	assert.Equal(t, models.TransactionIncome, *svc.lastFilter.Type)
	assert.Equal(t, "stu-1", svc.lastFilter.StudentID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *svc.lastFilter.DateFrom)
	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC), *svc.lastFilter.DateTo)
}

func TestTransactionHandlerRejectsBadDate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTransactionHandler(&transactionServiceMock{})

	c, w := newGinContext(http.MethodGet, "/transactions/summary?from=03-01-2024", nil)
	handler.Summary(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTransactionHandlerCreateAndSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &transactionServiceMock{}
	handler := NewTransactionHandler(svc)

	c, w := newGinContext(http.MethodPost, "/transactions", []byte(`{"type":"expense","amount":45000,"category":"Alquiler"}`))
	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.TransactionExpense, svc.created.Type)

	c, w = newGinContext(http.MethodGet, "/transactions/summary", nil)
	handler.Summary(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"net":85660`)
}

func TestTransactionHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &transactionServiceMock{}
	handler := NewTransactionHandler(svc)

	c, w := newGinContext(http.MethodDelete, "/transactions/tx-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "tx-1"}}
	handler.Delete(c)
	assert.Equal(t, http.StatusNoContent, w.Code)

	svc.restored = &models.Student{ID: "stu-1", Debt: 130660}
	c, w = newGinContext(http.MethodDelete, "/transactions/tx-2", nil)
	c.Params = gin.Params{{Key: "id", Value: "tx-2"}}
	handler.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"debt":130660`)
}
