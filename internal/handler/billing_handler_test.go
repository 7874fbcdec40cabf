package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
	"github.com/noah-isme/ams-academy-api/internal/service"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type billingServiceMock struct {
	enrollReq  service.EnrollRequest
	paymentReq service.PaymentRequest
	removed    [2]string
	err        error
}

func (m *billingServiceMock) Enroll(ctx context.Context, studentID string, req service.EnrollRequest) (*service.EnrollmentResult, error) {
	m.enrollReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &service.EnrollmentResult{Student: models.Student{ID: studentID}}, nil
}

func (m *billingServiceMock) RemoveEnrollment(ctx context.Context, studentID, enrollmentID string) (*models.Student, error) {
	m.removed = [2]string{studentID, enrollmentID}
	return &models.Student{ID: studentID}, m.err
}

func (m *billingServiceMock) RecordPayment(ctx context.Context, studentID string, req service.PaymentRequest) (*models.Student, *models.Transaction, error) {
	m.paymentReq = req
	if m.err != nil {
		return nil, nil, m.err
	}
	return &models.Student{ID: studentID, Debt: 30000}, &models.Transaction{ID: "tx-1", Amount: req.Amount}, nil
}

func TestBillingHandlerEnroll(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &billingServiceMock{}
	handler := NewBillingHandler(svc)

	body := `{"configuration":{"category":"COMBO","type":"INDIVIDUAL","duration":"45 min"},"paid_now":true,"method":"Efectivo"}`
	c, w := newGinContext(http.MethodPost, "/students/stu-1/enrollments", []byte(body))
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	handler.Enroll(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, svc.enrollReq.PaidNow)
	assert.Equal(t, pricing.CategoryMonthlyCombo, svc.enrollReq.Configuration.Category)
}

func TestBillingHandlerEnrollValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBillingHandler(&billingServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "missing duration")})

	c, w := newGinContext(http.MethodPost, "/students/stu-1/enrollments", []byte(`{"configuration":{"category":"COMBO"}}`))
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	handler.Enroll(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBillingHandlerRemoveEnrollment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &billingServiceMock{}
	handler := NewBillingHandler(svc)

	c, w := newGinContext(http.MethodDelete, "/students/stu-1/enrollments/enr-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}, {Key: "eid", Value: "enr-1"}}
	handler.RemoveEnrollment(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, [2]string{"stu-1", "enr-1"}, svc.removed)
}

func TestBillingHandlerRecordPayment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &billingServiceMock{}
	handler := NewBillingHandler(svc)

	c, w := newGinContext(http.MethodPost, "/students/stu-1/payments", []byte(`{"amount":100660,"method":"Transferencia"}`))
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	handler.RecordPayment(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(100660), svc.paymentReq.Amount)

	var body struct {
		Data PaymentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(30000), body.Data.Student.Debt)
	assert.Equal(t, "tx-1", body.Data.Transaction.ID)
}

func TestBillingHandlerEnrollMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &billingServiceMock{}
	handler := NewBillingHandler(svc)

	c, w := newGinContext(http.MethodPost, "/students/stu-1/enrollments", []byte(`not json`))
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}
	handler.Enroll(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, svc.enrollReq.Configuration.Category)
}

func TestBillingHandlerRemoveEnrollmentNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewBillingHandler(&billingServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")})

	c, w := newGinContext(http.MethodDelete, "/students/stu-1/enrollments/ghost", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}, {Key: "eid", Value: "ghost"}}
	handler.RemoveEnrollment(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
