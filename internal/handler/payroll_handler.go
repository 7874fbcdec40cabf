package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-academy-api/internal/middleware"
	"github.com/noah-isme/ams-academy-api/internal/payroll"
	"github.com/noah-isme/ams-academy-api/internal/service"
	"github.com/noah-isme/ams-academy-api/pkg/response"
)

type payrollService interface {
	Summary(ctx context.Context, period service.PayrollPeriod) (*payroll.Summary, bool, error)
	TeacherEarnings(ctx context.Context, teacherID string, period service.PayrollPeriod) (*payroll.Earnings, bool, error)
}

// PayrollHandler exposes teacher earnings.
type PayrollHandler struct {
	payroll payrollService
}

// NewPayrollHandler constructs PayrollHandler.
func NewPayrollHandler(payroll payrollService) *PayrollHandler {
	return &PayrollHandler{payroll: payroll}
}

func payrollPeriod(c *gin.Context) (service.PayrollPeriod, error) {
	from, to, err := dateRange(c)
	return service.PayrollPeriod{From: from, To: to}, err
}

// Summary godoc
// @Summary School-wide payroll
// @Tags Payroll
// @Produce json
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /payroll [get]
func (h *PayrollHandler) Summary(c *gin.Context) {
	period, err := payrollPeriod(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	summary, cacheHit, err := h.payroll.Summary(c.Request.Context(), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil)
}

// Teacher godoc
// @Summary One teacher's earnings with line items
// @Tags Payroll
// @Produce json
// @Param id path string true "Teacher ID"
// @Param from query string false "From date (YYYY-MM-DD)"
// @Param to query string false "To date (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /payroll/teachers/{id} [get]
func (h *PayrollHandler) Teacher(c *gin.Context) {
	period, err := payrollPeriod(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	earnings, cacheHit, err := h.payroll.TeacherEarnings(c.Request.Context(), c.Param("id"), period)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, earnings, nil)
}
