package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
	"github.com/noah-isme/ams-academy-api/internal/service"
	"github.com/noah-isme/ams-academy-api/pkg/response"
)

type tariffService interface {
	Get(ctx context.Context) (*models.TariffSnapshot, error)
	Keys() []pricing.Key
	Quote(ctx context.Context, req service.QuoteRequest) (*service.Quote, error)
	UpdateCell(ctx context.Context, req service.CellUpdateRequest) (*models.TariffSnapshot, error)
	Adjust(ctx context.Context, req service.AdjustRequest) (*models.TariffSnapshot, error)
}

// TariffHandler exposes the price list.
type TariffHandler struct {
	tariffs tariffService
}

// NewTariffHandler constructs TariffHandler.
func NewTariffHandler(tariffs tariffService) *TariffHandler {
	return &TariffHandler{tariffs: tariffs}
}

// Get godoc
// @Summary Current tariff table
// @Tags Tariffs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tariffs [get]
func (h *TariffHandler) Get(c *gin.Context) {
	snapshot, err := h.tariffs.Get(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Keys godoc
// @Summary Every class configuration key
// @Tags Tariffs
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /tariffs/keys [get]
func (h *TariffHandler) Keys(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.tariffs.Keys(), nil)
}

// Quote godoc
// @Summary Price a class configuration
// @Tags Tariffs
// @Accept json
// @Produce json
// @Param payload body service.QuoteRequest true "Quote payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /tariffs/quote [post]
func (h *TariffHandler) Quote(c *gin.Context) {
	var req service.QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid quote payload"))
		return
	}
	quote, err := h.tariffs.Quote(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, quote, nil)
}

// UpdateCell godoc
// @Summary Edit one tariff cell
// @Tags Tariffs
// @Accept json
// @Produce json
// @Param payload body service.CellUpdateRequest true "Cell payload"
// @Success 200 {object} response.Envelope
// @Router /tariffs/cells [put]
func (h *TariffHandler) UpdateCell(c *gin.Context) {
	var req service.CellUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid cell payload"))
		return
	}
	snapshot, err := h.tariffs.UpdateCell(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}

// Adjust godoc
// @Summary Apply a percentage to every tariff cell
// @Tags Tariffs
// @Accept json
// @Produce json
// @Param payload body service.AdjustRequest true "Adjustment payload"
// @Success 200 {object} response.Envelope
// @Router /tariffs/adjust [post]
func (h *TariffHandler) Adjust(c *gin.Context) {
	var req service.AdjustRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err, "invalid adjustment payload"))
		return
	}
	snapshot, err := h.tariffs.Adjust(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}
