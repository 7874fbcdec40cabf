package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/pricing"
	"github.com/noah-isme/ams-academy-api/internal/service"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type tariffServiceMock struct {
	quoteReq  service.QuoteRequest
	cellReq   service.CellUpdateRequest
	adjustReq service.AdjustRequest
	err       error
}

func (m *tariffServiceMock) Get(ctx context.Context) (*models.TariffSnapshot, error) {
	return &models.TariffSnapshot{Table: pricing.DefaultTariffTable()}, m.err
}

func (m *tariffServiceMock) Keys() []pricing.Key {
	return pricing.AllKeys()
}

func (m *tariffServiceMock) Quote(ctx context.Context, req service.QuoteRequest) (*service.Quote, error) {
	m.quoteReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &service.Quote{Price: 130660, RegistrationFee: 55000, Total: 185660}, nil
}

func (m *tariffServiceMock) UpdateCell(ctx context.Context, req service.CellUpdateRequest) (*models.TariffSnapshot, error) {
	m.cellReq = req
	return &models.TariffSnapshot{Table: pricing.DefaultTariffTable()}, m.err
}

func (m *tariffServiceMock) Adjust(ctx context.Context, req service.AdjustRequest) (*models.TariffSnapshot, error) {
	m.adjustReq = req
	return &models.TariffSnapshot{Table: pricing.DefaultTariffTable()}, m.err
}

func TestTariffHandlerGetAndKeys(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTariffHandler(&tariffServiceMock{})

	c, w := newGinContext(http.MethodGet, "/tariffs", nil)
	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "INSCRIPCION")

	c, w = newGinContext(http.MethodGet, "/tariffs/keys", nil)
	handler.Keys(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ENSAMBLE_UNICA")
}

func TestTariffHandlerQuote(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &tariffServiceMock{}
	handler := NewTariffHandler(svc)

	body := `{"configuration":{"category":"COMBO","type":"INDIVIDUAL","duration":"45 min"},"include_registration":true}`
	c, w := newGinContext(http.MethodPost, "/tariffs/quote", []byte(body))
	handler.Quote(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.quoteReq.IncludeRegistration)
	assert.Contains(t, w.Body.String(), `"total":185660`)

	svc.err = appErrors.Wrap(pricing.ErrMissingTariff, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "no tariff")
	c, w = newGinContext(http.MethodPost, "/tariffs/quote", []byte(body))
	handler.Quote(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTariffHandlerEdits(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &tariffServiceMock{}
	handler := NewTariffHandler(svc)

	c, w := newGinContext(http.MethodPut, "/tariffs/cells", []byte(`{"path":"COMBOS.DUPLA.45 min","price":110000}`))
	handler.UpdateCell(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "COMBOS.DUPLA.45 min", svc.cellReq.Path)
	assert.Equal(t, int64(110000), svc.cellReq.Price)

	c, w = newGinContext(http.MethodPost, "/tariffs/adjust", []byte(`{"percent":"12.5"}`))
	handler.Adjust(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.adjustReq.Percent.Equal(decimal.RequireFromString("12.5")))
}

func TestTariffHandlerAdjustBinding(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &tariffServiceMock{}
	handler := NewTariffHandler(svc)

	c, w := newGinContext(http.MethodPost, "/tariffs/adjust", []byte(`{"percent":-10}`))
	handler.Adjust(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.adjustReq.Percent.Equal(decimal.NewFromInt(-10)))

	svc.adjustReq = service.AdjustRequest{}
	c, w = newGinContext(http.MethodPost, "/tariffs/adjust", []byte(`{"percent":"ten"}`))
	handler.Adjust(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, svc.adjustReq.Percent.IsZero())

	svc.err = appErrors.Clone(appErrors.ErrValidation, "percent must be greater than -100")
	c, w = newGinContext(http.MethodPost, "/tariffs/adjust", []byte(`{"percent":"-150"}`))
	handler.Adjust(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "greater than -100")
}

func TestTariffHandlerUpdateCellRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &tariffServiceMock{err: appErrors.Wrap(pricing.ErrUnknownCell, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "unknown tariff cell")}
	handler := NewTariffHandler(svc)

	c, w := newGinContext(http.MethodPut, "/tariffs/cells", []byte(`{"path":"COMBOS.TRIO.45 min","price":1}`))
	handler.UpdateCell(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPut, "/tariffs/cells", []byte(`{"path":`))
	handler.UpdateCell(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
