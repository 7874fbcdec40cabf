package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
	"github.com/noah-isme/ams-academy-api/internal/service"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type teacherServiceMock struct {
	lastFilter models.TeacherFilter
	ratesReq   service.RatesRequest
	err        error
}

func (m *teacherServiceMock) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, *models.Pagination, error) {
	m.lastFilter = filter
	return []models.Teacher{}, &models.Pagination{Page: 1, PageSize: 20}, m.err
}

func (m *teacherServiceMock) Get(ctx context.Context, id string) (*models.Teacher, error) {
	return &models.Teacher{ID: id}, m.err
}

func (m *teacherServiceMock) Create(ctx context.Context, req service.TeacherRequest) (*models.Teacher, error) {
	return &models.Teacher{ID: "t-new", Name: req.Name}, m.err
}

func (m *teacherServiceMock) Update(ctx context.Context, id string, req service.TeacherRequest) (*models.Teacher, error) {
	return &models.Teacher{ID: id, Name: req.Name}, m.err
}

func (m *teacherServiceMock) UpdateRates(ctx context.Context, id string, req service.RatesRequest) (*models.Teacher, error) {
	m.ratesReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Teacher{ID: id, Rates: req.Rates}, nil
}

func (m *teacherServiceMock) Delete(ctx context.Context, id string) error {
	return m.err
}

func TestTeacherHandlerList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &teacherServiceMock{}
	handler := NewTeacherHandler(svc)

	c, w := newGinContext(http.MethodGet, "/teachers?status=active&search=ana", nil)
	handler.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, svc.lastFilter.Status)
	assert.Equal(t, models.TeacherStatusActive, *svc.lastFilter.Status)
	assert.Equal(t, "ana", svc.lastFilter.Search)
}

func TestTeacherHandlerUpdateRates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &teacherServiceMock{}
	handler := NewTeacherHandler(svc)

	c, w := newGinContext(http.MethodPut, "/teachers/t1/rates", []byte(`{"rates":{"SUELTA_INDIVIDUAL_30 min":15000},"merge":true}`))
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	handler.UpdateRates(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.ratesReq.Merge)
	assert.Equal(t, int64(15000), svc.ratesReq.Rates["SUELTA_INDIVIDUAL_30 min"])
}

func TestTeacherHandlerUpdateRatesRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTeacherHandler(&teacherServiceMock{err: appErrors.Clone(appErrors.ErrValidation, "unknown rate key")})

	c, w := newGinContext(http.MethodPut, "/teachers/t1/rates", []byte(`{"rates":{"NOPE":1}}`))
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	handler.UpdateRates(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTeacherHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewTeacherHandler(&teacherServiceMock{})

	c, w := newGinContext(http.MethodDelete, "/teachers/t1", nil)
	c.Params = gin.Params{{Key: "id", Value: "t1"}}
	handler.Delete(c)

	assert.Equal(t, http.StatusNoContent, w.Code)
}
