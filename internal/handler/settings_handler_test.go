package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-academy-api/internal/models"
	appErrors "github.com/noah-isme/ams-academy-api/pkg/errors"
)

type settingsServiceMock struct {
	current models.SchoolSettings
}

func (m *settingsServiceMock) Get(ctx context.Context) (*models.SchoolSettings, error) {
	settings := m.current
	return &settings, nil
}

func (m *settingsServiceMock) Update(ctx context.Context, req models.SchoolSettings) (*models.SchoolSettings, error) {
	m.current = req
	return &req, nil
}

func TestSettingsHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &settingsServiceMock{current: models.SchoolSettings{Name: models.DefaultSchoolName}}
	handler := NewSettingsHandler(svc)

	c, w := newGinContext(http.MethodGet, "/settings", nil)
	handler.Get(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), models.DefaultSchoolName)

	c, w = newGinContext(http.MethodPut, "/settings", []byte(`{"name":"Escuela Allegro"}`))
	handler.Update(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Escuela Allegro", svc.current.Name)
}

type authServiceMock struct {
	lastReq models.LoginRequest
}

func (m *authServiceMock) Login(req models.LoginRequest) (*models.LoginResponse, error) {
	m.lastReq = req
	if req.Password != "secret" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600}, nil
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &authServiceMock{}
	handler := NewAuthHandler(svc)

	c, w := newGinContext(http.MethodPost, "/auth/login", []byte(`{"password":"secret"}`))
	c.Request.Header.Set("User-Agent", "test-agent")
	handler.Login(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"access_token":"token"`)
	assert.Equal(t, "test-agent", svc.lastReq.UserAgent)

	c, w = newGinContext(http.MethodPost, "/auth/login", []byte(`{"password":"nope"}`))
	handler.Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type pingerStub struct {
	err error
}

func (p pingerStub) PingContext(ctx context.Context) error {
	return p.err
}

func TestMetricsHandlerHealthAndReady(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewMetricsHandler(nil, pingerStub{})

	c, w := newGinContext(http.MethodGet, "/health", nil)
	handler.Health(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/ready", nil)
	handler.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodGet, "/metrics", nil)
	handler.Prometheus(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	down := NewMetricsHandler(nil, pingerStub{err: errors.New("connection refused")})
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	down.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
