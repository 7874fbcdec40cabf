package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENABLE_CACHE", "true")
	t.Setenv("PAYROLL_CACHE_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://ams.example, ,https://admin.ams.example")
	t.Setenv("ADVICE_ENDPOINT", "https://llm.example/v1/")
	t.Setenv("DB_CONN_MAX_LIFETIME", "30m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Cache.PayrollTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.DashboardTTL)
	assert.Equal(t, []string{"https://ams.example", "https://admin.ams.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "https://llm.example/v1", cfg.Advice.Endpoint)
	assert.Equal(t, "v1beta", cfg.Advice.APIVersion)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
}

func TestParseDurationFallback(t *testing.T) {
	assert.Equal(t, time.Minute, parseDuration("", time.Minute))
	assert.Equal(t, time.Minute, parseDuration("soon", time.Minute))
	assert.Equal(t, 2*time.Hour, parseDuration("2h", time.Minute))
}
