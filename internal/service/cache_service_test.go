package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCacheRepo struct {
	err error
}

func (f failingCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	return f.err
}

func (f failingCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return f.err
}

func (f failingCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	return f.err
}

func TestCacheServiceHitAndMiss(t *testing.T) {
	repo := newMockCacheRepo()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	var out map[string]int
	hit, err := svc.Get(context.Background(), "payroll:all", &out)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(context.Background(), "payroll:all", map[string]int{"total": 30000}, 0))
	hit, err = svc.Get(context.Background(), "payroll:all", &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 30000, out["total"])

	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMockCacheRepo()
	svc := NewCacheService(repo, nil, 0, nil, false)
	assert.False(t, svc.Enabled())

	require.NoError(t, svc.Set(context.Background(), "dashboard:summary", 1, 0))
	assert.Empty(t, repo.entries)

	var nilSvc *CacheService
	hit, err := nilSvc.Get(context.Background(), "dashboard:summary", new(int))
	require.NoError(t, err)
	assert.False(t, hit)
	nilSvc.InvalidateDerived(context.Background())
}

func TestCacheServicePropagatesBackendErrors(t *testing.T) {
	boom := errors.New("redis down")
	svc := NewCacheService(failingCacheRepo{err: boom}, nil, time.Minute, nil, true)

	hit, err := svc.Get(context.Background(), "payroll:all", new(int))
	assert.ErrorIs(t, err, boom)
	assert.False(t, hit)
	assert.ErrorIs(t, svc.Set(context.Background(), "payroll:all", 1, 0), boom)
	assert.ErrorIs(t, svc.Invalidate(context.Background(), "payroll:*"), boom)
}

func TestCacheServiceInvalidateDerived(t *testing.T) {
	repo := newMockCacheRepo()
	svc := NewCacheService(repo, nil, time.Minute, nil, true)
	require.NoError(t, svc.Set(context.Background(), payrollCachePrefix+"all", 1, 0))
	require.NoError(t, svc.Set(context.Background(), dashboardCachePrefix+"summary", 1, 0))
	require.NoError(t, svc.Set(context.Background(), "settings:name", 1, 0))

	svc.InvalidateDerived(context.Background())

	assert.Equal(t, []string{"payroll:*", "dashboard:*"}, repo.deleted)
	assert.Len(t, repo.entries, 1)
	assert.Contains(t, repo.entries, "settings:name")
}
