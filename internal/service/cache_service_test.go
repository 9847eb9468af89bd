package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/siports-api/pkg/errors"
)

type memCache struct {
	entries map[string][]byte
	ttls    map[string]time.Duration
	getErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	if m.getErr != nil {
		return m.getErr
	}
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	m.ttls[key] = ttl
	return nil
}

func (m *memCache) Delete(ctx context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

func (m *memCache) DeleteByPattern(ctx context.Context, pattern string) error {
	for k := range m.entries {
		if ok, _ := path.Match(pattern, k); ok {
			delete(m.entries, k)
		}
	}
	return nil
}

func TestCacheServiceReadThroughAndInvalidate(t *testing.T) {
	repo := newMemCache()
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, 0, nil, true)
	ctx := context.Background()

	var slots []string
	hit, err := svc.Get(ctx, SlotsCacheKey("ex-1", "2026-04-01", "2026-04-03"), &slots)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, svc.Set(ctx, SlotsCacheKey("ex-1", "2026-04-01", "2026-04-03"), []string{"slot-1"}, 0))
	require.NoError(t, svc.Set(ctx, SlotsCacheKey("ex-2", "", ""), []string{"slot-9"}, 0))
	assert.Equal(t, time.Minute, repo.ttls[SlotsCacheKey("ex-1", "2026-04-01", "2026-04-03")])

	hit, err = svc.Get(ctx, SlotsCacheKey("ex-1", "2026-04-01", "2026-04-03"), &slots)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []string{"slot-1"}, slots)

	require.NoError(t, svc.Invalidate(ctx, SlotsCachePattern("ex-1")))
	assert.NotContains(t, repo.entries, SlotsCacheKey("ex-1", "2026-04-01", "2026-04-03"))
	assert.Contains(t, repo.entries, SlotsCacheKey("ex-2", "", ""))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
}

func TestCacheServiceDisabledIsNoop(t *testing.T) {
	repo := newMemCache()
	svc := NewCacheService(repo, nil, time.Minute, nil, false)
	ctx := context.Background()

	require.NoError(t, svc.Set(ctx, PublicMiniSiteCacheKey("ex-1"), "site", 0))
	assert.Empty(t, repo.entries)

	var out string
	hit, err := svc.Get(ctx, PublicMiniSiteCacheKey("ex-1"), &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestCacheServiceSurfacesBackendErrors(t *testing.T) {
	repo := newMemCache()
	repo.getErr = errors.New("connection refused")
	svc := NewCacheService(repo, nil, time.Minute, nil, true)

	var out string
	hit, err := svc.Get(context.Background(), PublicMiniSiteCacheKey("ex-1"), &out)
	require.Error(t, err)
	assert.False(t, hit)
}
