package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/BaSui01/queryflow/types"
)

func setupTestCache(t *testing.T) (*Manager, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	m, err := NewManager(Config{
		Addr:       mr.Addr(),
		DefaultTTL: 1 * time.Minute,
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	return m, mr
}

func sampleRefs() []types.ResourceRef {
	return []types.ResourceRef{
		{ResourceID: "e1", Title: "a.pdf", ResourceType: "document"},
		{ResourceID: "e2", Title: "b.png", ResourceType: "image"},
	}
}

func TestCacheSetAndGetRefs(t *testing.T) {
	m, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, m.SetRefs(ctx, "wf-1", sampleRefs(), 0))

	got, err := m.GetRefs(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, sampleRefs(), got)
}

func TestCacheGetRefsMiss(t *testing.T) {
	m, _ := setupTestCache(t)

	_, err := m.GetRefs(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, IsCacheMiss(err))
}

func TestCacheInvalidate(t *testing.T) {
	m, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, m.SetRefs(ctx, "wf-1", sampleRefs(), 0))
	require.NoError(t, m.SetRefs(ctx, "wf-2", sampleRefs(), 0))
	require.NoError(t, m.Invalidate(ctx, "wf-1", "wf-2"))

	_, err := m.GetRefs(ctx, "wf-1")
	assert.True(t, IsCacheMiss(err))
	_, err = m.GetRefs(ctx, "wf-2")
	assert.True(t, IsCacheMiss(err))

	// 空入参不报错
	require.NoError(t, m.Invalidate(ctx))
}

func TestCacheRefsTTL(t *testing.T) {
	m, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, m.SetRefs(ctx, "wf-1", sampleRefs(), 10*time.Second))

	mr.FastForward(11 * time.Second)

	_, err := m.GetRefs(ctx, "wf-1")
	assert.True(t, IsCacheMiss(err))
}

func TestCacheEmptyRefsRoundTrip(t *testing.T) {
	m, _ := setupTestCache(t)
	ctx := context.Background()

	// 空列表也是有效的缓存值，区别于未命中
	require.NoError(t, m.SetRefs(ctx, "wf-1", []types.ResourceRef{}, 0))

	got, err := m.GetRefs(ctx, "wf-1")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCacheClosedManager(t *testing.T) {
	m, _ := setupTestCache(t)
	require.NoError(t, m.Close())

	_, err := m.GetRefs(context.Background(), "wf-1")
	assert.Error(t, err)
	assert.False(t, IsCacheMiss(err))

	err = m.SetRefs(context.Background(), "wf-1", sampleRefs(), 0)
	assert.Error(t, err)

	// 重复关闭幂等
	require.NoError(t, m.Close())
}

func TestCachePing(t *testing.T) {
	m, mr := setupTestCache(t)

	require.NoError(t, m.Ping(context.Background()))

	mr.Close()
	assert.Error(t, m.Ping(context.Background()))
}
