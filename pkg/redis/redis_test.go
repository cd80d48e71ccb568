package redis

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streakhq/curator/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(&config.Config{Redis: config.RedisConfig{Enabled: false}})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestWindow_Disabled(t *testing.T) {
	w := NewWindow(disabledClient(t), "test", "created", time.Hour)
	ctx := context.Background()

	n, ok, err := w.Record(ctx, "d-1", time.Now(), 1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Zero(t, n)

	n, err = w.Count(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	written, err := cache.SetNX(ctx, "key", "v", time.Minute)
	require.NoError(t, err)
	assert.True(t, written)
}

func TestCacheKeys(t *testing.T) {
	assert.Equal(t, "resolution:flash_BTC_20260101_1200", ResolutionKey("flash_BTC_20260101_1200"))
}

// Integration tests below need a live Redis (REDIS_HOST)
func liveClient(t *testing.T) *Client {
	t.Helper()
	if os.Getenv("REDIS_HOST") == "" {
		t.Skip("REDIS_HOST not set, skipping integration test")
	}
	t.Setenv("REDIS_ENABLED", "true")
	cfg, err := config.Load()
	require.NoError(t, err)
	client, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestWindow_Live(t *testing.T) {
	client := liveClient(t)
	ctx := context.Background()
	key := "window-" + time.Now().Format("150405.000000")
	w := NewWindow(client, "curator-test", key, time.Hour)

	base := time.Now()
	_, _, err := w.Record(ctx, "a", base.Add(-2*time.Hour), 1)
	require.NoError(t, err)
	n, ok, err := w.Record(ctx, "b", base.Add(-30*time.Minute), 1)
	require.NoError(t, err)
	assert.True(t, ok, "entry older than the span is evicted")
	assert.Equal(t, 1, n)

	n, ok, err = w.Record(ctx, "c", base.Add(-20*time.Minute), 1)
	require.NoError(t, err)
	assert.False(t, ok, "full window refuses")
	assert.Equal(t, 1, n)

	n, err = w.Count(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = w.Count(ctx, base.Add(31*time.Minute))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWindow_LiveConcurrentCap(t *testing.T) {
	client := liveClient(t)
	ctx := context.Background()
	w := NewWindow(client, "curator-test", "window-cap-"+time.Now().Format("150405.000000"), time.Hour)

	const replicas, limit = 8, 3
	var accepted atomic.Int32
	var wg sync.WaitGroup
	now := time.Now()
	for i := 0; i < replicas; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, ok, err := w.Record(ctx, fmt.Sprintf("draft-%d", i), now, limit)
			assert.NoError(t, err)
			if ok {
				accepted.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(limit), accepted.Load())
	n, err := w.Count(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, limit, n)
}

func TestCache_Live(t *testing.T) {
	client := liveClient(t)
	cache := NewCache(client, "curator-test")
	ctx := context.Background()
	key := ResolutionKey("m-" + time.Now().Format("150405.000000"))
	defer client.Redis().Del(ctx, cache.fullKey(key))

	require.NoError(t, client.Ping(ctx))

	ok, err := cache.SetNX(ctx, key, map[string]string{"outcome": "YES"}, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = cache.SetNX(ctx, key, map[string]string{"outcome": "NO"}, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "first verdict wins")

	var got map[string]string
	found, err := cache.Get(ctx, key, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "YES", got["outcome"])
}
