package market

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingSource 统计上游调用次数，可选地模拟上游耗时。
type countingSource struct {
	barsCalls int32
	snapCalls int32
	delay     time.Duration
}

func (s *countingSource) Name() string { return "counting" }

func (s *countingSource) FetchBars(_ context.Context, symbol, _ string, _ int) ([]Bar, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	atomic.AddInt32(&s.barsCalls, 1)
	return []Bar{{Close: 1.5, Volume: 100}}, nil
}

func (s *countingSource) FetchSnapshot(_ context.Context, symbol string) (Snapshot, error) {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	atomic.AddInt32(&s.snapCalls, 1)
	return Snapshot{Symbol: symbol, LastPrice: 1.5}, nil
}

func TestCacheHitWithinTTL(t *testing.T) {
	inner := &countingSource{}
	c := NewCachedSource(inner, 30*time.Second)
	base := time.Date(2025, 7, 1, 11, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }

	ctx := context.Background()
	first, err := c.FetchBars(ctx, "SIRI", "1d", 60)
	require.NoError(t, err)
	second, err := c.FetchBars(ctx, "SIRI", "1d", 60)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.barsCalls))

	_, err = c.FetchSnapshot(ctx, "SIRI")
	require.NoError(t, err)
	_, err = c.FetchSnapshot(ctx, "siri") // key 大小写不敏感
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.snapCalls))
}

func TestCacheRefetchesAfterExpiry(t *testing.T) {
	inner := &countingSource{}
	c := NewCachedSource(inner, 30*time.Second)
	clock := time.Date(2025, 7, 1, 11, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	ctx := context.Background()
	_, err := c.FetchSnapshot(ctx, "SIRI")
	require.NoError(t, err)

	clock = clock.Add(29 * time.Second)
	_, err = c.FetchSnapshot(ctx, "SIRI")
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.snapCalls), "29s 后仍在 TTL 内")

	clock = clock.Add(2 * time.Second)
	_, err = c.FetchSnapshot(ctx, "SIRI")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&inner.snapCalls), "过期后必须回源")
}

func TestCacheKeySeparatesParams(t *testing.T) {
	inner := &countingSource{}
	c := NewCachedSource(inner, 30*time.Second)

	ctx := context.Background()
	_, err := c.FetchBars(ctx, "SIRI", "1d", 60)
	require.NoError(t, err)
	_, err = c.FetchBars(ctx, "SIRI", "1d", 100)
	require.NoError(t, err)
	_, err = c.FetchBars(ctx, "MTC", "1d", 60)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&inner.barsCalls))
}

func TestCacheConcurrentFetchesCollapse(t *testing.T) {
	inner := &countingSource{delay: 100 * time.Millisecond}
	c := NewCachedSource(inner, 30*time.Second)

	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			snap, err := c.FetchSnapshot(context.Background(), "SIRI")
			assert.NoError(t, err)
			assert.Equal(t, 1.5, snap.LastPrice)
		}()
	}
	close(start)
	wg.Wait()
	assert.EqualValues(t, 1, atomic.LoadInt32(&inner.snapCalls), "并发请求必须合并为一次上游调用")
}

func TestCacheInvalidate(t *testing.T) {
	inner := &countingSource{}
	c := NewCachedSource(inner, 30*time.Second)

	ctx := context.Background()
	_, err := c.FetchSnapshot(ctx, "SIRI")
	require.NoError(t, err)
	c.Invalidate()
	_, err = c.FetchSnapshot(ctx, "SIRI")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&inner.snapCalls))
}

func TestCacheTTLBounds(t *testing.T) {
	c := NewCachedSource(&countingSource{}, 0)
	assert.Equal(t, 30*time.Second, c.ttl, "零值取默认 30s")
	c = NewCachedSource(&countingSource{}, 5*time.Minute)
	assert.Equal(t, maxCacheTTL, c.ttl, "上限 60s")
}
