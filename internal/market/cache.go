package market

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const maxCacheTTL = 60 * time.Second

// CachedSource 在 Source 外层加一段短 TTL 缓存，避免交互界面反复触发同一请求。
// 并发请求同一 key 时由 singleflight 合并为一次上游调用。
type CachedSource struct {
	inner Source
	ttl   time.Duration

	group singleflight.Group

	mu    sync.Mutex
	bars  map[string]cachedBars
	snaps map[string]cachedSnapshot

	now func() time.Time
}

type cachedBars struct {
	bars    []Bar
	expires time.Time
}

type cachedSnapshot struct {
	snap    Snapshot
	expires time.Time
}

// NewCachedSource 包装 inner。ttl<=0 时取 30s，上限 60s。
func NewCachedSource(inner Source, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if ttl > maxCacheTTL {
		ttl = maxCacheTTL
	}
	return &CachedSource{
		inner: inner,
		ttl:   ttl,
		bars:  make(map[string]cachedBars),
		snaps: make(map[string]cachedSnapshot),
		now:   time.Now,
	}
}

func (c *CachedSource) Name() string { return c.inner.Name() }

func (c *CachedSource) FetchBars(ctx context.Context, symbol, interval string, lookback int) ([]Bar, error) {
	key := fmt.Sprintf("bars|%s|%s|%d", strings.ToUpper(symbol), interval, lookback)
	c.mu.Lock()
	if hit, ok := c.bars[key]; ok && c.now().Before(hit.expires) {
		c.mu.Unlock()
		return hit.bars, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		bars, err := c.inner.FetchBars(ctx, symbol, interval, lookback)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.bars[key] = cachedBars{bars: bars, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Bar), nil
}

func (c *CachedSource) FetchSnapshot(ctx context.Context, symbol string) (Snapshot, error) {
	key := "snap|" + strings.ToUpper(symbol)
	c.mu.Lock()
	if hit, ok := c.snaps[key]; ok && c.now().Before(hit.expires) {
		c.mu.Unlock()
		return hit.snap, nil
	}
	c.mu.Unlock()

	v, err, _ := c.group.Do(key, func() (any, error) {
		snap, err := c.inner.FetchSnapshot(ctx, symbol)
		if err != nil {
			return Snapshot{}, err
		}
		c.mu.Lock()
		c.snaps[key] = cachedSnapshot{snap: snap, expires: c.now().Add(c.ttl)}
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// Invalidate 清空缓存（配置变更、手动刷新时使用）。
func (c *CachedSource) Invalidate() {
	c.mu.Lock()
	c.bars = make(map[string]cachedBars)
	c.snaps = make(map[string]cachedSnapshot)
	c.mu.Unlock()
}
