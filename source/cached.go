package source

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/defistate/lending-console-go/protocols/blend"
)

// Cached is a Source that remembers successful results for a fixed TTL.
// Errors are never cached.
type Cached struct {
	src   Source
	ttl   time.Duration
	cache *cache.Cache
}

var _ Source = (*Cached)(nil)

// NewCached wraps src with a TTL cache. A non-positive ttl disables caching.
//
// No janitor goroutine is started: an expired entry is simply reported as a
// miss and overwritten by the next successful fetch.
func NewCached(src Source, ttl time.Duration) *Cached {
	return &Cached{
		src:   src,
		ttl:   ttl,
		cache: cache.New(ttl, 0),
	}
}

// Flush drops every cached entry.
func (c *Cached) Flush() {
	c.cache.Flush()
}

func (c *Cached) PoolMeta(ctx context.Context, id blend.PoolID) (blend.PoolMeta, error) {
	return cached(c, QueryPoolMeta+":"+id.String(), func() (blend.PoolMeta, error) {
		return c.src.PoolMeta(ctx, id)
	})
}

func (c *Cached) Pool(ctx context.Context, meta blend.PoolMeta) (blend.Pool, error) {
	return cached(c, QueryPool+":"+meta.ID.String(), func() (blend.Pool, error) {
		return c.src.Pool(ctx, meta)
	})
}

func (c *Cached) Oracle(ctx context.Context, pool blend.Pool) (blend.Oracle, error) {
	return cached(c, QueryOracle+":"+pool.Meta.Oracle, func() (blend.Oracle, error) {
		return c.src.Oracle(ctx, pool)
	})
}

func (c *Cached) Backstop(ctx context.Context, version blend.Version) (blend.Backstop, error) {
	return cached(c, QueryBackstop+":"+string(version), func() (blend.Backstop, error) {
		return c.src.Backstop(ctx, version)
	})
}

func (c *Cached) BackstopPool(ctx context.Context, meta blend.PoolMeta) (blend.BackstopPool, error) {
	return cached(c, QueryBackstopPool+":"+meta.ID.String(), func() (blend.BackstopPool, error) {
		return c.src.BackstopPool(ctx, meta)
	})
}

func cached[T any](c *Cached, key string, fetch func() (T, error)) (T, error) {
	if c.ttl <= 0 {
		return fetch()
	}
	if v, found := c.cache.Get(key); found {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}
	v, err := fetch()
	if err != nil {
		return v, err
	}
	c.cache.Set(key, v, cache.DefaultExpiration)
	return v, nil
}
