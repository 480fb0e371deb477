// Package cache keeps ranked search hits in Redis so a repeated query skips
// compilation and the corpus scan. Only the ordered book ids and their
// counts are stored; books are resolved fresh on every request.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/redis"
)

const keyPrefix = "search:"

// Backend is the key-value store behind the cache. *pkgredis.Client
// satisfies it.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Observer is told about every lookup. *metrics.Metrics satisfies it.
type Observer interface {
	ObserveCache(hit bool)
}

// Key identifies one ranked result list. Entries hold the full list; callers
// truncate to their limit after the lookup.
type Key struct {
	Mode    string
	Pattern string
	Order   search.Order
}

type QueryCache struct {
	backend  Backend
	ttl      time.Duration
	group    singleflight.Group
	observer Observer
	logger   *slog.Logger
	hits     atomic.Int64
	misses   atomic.Int64
}

func New(backend Backend, ttl time.Duration, observer Observer) *QueryCache {
	return &QueryCache{
		backend:  backend,
		ttl:      ttl,
		observer: observer,
		logger:   slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, k Key) ([]search.Hit, bool) {
	key := buildKey(k)
	data, err := c.backend.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var hits []search.Hit
	if err := json.Unmarshal(data, &hits); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	if c.observer != nil {
		c.observer.ObserveCache(true)
	}
	c.logger.Debug("cache hit", "pattern", k.Pattern, "key", key)
	return hits, true
}

func (c *QueryCache) Set(ctx context.Context, k Key, hits []search.Hit) {
	key := buildKey(k)
	data, err := json.Marshal(hits)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns cached hits for k or computes, stores and returns
// them. Concurrent misses for the same key share one computation, which runs
// on a context that keeps ctx's values but not its cancellation, so one
// caller going away does not fail the others. A caller whose own ctx ends
// first returns ctx.Err(). Errors are never cached.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	k Key,
	compute func(ctx context.Context) ([]search.Hit, error),
) ([]search.Hit, bool, error) {
	if hits, ok := c.Get(ctx, k); ok {
		return hits, true, nil
	}
	flightCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(buildKey(k), func() (any, error) {
		hits, err := compute(flightCtx)
		if err != nil {
			return nil, err
		}
		c.Set(flightCtx, k, hits)
		return hits, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.([]search.Hit), false, nil
	}
}

// Invalidate drops every cached result. Called whenever an occurrence index
// or a rank score changes.
func (c *QueryCache) Invalidate(ctx context.Context) (int64, error) {
	deleted, err := c.backend.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return deleted, fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated", "keys_deleted", deleted)
	return deleted, nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.observer != nil {
		c.observer.ObserveCache(false)
	}
}

func buildKey(k Key) string {
	raw := fmt.Sprintf("%s|%s|%s", k.Mode, k.Order, search.Normalize(k.Pattern))
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
