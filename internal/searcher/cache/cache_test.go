package cache

import (
	"context"
	"errors"
	"path"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
)

type memBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemBackend() *memBackend {
	return &memBackend{data: make(map[string][]byte)}
}

func (b *memBackend) Get(_ context.Context, key string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v, ok := b.data[key]
	if !ok {
		return nil, redis.Nil
	}
	return v, nil
}

func (b *memBackend) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[key] = value
	return nil
}

func (b *memBackend) FlushByPattern(_ context.Context, pattern string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var n int64
	for k := range b.data {
		if ok, _ := path.Match(pattern, k); ok {
			delete(b.data, k)
			n++
		}
	}
	return n, nil
}

type countingObserver struct {
	hits, misses atomic.Int64
}

func (o *countingObserver) ObserveCache(hit bool) {
	if hit {
		o.hits.Add(1)
		return
	}
	o.misses.Add(1)
}

func TestGetOrComputeCachesHits(t *testing.T) {
	obs := &countingObserver{}
	c := New(newMemBackend(), time.Minute, obs)
	ctx := context.Background()
	k := Key{Mode: "pattern", Pattern: "Whale", Order: search.OrderOccurrence}

	calls := 0
	compute := func(context.Context) ([]search.Hit, error) {
		calls++
		return []search.Hit{{BookID: 2, Occurrences: 5}, {BookID: 1, Occurrences: 1}}, nil
	}

	first, cached, err := c.GetOrCompute(ctx, k, compute)
	require.NoError(t, err)
	assert.False(t, cached)

	k.Pattern = "whale"
	second, cached, err := c.GetOrCompute(ctx, k, compute)
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, int64(1), obs.hits.Load())
	assert.Equal(t, int64(1), obs.misses.Load())
}

func TestKeysSeparateOrderAndMode(t *testing.T) {
	base := Key{Mode: "pattern", Pattern: "sea", Order: search.OrderOccurrence}
	variants := []Key{
		{Mode: "term", Pattern: "sea", Order: search.OrderOccurrence},
		{Mode: "pattern", Pattern: "sea", Order: search.OrderRank},
		{Mode: "pattern", Pattern: "seas", Order: search.OrderOccurrence},
	}
	for _, v := range variants {
		assert.NotEqual(t, buildKey(base), buildKey(v), "%+v", v)
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)
	ctx := context.Background()
	k := Key{Mode: "pattern", Pattern: "a", Order: search.OrderOccurrence}

	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(ctx, k, func(context.Context) ([]search.Hit, error) { return nil, boom })
	require.ErrorIs(t, err, boom)

	_, ok := c.Get(ctx, k)
	assert.False(t, ok)
}

func TestInvalidateDropsEverything(t *testing.T) {
	backend := newMemBackend()
	c := New(backend, time.Minute, nil)
	ctx := context.Background()

	c.Set(ctx, Key{Mode: "pattern", Pattern: "a"}, []search.Hit{{BookID: 1, Occurrences: 1}})
	c.Set(ctx, Key{Mode: "pattern", Pattern: "b"}, []search.Hit{})
	backend.data["other:key"] = []byte("x")

	n, err := c.Invalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Contains(t, backend.data, "other:key")

	_, ok := c.Get(ctx, Key{Mode: "pattern", Pattern: "a"})
	assert.False(t, ok)
}

func TestConcurrentMissesShareOneComputation(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)
	ctx := context.Background()
	k := Key{Mode: "pattern", Pattern: "(a|b)*"}

	var calls atomic.Int64
	release := make(chan struct{})
	compute := func(context.Context) ([]search.Hit, error) {
		calls.Add(1)
		<-release
		return []search.Hit{{BookID: 1, Occurrences: 3}}, nil
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hits, _, err := c.GetOrCompute(ctx, k, compute)
			assert.NoError(t, err)
			assert.Len(t, hits, 1)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.LessOrEqual(t, calls.Load(), int64(8))
	assert.GreaterOrEqual(t, calls.Load(), int64(1))
}

func TestCancelledCallerDoesNotFailSharedComputation(t *testing.T) {
	c := New(newMemBackend(), time.Minute, nil)
	k := Key{Mode: "pattern", Pattern: "whal(e|es)"}

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	var computeErr atomic.Value
	compute := func(ctx context.Context) ([]search.Hit, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			computeErr.Store(err)
			return nil, err
		}
		return []search.Hit{{BookID: 4, Occurrences: 2}}, nil
	}

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, _, err := c.GetOrCompute(firstCtx, k, compute)
		firstErr <- err
	}()
	<-started

	secondDone := make(chan []search.Hit, 1)
	go func() {
		hits, _, err := c.GetOrCompute(context.Background(), k, compute)
		assert.NoError(t, err)
		secondDone <- hits
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	assert.Equal(t, []search.Hit{{BookID: 4, Occurrences: 2}}, <-secondDone)
	assert.Nil(t, computeErr.Load())

	cached, ok := c.Get(context.Background(), k)
	require.True(t, ok)
	assert.Len(t, cached, 1)
}
