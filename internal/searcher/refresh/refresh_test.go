package refresh

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/searcher/vocabulary"
)

type countingCache struct {
	calls atomic.Int64
	err   error
}

func (c *countingCache) Invalidate(context.Context) (int64, error) {
	c.calls.Add(1)
	return 3, c.err
}

func TestRefreshRebuildsVocabulary(t *testing.T) {
	ctx := context.Background()
	store := catalog.NewMemory()
	vocab := vocabulary.New(store)
	require.NoError(t, vocab.Rebuild(ctx))
	assert.Zero(t, vocab.Words())

	store.PutIndex(1, search.OccurrenceIndex{"whale": 2, "sea": 1})
	c := &countingCache{}
	New(c, vocab, time.Millisecond).Refresh(ctx)

	assert.Equal(t, int64(1), c.calls.Load())
	assert.Equal(t, 2, vocab.Words())
}

func TestRefreshToleratesCacheErrors(t *testing.T) {
	c := &countingCache{err: errors.New("redis down")}
	store := catalog.NewMemory()
	store.PutIndex(1, search.OccurrenceIndex{"whale": 2})
	vocab := vocabulary.New(store)

	New(c, vocab, 0).Refresh(context.Background())
	assert.Equal(t, 1, vocab.Words())
}

func TestRefreshWithoutTargets(t *testing.T) {
	assert.NotPanics(t, func() { New(nil, nil, 0).Refresh(context.Background()) })
}

func TestRunCoalescesBursts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := &countingCache{}
	r := New(c, nil, 30*time.Millisecond)
	go r.Run(ctx)

	h := r.HandleEvent()
	for i := 0; i < 10; i++ {
		ev, _ := json.Marshal(indexer.IndexUpdatedEvent{BookID: int64(i + 1), Reason: indexer.ReasonIndexed})
		require.NoError(t, h(ctx, nil, ev))
	}

	assert.Eventually(t, func() bool { return c.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int64(1), c.calls.Load())

	r.Schedule()
	assert.Eventually(t, func() bool { return c.calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestHandleEventAcceptsMalformedMessages(t *testing.T) {
	r := New(nil, nil, time.Millisecond)
	require.NoError(t, r.HandleEvent()(context.Background(), []byte("k"), []byte("{nope")))
	select {
	case <-r.pending:
	default:
		t.Fatal("refresh not scheduled")
	}
}
