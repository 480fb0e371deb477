package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]any
}

func (p *recordingPublisher) PublishBatch(_ context.Context, keys []string, values []any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(keys) != len(values) {
		return errors.New("length mismatch")
	}
	p.batches = append(p.batches, append([]any(nil), values...))
	return nil
}

func (p *recordingPublisher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 100, 2, time.Hour)
	c.Start(context.Background())

	c.Track(SearchEvent{Type: EventSearch, Pattern: "a"})
	c.Track(SearchEvent{Type: EventSearch, Pattern: "b"})
	require.Eventually(t, func() bool { return pub.total() == 2 }, time.Second, 5*time.Millisecond)

	c.Track(SearchEvent{Type: EventSearch, Pattern: "c"})
	c.Close()
	assert.Equal(t, 3, pub.total())
}

func TestCollectorFlushesOnInterval(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 100, 50, 10*time.Millisecond)
	c.Start(context.Background())
	defer c.Close()

	c.Track(IndexEvent{Type: EventIndexBook, BookID: 1})
	require.Eventually(t, func() bool { return pub.total() == 1 }, time.Second, 5*time.Millisecond)
}

func TestCollectorFlushesOnCancel(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 100, 50, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	c.Track(SearchEvent{Type: EventSearch})
	time.Sleep(20 * time.Millisecond)
	cancel()
	c.Close()
	assert.Equal(t, 1, pub.total())
}

func TestCollectorDropsWhenFull(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 1, 10, time.Hour)
	c.Track(SearchEvent{})
	c.Track(SearchEvent{})
	assert.Len(t, c.eventCh, 1)
}

func encode(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestAggregatorRecordsEvents(t *testing.T) {
	a := NewAggregator()
	handle := a.HandleEvent()
	ctx := context.Background()

	events := []any{
		SearchEvent{Type: EventSearch, Mode: ModeTerm, Pattern: "whale", Results: 3, LatencyMs: 10, CacheHit: true},
		SearchEvent{Type: EventSearch, Mode: ModePattern, Pattern: "wh(a|e)le", Results: 0, LatencyMs: 30},
		SearchEvent{Type: EventSearch, Mode: ModeTerm, Pattern: "whale", Results: 3, LatencyMs: 20},
		SearchEvent{Type: EventBadPattern, Mode: ModePattern, Pattern: "(a|"},
		RecommendEvent{Type: EventRecommend, BookID: 1, Results: 0},
		IndexEvent{Type: EventIndexBook, BookID: 1, Words: 100},
	}
	for _, ev := range events {
		require.NoError(t, handle(ctx, nil, encode(t, ev)))
	}
	require.NoError(t, handle(ctx, nil, []byte("not json")))
	require.NoError(t, handle(ctx, nil, []byte(`{"type":"mystery"}`)))

	s := a.Stats()
	assert.Equal(t, int64(3), s.TotalSearches)
	assert.Equal(t, int64(2), s.SearchesByMode[ModeTerm])
	assert.Equal(t, int64(1), s.CacheHits)
	assert.Equal(t, int64(2), s.CacheMisses)
	assert.Equal(t, int64(1), s.ZeroResultCount)
	assert.Equal(t, int64(1), s.BadPatternCount)
	assert.Equal(t, int64(1), s.TotalRecommendations)
	assert.Equal(t, int64(1), s.EmptyRecommendations)
	assert.Equal(t, int64(1), s.TotalBooksIndexed)
	assert.InDelta(t, 20.0, s.AvgLatencyMs, 0.001)
	assert.Equal(t, int64(20), s.P50LatencyMs)
	require.NotEmpty(t, s.TopPatterns)
	assert.Equal(t, PatternCount{Pattern: "whale", Count: 2}, s.TopPatterns[0])
	assert.Equal(t, []PatternCount{{Pattern: "wh(a|e)le", Count: 1}}, s.ZeroResultPatterns)
}

func TestAggregatorLatencyWindowIsBounded(t *testing.T) {
	a := NewAggregator()
	for i := 0; i < maxLatencies+10; i++ {
		a.RecordSearch(SearchEvent{Type: EventSearch, Pattern: "x", Results: 1, LatencyMs: int64(i)})
	}
	assert.Len(t, a.latencies, maxLatencies)
	assert.Equal(t, int64(maxLatencies+10), a.Stats().TotalSearches)
}

func TestAggregatorRestore(t *testing.T) {
	a := NewAggregator()
	a.Restore(AggregatedStats{TotalSearches: 40, SearchesByMode: map[string]int64{ModeTerm: 40}, CacheHits: 4})
	a.RecordSearch(SearchEvent{Type: EventSearch, Mode: ModeTerm, Pattern: "x", Results: 1})

	s := a.Stats()
	assert.Equal(t, int64(41), s.TotalSearches)
	assert.Equal(t, int64(41), s.SearchesByMode[ModeTerm])
	assert.Equal(t, int64(4), s.CacheHits)
}

type stubLister struct {
	snaps []AggregatedStats
	limit int
	err   error
}

func (s *stubLister) ListSnapshots(_ context.Context, limit int) ([]AggregatedStats, error) {
	s.limit = limit
	return s.snaps, s.err
}

func TestHandlerStatsAndHistory(t *testing.T) {
	a := NewAggregator()
	a.RecordSearch(SearchEvent{Type: EventSearch, Mode: ModeTerm, Pattern: "x", Results: 1})
	lister := &stubLister{snaps: []AggregatedStats{{TotalSearches: 7}}}
	h := NewHandler(a, lister)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats AggregatedStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&stats))
	assert.Equal(t, int64(1), stats.TotalSearches)

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 100, lister.limit)

	rec = httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history?limit=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	NewHandler(a, nil).History(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/history", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
