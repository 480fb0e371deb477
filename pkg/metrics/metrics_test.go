package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestMetrics_Observers(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveScan(3, 40)
	m.ObserveScan(2, 10)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)
	m.ObserveBreaker("catalog", 1)
	m.ObserveCompile(2*time.Millisecond, 4)

	body := scrape(t, m)
	assert.Contains(t, body, "book_search_books_scanned_total 5")
	assert.Contains(t, body, "book_search_words_tested_total 50")
	assert.Contains(t, body, "book_search_cache_hits_total 1")
	assert.Contains(t, body, "book_search_cache_misses_total 2")
	assert.Contains(t, body, `circuit_breaker_state{name="catalog"} 1`)
	assert.Contains(t, body, "pattern_automaton_states_count 1")
}

func TestMetrics_RequestObservers(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveSearch("term", "hit", "miss", 5*time.Millisecond, 3)
	m.ObserveSearch("pattern", "bad_pattern", "disabled", time.Millisecond, 0)
	m.ObserveRecommend("empty")
	m.ObserveIngest()
	m.ObserveIndexed("ok")

	body := scrape(t, m)
	assert.Contains(t, body, `book_search_queries_total{mode="term",outcome="hit"} 1`)
	assert.Contains(t, body, `book_search_queries_total{mode="pattern",outcome="bad_pattern"} 1`)
	assert.Contains(t, body, "book_search_results_count_count 1")
	assert.Contains(t, body, `book_recommendations_total{outcome="empty"} 1`)
	assert.Contains(t, body, "books_ingested_total 1")
	assert.Contains(t, body, `books_indexed_total{status="ok"} 1`)
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}
