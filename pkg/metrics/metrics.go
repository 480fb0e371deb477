// Package metrics defines the Prometheus collectors shared by the book
// search services.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	SearchQueriesTotal   *prometheus.CounterVec
	SearchLatency        *prometheus.HistogramVec
	SearchResultsCount   prometheus.Histogram
	CompileLatency       prometheus.Histogram
	AutomatonStates      prometheus.Histogram
	BooksScannedTotal    prometheus.Counter
	WordsTestedTotal     prometheus.Counter
	CacheHitsTotal       prometheus.Counter
	CacheMissesTotal     prometheus.Counter
	RecommendationsTotal *prometheus.CounterVec

	BooksIngestedTotal  prometheus.Counter
	BooksIndexedTotal   *prometheus.CounterVec
	CircuitBreakerState *prometheus.GaugeVec

	gatherer prometheus.Gatherer
}

// New creates every collector and registers it with reg. Tests pass a fresh
// prometheus.NewRegistry(); binaries pass prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	latency := []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: latency,
		}, []string{"method", "path"}),
		HTTPRequestsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "HTTP requests currently being served.",
		}),
		SearchQueriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "book_search_queries_total",
			Help: "Searches by mode (term, pattern) and outcome (hit, zero_result, bad_pattern, error).",
		}, []string{"mode", "outcome"}),
		SearchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "book_search_latency_seconds",
			Help:    "End-to-end search latency in seconds.",
			Buckets: latency,
		}, []string{"mode", "cache_status"}),
		SearchResultsCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "book_search_results_count",
			Help:    "Books returned per search.",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 500},
		}),
		CompileLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pattern_compile_seconds",
			Help:    "Time to compile a pattern into a minimized automaton.",
			Buckets: []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),
		AutomatonStates: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pattern_automaton_states",
			Help:    "States of the minimized automaton per compiled pattern.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		BooksScannedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "book_search_books_scanned_total",
			Help: "Occurrence indices scanned by pattern searches.",
		}),
		WordsTestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "book_search_words_tested_total",
			Help: "Words run through an automaton by pattern searches.",
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "book_search_cache_hits_total",
			Help: "Ranked results served from the cache.",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "book_search_cache_misses_total",
			Help: "Ranked results computed because the cache had none.",
		}),
		RecommendationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "book_recommendations_total",
			Help: "Recommendation lookups by outcome (found, empty, error).",
		}, []string{"outcome"}),
		BooksIngestedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "books_ingested_total",
			Help: "Books accepted by the ingestion service.",
		}),
		BooksIndexedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "books_indexed_total",
			Help: "Occurrence indices written by the indexer, by status.",
		}, []string{"status"}),
		CircuitBreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
		}, []string{"name"}),
		gatherer: prometheus.DefaultGatherer,
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.SearchResultsCount,
		m.CompileLatency,
		m.AutomatonStates,
		m.BooksScannedTotal,
		m.WordsTestedTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RecommendationsTotal,
		m.BooksIngestedTotal,
		m.BooksIndexedTotal,
		m.CircuitBreakerState,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObserveCompile records one pattern compilation.
func (m *Metrics) ObserveCompile(d time.Duration, states int) {
	m.CompileLatency.Observe(d.Seconds())
	m.AutomatonStates.Observe(float64(states))
}

// ObserveScan records one full occurrence-index scan.
func (m *Metrics) ObserveScan(books, words int) {
	m.BooksScannedTotal.Add(float64(books))
	m.WordsTestedTotal.Add(float64(words))
}

// ObserveSearch records one search request. outcome is hit, zero_result,
// bad_pattern or error; cacheStatus is hit, miss or disabled.
func (m *Metrics) ObserveSearch(mode, outcome, cacheStatus string, d time.Duration, results int) {
	m.SearchQueriesTotal.WithLabelValues(mode, outcome).Inc()
	m.SearchLatency.WithLabelValues(mode, cacheStatus).Observe(d.Seconds())
	if outcome == "hit" || outcome == "zero_result" {
		m.SearchResultsCount.Observe(float64(results))
	}
}

// ObserveRecommend records one recommendation lookup: found, empty or error.
func (m *Metrics) ObserveRecommend(outcome string) {
	m.RecommendationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveIngest counts one stored book.
func (m *Metrics) ObserveIngest() {
	m.BooksIngestedTotal.Inc()
}

// ObserveIndexed records one occurrence-index write: ok or error.
func (m *Metrics) ObserveIndexed(status string) {
	m.BooksIndexedTotal.WithLabelValues(status).Inc()
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(hit bool) {
	if hit {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
}

// ObserveBreaker publishes a circuit breaker state (0 closed, 1 open,
// 2 half-open).
func (m *Metrics) ObserveBreaker(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(name).Set(float64(state))
}

// Handler serves the collectors registered with this Metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
