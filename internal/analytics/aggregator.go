package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
)

// maxLatencies bounds the latency window used for percentiles.
const maxLatencies = 10000

type AggregatedStats struct {
	TotalSearches        int64            `json:"total_searches"`
	SearchesByMode       map[string]int64 `json:"searches_by_mode"`
	TotalRecommendations int64            `json:"total_recommendations"`
	EmptyRecommendations int64            `json:"empty_recommendations"`
	TotalBooksIndexed    int64            `json:"total_books_indexed"`
	CacheHits            int64            `json:"cache_hits"`
	CacheMisses          int64            `json:"cache_misses"`
	ZeroResultCount      int64            `json:"zero_result_count"`
	BadPatternCount      int64            `json:"bad_pattern_count"`
	AvgLatencyMs         float64          `json:"avg_latency_ms"`
	P50LatencyMs         int64            `json:"p50_latency_ms"`
	P95LatencyMs         int64            `json:"p95_latency_ms"`
	P99LatencyMs         int64            `json:"p99_latency_ms"`
	TopPatterns          []PatternCount   `json:"top_patterns"`
	ZeroResultPatterns   []PatternCount   `json:"zero_result_patterns"`
	QueriesPerMinute     float64          `json:"queries_per_minute"`
}

type PatternCount struct {
	Pattern string `json:"pattern"`
	Count   int64  `json:"count"`
}

// Aggregator folds events into running totals. Counters restored from a
// snapshot carry over; latencies and pattern rankings start fresh.
type Aggregator struct {
	mu                 sync.RWMutex
	totalSearches      int64
	searchesByMode     map[string]int64
	recommendations    int64
	emptyRecs          int64
	booksIndexed       int64
	cacheHits          int64
	cacheMisses        int64
	zeroResults        int64
	badPatterns        int64
	latencies          []int64
	next               int
	patternCounts      map[string]int64
	zeroResultPatterns map[string]int64
	startTime          time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		searchesByMode:     make(map[string]int64),
		latencies:          make([]int64, 0, 1024),
		patternCounts:      make(map[string]int64),
		zeroResultPatterns: make(map[string]int64),
		startTime:          time.Now(),
		logger:             slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes one message from the events topic. Undecodable
// messages are logged and skipped so they do not block the partition.
func (a *Aggregator) HandleEvent() kafka.Handler {
	return func(ctx context.Context, key, value []byte) error {
		if err := a.Record(value); err != nil {
			a.logger.Error("failed to decode analytics event", "error", err)
		}
		return nil
	}
}

// Record applies one JSON-encoded event.
func (a *Aggregator) Record(value []byte) error {
	var env envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decoding event envelope: %w", err)
	}
	switch env.Type {
	case EventSearch, EventBadPattern:
		ev, err := kafka.Decode[SearchEvent](value)
		if err != nil {
			return err
		}
		a.RecordSearch(ev)
	case EventRecommend:
		ev, err := kafka.Decode[RecommendEvent](value)
		if err != nil {
			return err
		}
		a.RecordRecommend(ev)
	case EventIndexBook:
		ev, err := kafka.Decode[IndexEvent](value)
		if err != nil {
			return err
		}
		a.RecordIndex(ev)
	default:
		return fmt.Errorf("unknown event type %q", env.Type)
	}
	return nil
}

func (a *Aggregator) RecordSearch(ev SearchEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if ev.Type == EventBadPattern {
		a.badPatterns++
		return
	}
	a.totalSearches++
	a.searchesByMode[ev.Mode]++
	if ev.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	a.patternCounts[ev.Pattern]++
	if ev.Results == 0 {
		a.zeroResults++
		a.zeroResultPatterns[ev.Pattern]++
	}
	a.addLatency(ev.LatencyMs)
}

func (a *Aggregator) RecordRecommend(ev RecommendEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recommendations++
	if ev.Results == 0 {
		a.emptyRecs++
	}
}

func (a *Aggregator) RecordIndex(IndexEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.booksIndexed++
}

// addLatency keeps the most recent maxLatencies samples as a ring.
func (a *Aggregator) addLatency(ms int64) {
	if len(a.latencies) < maxLatencies {
		a.latencies = append(a.latencies, ms)
		return
	}
	a.latencies[a.next] = ms
	a.next = (a.next + 1) % maxLatencies
}

// Restore seeds the counters from a previously saved snapshot.
func (a *Aggregator) Restore(s AggregatedStats) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.totalSearches = s.TotalSearches
	for mode, n := range s.SearchesByMode {
		a.searchesByMode[mode] = n
	}
	a.recommendations = s.TotalRecommendations
	a.emptyRecs = s.EmptyRecommendations
	a.booksIndexed = s.TotalBooksIndexed
	a.cacheHits = s.CacheHits
	a.cacheMisses = s.CacheMisses
	a.zeroResults = s.ZeroResultCount
	a.badPatterns = s.BadPatternCount
	a.logger.Info("analytics restored from snapshot", "total_searches", s.TotalSearches)
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:        a.totalSearches,
		SearchesByMode:       make(map[string]int64, len(a.searchesByMode)),
		TotalRecommendations: a.recommendations,
		EmptyRecommendations: a.emptyRecs,
		TotalBooksIndexed:    a.booksIndexed,
		CacheHits:            a.cacheHits,
		CacheMisses:          a.cacheMisses,
		ZeroResultCount:      a.zeroResults,
		BadPatternCount:      a.badPatterns,
	}
	for mode, n := range a.searchesByMode {
		stats.SearchesByMode[mode] = n
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopPatterns = topN(a.patternCounts, 10)
	stats.ZeroResultPatterns = topN(a.zeroResultPatterns, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN ranks by count, ties alphabetically.
func topN(counts map[string]int64, n int) []PatternCount {
	result := make([]PatternCount, 0, len(counts))
	for pattern, count := range counts {
		result = append(result, PatternCount{Pattern: pattern, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Pattern < result[j].Pattern
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
