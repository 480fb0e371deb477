// Command loadtest drives a running searcher with a mix of term, pattern,
// advanced and recommendation requests and reports latency per request kind.
//
// Usage:
//
//	go run ./cmd/loadtest -url http://localhost:8080 -concurrency 20 -duration 1m
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type target struct {
	kind string
	path string
}

type kindStats struct {
	requests  atomic.Int64
	errors    atomic.Int64
	cacheHits atomic.Int64
	mu        sync.Mutex
	latencies []time.Duration
	statuses  map[int]int64
}

type Stats struct {
	mu    sync.Mutex
	kinds map[string]*kindStats
}

func NewStats() *Stats {
	return &Stats{kinds: make(map[string]*kindStats)}
}

func (s *Stats) kind(name string) *kindStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.kinds[name]
	if !ok {
		k = &kindStats{statuses: make(map[int]int64)}
		s.kinds[name] = k
	}
	return k
}

func (s *Stats) Record(kind string, d time.Duration, status int, cacheHit bool, err error) {
	k := s.kind(kind)
	k.requests.Add(1)
	if err != nil {
		k.errors.Add(1)
		return
	}
	if status >= 400 && status != http.StatusNotFound {
		k.errors.Add(1)
	}
	if cacheHit {
		k.cacheHits.Add(1)
	}
	k.mu.Lock()
	k.latencies = append(k.latencies, d)
	k.statuses[status]++
	k.mu.Unlock()
}

// buildTargets expands terms and patterns into the request mix.
func buildTargets(base string, terms, patterns []string, bookIDs []int64) []target {
	base = strings.TrimRight(base, "/")
	var out []target
	for _, t := range terms {
		out = append(out, target{"term", fmt.Sprintf("%s/api/v1/books/search/%s", base, url.PathEscape(t))})
	}
	for _, p := range patterns {
		out = append(out,
			target{"pattern", fmt.Sprintf("%s/api/v1/books/search/%s?order=rank", base, url.PathEscape(p))},
			target{"advanced", fmt.Sprintf("%s/api/v1/books/advanced-search/%s", base, url.PathEscape(p))},
		)
	}
	for _, id := range bookIDs {
		out = append(out, target{"recommend", fmt.Sprintf("%s/api/v1/recommendations/%d", base, id)})
	}
	return out
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	maxBook := flag.Int64("books", 20, "recommendations are requested for book ids 1..books")
	flag.Parse()

	terms := []string{"whale", "sea", "captain", "love", "garden", "war", "peace", "monster"}
	patterns := []string{"whal(e|es)", "lov(e|er|ers)", "s(a|e)(a|e)*", "gard(e|a)n", "captain(s)*", "(m|w)on(s|k)*"}
	ids := make([]int64, 0, *maxBook)
	for i := int64(1); i <= *maxBook; i++ {
		ids = append(ids, i)
	}
	targets := buildTargets(*baseURL, terms, patterns, ids)

	fmt.Println("=== Book Search Load Test ===")
	fmt.Printf("Target:      %s\n", *baseURL)
	fmt.Printf("Concurrency: %d\n", *concurrency)
	fmt.Printf("Duration:    %s\n", *duration)
	fmt.Printf("Requests:    %d distinct\n", len(targets))
	fmt.Println()

	stats := run(targets, *concurrency, *duration)
	if !printReport(stats, *duration) {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the searcher running?")
		os.Exit(1)
	}
}

func run(targets []target, concurrency int, duration time.Duration) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        concurrency * 2,
			MaxIdleConnsPerHost: concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < concurrency; w++ {
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				t := targets[i%len(targets)]
				start := time.Now()
				status, hit, err := fetch(ctx, client, t.path)
				if ctx.Err() != nil {
					return nil
				}
				stats.Record(t.kind, time.Since(start), status, hit, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return stats
}

func fetch(ctx context.Context, client *http.Client, rawURL string) (int, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, false, err
	}
	defer resp.Body.Close()
	var body struct {
		CacheHit bool `json:"cache_hit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil && err != io.EOF {
		return resp.StatusCode, false, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, body.CacheHit, nil
}

// printReport returns false when nothing completed.
func printReport(stats *Stats, duration time.Duration) bool {
	stats.mu.Lock()
	names := make([]string, 0, len(stats.kinds))
	for name := range stats.kinds {
		names = append(names, name)
	}
	stats.mu.Unlock()
	sort.Strings(names)

	var total int64
	for _, name := range names {
		k := stats.kind(name)
		n := k.requests.Load()
		total += n

		k.mu.Lock()
		latencies := slices.Clone(k.latencies)
		codes := make([]int, 0, len(k.statuses))
		for c := range k.statuses {
			codes = append(codes, c)
		}
		sort.Ints(codes)
		statusLine := make([]string, 0, len(codes))
		for _, c := range codes {
			statusLine = append(statusLine, fmt.Sprintf("%d=%d", c, k.statuses[c]))
		}
		k.mu.Unlock()
		slices.Sort(latencies)

		fmt.Printf("=== %s ===\n", name)
		fmt.Printf("Requests:   %d (%.1f/s)\n", n, float64(n)/duration.Seconds())
		fmt.Printf("Errors:     %d\n", k.errors.Load())
		if name != "recommend" && n > 0 {
			fmt.Printf("Cache hits: %.1f%%\n", float64(k.cacheHits.Load())/float64(n)*100)
		}
		if len(latencies) > 0 {
			fmt.Printf("P50 %s  P95 %s  P99 %s  Max %s\n",
				percentile(latencies, 50), percentile(latencies, 95),
				percentile(latencies, 99), latencies[len(latencies)-1])
		}
		fmt.Printf("Statuses:   %s\n\n", strings.Join(statusLine, " "))
	}
	fmt.Printf("Total requests: %d (%.1f/s)\n", total, float64(total)/duration.Seconds())
	return total > 0
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
