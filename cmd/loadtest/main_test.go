package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildTargets(t *testing.T) {
	targets := buildTargets("http://x/", []string{"whale"}, []string{"a b"}, []int64{3})
	require.Len(t, targets, 4)
	assert.Equal(t, target{"term", "http://x/api/v1/books/search/whale"}, targets[0])
	assert.Equal(t, "pattern", targets[1].kind)
	assert.Equal(t, "http://x/api/v1/books/search/a%20b?order=rank", targets[1].path)
	assert.Equal(t, "http://x/api/v1/books/advanced-search/a%20b", targets[2].path)
	assert.Equal(t, "http://x/api/v1/recommendations/3", targets[3].path)
}

func TestPercentile(t *testing.T) {
	sorted := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(5), percentile(sorted, 50))
	assert.Equal(t, time.Duration(10), percentile(sorted, 99))
	assert.Equal(t, time.Duration(1), percentile(sorted, 0))
	assert.Zero(t, percentile(nil, 50))
}

func TestRunAgainstServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "recommendations") {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"not found"}`)
			return
		}
		fmt.Fprint(w, `{"cache_hit":true,"books":[]}`)
	}))
	defer srv.Close()

	targets := buildTargets(srv.URL, []string{"whale"}, nil, []int64{1})
	stats := run(targets, 2, 100*time.Millisecond)

	term := stats.kind("term")
	assert.Positive(t, term.requests.Load())
	assert.Equal(t, term.requests.Load(), term.cacheHits.Load())
	assert.Zero(t, term.errors.Load())
	assert.Zero(t, stats.kind("recommend").errors.Load())
	assert.True(t, printReport(stats, 100*time.Millisecond))
}
