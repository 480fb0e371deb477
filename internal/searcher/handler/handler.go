// Package handler exposes book search, recommendations and the corpus
// vocabulary over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/automaton"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/searcher/vocabulary"
	apperrors "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/tracing"
)

// Engine ranks and resolves. *search.Engine satisfies it.
type Engine interface {
	Rank(ctx context.Context, pattern string, order search.Order) ([]search.Hit, error)
	RankPattern(ctx context.Context, pattern string, order search.Order) ([]search.Hit, error)
	Resolve(ctx context.Context, hits []search.Hit) ([]search.Book, error)
}

// Recommender returns the neighbors of a book. *recommend.Recommender
// satisfies it.
type Recommender interface {
	Recommend(ctx context.Context, bookID int64) ([]search.Book, error)
}

// Tracker receives analytics events. *analytics.Collector satisfies it.
type Tracker interface {
	Track(event any)
}

type Options struct {
	DefaultOrder search.Order
	MaxResults   int
	SuggestLimit int
	// TraceSampleRate is the fraction of requests that get a span tree
	// logged. Zero disables tracing.
	TraceSampleRate float64
}

type Handler struct {
	engine      Engine
	recommender Recommender
	cache       *cache.QueryCache
	vocab       *vocabulary.Vocabulary
	tracker     Tracker
	metrics     *metrics.Metrics
	opts        Options
	logger      *slog.Logger
}

// New wires the handler. cache, vocab, tracker and m may be nil; the
// features behind them are then disabled.
func New(
	engine Engine,
	recommender Recommender,
	queryCache *cache.QueryCache,
	vocab *vocabulary.Vocabulary,
	tracker Tracker,
	m *metrics.Metrics,
	opts Options,
) *Handler {
	if opts.DefaultOrder == "" {
		opts.DefaultOrder = search.OrderOccurrence
	}
	return &Handler{
		engine:      engine,
		recommender: recommender,
		cache:       queryCache,
		vocab:       vocab,
		tracker:     tracker,
		metrics:     m,
		opts:        opts,
		logger:      slog.Default().With("component", "search-handler"),
	}
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/books/search/{query}", h.Search)
	mux.HandleFunc("GET /api/v1/books/advanced-search/{query}", h.AdvancedSearch)
	mux.HandleFunc("GET /api/v1/recommendations/{id}", h.Recommendations)
	mux.HandleFunc("GET /api/v1/terms/suggest", h.Suggest)
	mux.HandleFunc("GET /api/v1/terms/match/{pattern}", h.MatchTerms)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
}

type searchResponse struct {
	Query    string        `json:"query"`
	Order    search.Order  `json:"order"`
	Mode     string        `json:"mode"`
	Total    int           `json:"total"`
	CacheHit bool          `json:"cache_hit"`
	TookMs   int64         `json:"took_ms"`
	Books    []search.Book `json:"books"`
}

// Search answers a word with the term index and anything else with the
// automaton scan.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, false)
}

// AdvancedSearch always compiles and scans, even for a plain word.
func (h *Handler) AdvancedSearch(w http.ResponseWriter, r *http.Request) {
	h.search(w, r, true)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request, advanced bool) {
	start := time.Now()
	query := search.Normalize(r.PathValue("query"))
	ctx, span := h.startTrace(r, "http.search")
	defer h.endTrace(ctx, span)
	log := logger.FromContext(ctx)

	mode := analytics.ModePattern
	switch {
	case advanced:
		mode = analytics.ModeAdvanced
	case automaton.IsLiteral(query):
		mode = analytics.ModeTerm
	}
	span.SetAttr("query", query)
	span.SetAttr("mode", mode)

	order, limit, err := h.searchParams(r)
	if err != nil {
		h.writeError(w, err, "invalid request")
		return
	}

	rank := h.engine.Rank
	if advanced {
		rank = h.engine.RankPattern
	}
	compute := func(ctx context.Context) ([]search.Hit, error) { return rank(ctx, query, order) }

	var hits []search.Hit
	cacheHit := false
	cacheStatus := "disabled"
	if h.cache != nil {
		hits, cacheHit, err = h.cache.GetOrCompute(ctx, cache.Key{Mode: mode, Pattern: query, Order: order}, compute)
		cacheStatus = "miss"
		if cacheHit {
			cacheStatus = "hit"
		}
	} else {
		hits, err = compute(ctx)
	}
	if err == nil && limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	var books []search.Book
	if err == nil {
		books, err = h.engine.Resolve(ctx, hits)
	}
	latency := time.Since(start)

	if err != nil {
		outcome := "error"
		eventType := analytics.EventSearch
		if errors.Is(err, apperrors.ErrPatternSyntax) {
			outcome = "bad_pattern"
			eventType = analytics.EventBadPattern
			log.Info("rejected pattern", "query", query, "error", err)
		} else {
			log.Error("search failed", "query", query, "mode", mode, "error", err)
		}
		h.observeSearch(mode, outcome, cacheStatus, latency, 0)
		if eventType == analytics.EventBadPattern {
			h.track(analytics.SearchEvent{
				Type:      eventType,
				Mode:      mode,
				Pattern:   query,
				Order:     string(order),
				LatencyMs: latency.Milliseconds(),
				Timestamp: time.Now().UTC(),
				RequestID: middleware.GetRequestID(r),
			})
		}
		h.writeError(w, err, "search failed")
		return
	}

	outcome := "hit"
	if len(books) == 0 {
		outcome = "zero_result"
	}
	h.observeSearch(mode, outcome, cacheStatus, latency, len(books))
	h.track(analytics.SearchEvent{
		Type:      analytics.EventSearch,
		Mode:      mode,
		Pattern:   query,
		Order:     string(order),
		Results:   len(books),
		LatencyMs: latency.Milliseconds(),
		CacheHit:  cacheHit,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r),
	})
	log.Info("search completed",
		"query", query,
		"mode", mode,
		"order", order,
		"returned", len(books),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	span.SetAttr("returned", len(books))

	h.writeJSON(w, http.StatusOK, searchResponse{
		Query:    query,
		Order:    order,
		Mode:     mode,
		Total:    len(books),
		CacheHit: cacheHit,
		TookMs:   latency.Milliseconds(),
		Books:    books,
	})
}

func (h *Handler) searchParams(r *http.Request) (search.Order, int, error) {
	order, err := search.ParseOrder(r.URL.Query().Get("order"), h.opts.DefaultOrder)
	if err != nil {
		return "", 0, err
	}
	limit, err := h.limitParam(r, h.opts.MaxResults)
	if err != nil {
		return "", 0, err
	}
	return order, limit, nil
}

// limitParam reads ?limit=, capped at ceiling when ceiling is positive.
func (h *Handler) limitParam(r *http.Request, ceiling int) (int, error) {
	s := r.URL.Query().Get("limit")
	if s == "" {
		return ceiling, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "limit must be a positive integer")
	}
	if ceiling > 0 && n > ceiling {
		n = ceiling
	}
	return n, nil
}

type recommendResponse struct {
	BookID int64         `json:"book_id"`
	Total  int           `json:"total"`
	Books  []search.Book `json:"books"`
}

func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := h.startTrace(r, "http.recommend")
	defer h.endTrace(ctx, span)

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "book id must be a positive integer"), "")
		return
	}
	books, err := h.recommender.Recommend(ctx, id)
	if err != nil {
		logger.FromContext(ctx).Error("recommendation failed", "book_id", id, "error", err)
		h.observeRecommend("error")
		h.writeError(w, err, "recommendation failed")
		return
	}
	outcome := "found"
	if len(books) == 0 {
		outcome = "empty"
	}
	h.observeRecommend(outcome)
	h.track(analytics.RecommendEvent{
		Type:      analytics.EventRecommend,
		BookID:    id,
		Results:   len(books),
		LatencyMs: time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r),
	})
	h.writeJSON(w, http.StatusOK, recommendResponse{BookID: id, Total: len(books), Books: books})
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	if h.vocab == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "vocabulary is disabled"})
		return
	}
	p := r.URL.Query().Get("prefix")
	if p == "" {
		h.writeError(w, apperrors.New(apperrors.ErrInvalidInput, http.StatusBadRequest, "query parameter 'prefix' is required"), "")
		return
	}
	limit, err := h.limitParam(r, h.opts.SuggestLimit)
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	entries := h.vocab.Suggest(p, limit)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"prefix":      search.Normalize(p),
		"suggestions": entries,
	})
}

func (h *Handler) MatchTerms(w http.ResponseWriter, r *http.Request) {
	if h.vocab == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "vocabulary is disabled"})
		return
	}
	limit, err := h.limitParam(r, h.opts.SuggestLimit)
	if err != nil {
		h.writeError(w, err, "")
		return
	}
	pattern := r.PathValue("pattern")
	res, err := h.vocab.Match(pattern, limit)
	if err != nil {
		h.writeError(w, err, "matching terms failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"pattern": search.Normalize(pattern),
		"total":   res.Total,
		"terms":   res.Entries,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "caching is disabled"})
		return
	}
	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "cache invalidation failed"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

// startTrace opens a root span for a sampled request. Unsampled requests
// get a nil span, which every span method ignores.
func (h *Handler) startTrace(r *http.Request, name string) (context.Context, *tracing.Span) {
	ctx := r.Context()
	if h.opts.TraceSampleRate <= 0 || rand.Float64() >= h.opts.TraceSampleRate {
		return ctx, nil
	}
	return tracing.StartSpan(ctx, name, middleware.GetRequestID(r))
}

func (h *Handler) endTrace(ctx context.Context, span *tracing.Span) {
	if span == nil {
		return
	}
	span.End()
	span.Log(logger.FromContext(ctx))
}

func (h *Handler) observeSearch(mode, outcome, cacheStatus string, d time.Duration, results int) {
	if h.metrics != nil {
		h.metrics.ObserveSearch(mode, outcome, cacheStatus, d, results)
	}
}

func (h *Handler) observeRecommend(outcome string) {
	if h.metrics != nil {
		h.metrics.ObserveRecommend(outcome)
	}
}

func (h *Handler) track(event any) {
	if h.tracker != nil {
		h.tracker.Track(event)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

// writeError answers with the status the error maps to. Server-side errors
// show fallback instead of their details.
func (h *Handler) writeError(w http.ResponseWriter, err error, fallback string) {
	if fallback == "" {
		fallback = http.StatusText(http.StatusInternalServerError)
	}
	h.writeJSON(w, apperrors.HTTPStatusCode(err), map[string]string{"error": apperrors.PublicMessage(err, fallback)})
}
