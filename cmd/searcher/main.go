// Command searcher serves book search, recommendations and vocabulary
// lookups over HTTP.
//
// It reads occurrence indices and neighbor lists from PostgreSQL, caches
// ranked results in Redis when available, publishes one analytics event per
// request to Kafka and refreshes its cache and vocabulary whenever the
// indexer announces a change on the index.updated topic.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/recommend"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/searcher/refresh"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/searcher/vocabulary"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/postgres"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service",
		"port", cfg.Server.Port,
		"default_order", cfg.Search.DefaultOrder,
		"max_results", cfg.Search.MaxResults,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := catalog.EnsureSchema(ctx, db); err != nil {
		slog.Error("failed to apply schema", "error", err)
		os.Exit(1)
	}
	store := catalog.NewPostgres(db, catalog.WithBreakerObserver(m.ObserveBreaker))
	slog.Info("connected to postgres", "database", cfg.Postgres.Database)

	engine := search.New(store,
		search.WithLimit(cfg.Search.MaxResults),
		search.WithObserver(m),
	)
	recommender := recommend.New(store, recommend.WithLimit(cfg.Recommend.MaxNeighbors))

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Search.CacheEnabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	vocab := vocabulary.New(store)
	if err := vocab.Rebuild(ctx); err != nil {
		slog.Warn("initial vocabulary build failed, term lookups empty until next refresh", "error", err)
	}

	var invalidator refresh.Invalidator
	if queryCache != nil {
		invalidator = queryCache
	}
	refresher := refresh.New(invalidator, vocab, refresh.DefaultDebounce)
	go refresher.Run(ctx)

	hostname, _ := os.Hostname()
	updates := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.IndexUpdated, refresher.HandleEvent(),
		kafka.WithGroup(fmt.Sprintf("%s-searcher-%s", cfg.Kafka.ConsumerGroup, hostname)),
	)
	go func() {
		if err := updates.Start(ctx); err != nil {
			slog.Error("index update consumer error", "error", err)
		}
	}()
	slog.Info("listening for index updates", "topic", cfg.Kafka.Topics.IndexUpdated)

	eventsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
	defer eventsProducer.Close()
	collector := analytics.NewCollector(eventsProducer, 10000, 100, time.Second)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.SearchEvents)

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(store, true))
	switch {
	case redisClient != nil:
		checker.Register("redis", health.PingCheck(redisClient, false))
	case cfg.Search.CacheEnabled:
		checker.Register("redis", health.PingCheck(nil, false))
	}
	checker.Register("vocabulary", func(context.Context) health.ComponentHealth {
		if vocab.BuiltAt().IsZero() {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not built"}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d words", vocab.Words())}
	})
	checker.Register("kafka", func(context.Context) health.ComponentHealth {
		st := updates.Stats()
		if st.Errors > 0 {
			return health.ComponentHealth{
				Status:  health.StatusDegraded,
				Message: fmt.Sprintf("%d read errors on %s", st.Errors, st.Topic),
			}
		}
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("lag %d", st.Lag)}
	})

	traceRate := 0.0
	if cfg.Tracing.Enabled {
		traceRate = cfg.Tracing.SampleRate
	}
	order, _ := search.ParseOrder(cfg.Search.DefaultOrder, search.OrderOccurrence)
	h := handler.New(engine, recommender, queryCache, vocab, collector, m, handler.Options{
		DefaultOrder:    order,
		MaxResults:      cfg.Search.MaxResults,
		SuggestLimit:    cfg.Search.SuggestLimit,
		TraceSampleRate: traceRate,
	})

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		shutdownMetrics := m.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	mws := []func(http.Handler) http.Handler{
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)),
	}
	if cfg.Server.RateLimitPerMinute > 0 {
		limiter := middleware.NewLimiter(cfg.Server.RateLimitPerMinute, time.Minute)
		go limiter.Sweep(ctx)
		mws = append(mws, middleware.RateLimit(limiter))
	}
	mws = append(mws, middleware.Timeout(cfg.Server.WriteTimeout), middleware.Metrics(m))
	chain := middleware.Chain(mux, mws...)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-refresher.Done()
	slog.Info("search service stopped")
}
