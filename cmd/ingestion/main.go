// Command ingestion starts the book ingestion HTTP service.
//
// The service accepts new books via POST /api/v1/books, cleans and validates
// them, stores them in PostgreSQL and publishes an event on the book-ingest
// topic for the indexer.
//
// Usage:
//
//	go run ./cmd/ingestion [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion/handler"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/postgres"
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
	slog.Info("starting ingestion service", "port", cfg.Server.Port, "min_words", cfg.Ingestion.MinWordCount)

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
	slog.Info("connected to postgres")

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.BookIngest)
	defer producer.Close()
	slog.Info("kafka producer initialized", "topic", cfg.Kafka.Topics.BookIngest)

	pub := publisher.New(store, producer, m)
	h := handler.New(pub, store, cfg.Ingestion.MinWordCount, cfg.Ingestion.MaxBodyBytes)

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(store, true))

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", m.Handler())
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
	slog.Info("ingestion service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("ingestion service stopped")
}
