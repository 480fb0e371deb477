// Command analytics starts the analytics aggregation service.
//
// It consumes search, recommendation and indexing events from Kafka,
// aggregates them in memory and exposes GET /api/v1/analytics for
// dashboards. Snapshots are saved to PostgreSQL every minute and the latest
// one is restored on startup when the database is reachable.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/postgres"
)

const snapshotInterval = time.Minute

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	agg := analytics.NewAggregator()
	checker := health.NewChecker()

	var snapshots analytics.SnapshotLister
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Warn("postgres unavailable, snapshots disabled", "error", err)
		checker.Register("postgres", health.PingCheck(nil, false))
	} else {
		defer db.Close()
		checker.Register("postgres", health.PingCheck(db, false))
		if err := catalog.EnsureSchema(ctx, db); err != nil {
			slog.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		store := aggregator.NewStore(db)
		latest, err := store.LatestSnapshot(ctx)
		switch {
		case err != nil:
			slog.Warn("could not load last snapshot", "error", err)
		case latest != nil:
			agg.Restore(*latest)
			slog.Info("restored analytics snapshot", "total_searches", latest.TotalSearches)
		}
		store.StartPeriodicSave(ctx, agg, snapshotInterval)
		snapshots = store
	}

	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, agg.HandleEvent(),
		kafka.WithGroup(cfg.Kafka.ConsumerGroup+"-analytics"),
	)
	go func() {
		if err := consumer.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.SearchEvents)

	h := analytics.NewHandler(agg, snapshots)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", h.History)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	if cfg.Metrics.Enabled {
		mux.Handle("GET /metrics", m.Handler())
	}

	chain := middleware.Chain(mux,
		middleware.RequestID,
		middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.CORSOrigins)),
		middleware.Metrics(m),
	)

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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
