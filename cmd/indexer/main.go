// Command indexer consumes book-ingest events, builds each book's
// occurrence index and, on an interval, recomputes neighbor lists and rank
// scores for the whole catalog. Every change is announced on index.updated.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/indexer/neighbors"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/metrics"
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
	slog.Info("starting indexer service",
		"neighbor_interval", cfg.Neighbors.Interval,
		"neighbor_workers", cfg.Neighbors.Workers,
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

	notifier := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexUpdated)
	defer notifier.Close()
	eventsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
	defer eventsProducer.Close()
	collector := analytics.NewCollector(eventsProducer, 1000, 50, 5*time.Second)
	collector.Start(ctx)
	defer collector.Close()

	engine := indexer.NewEngine(store, notifier,
		indexer.WithObserver(m),
		indexer.WithTracker(collector),
	)

	var dirty atomic.Bool
	indexBook := consumer.HandleMessage(engine)
	ingest := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.BookIngest,
		func(ctx context.Context, key, value []byte) error {
			if err := indexBook(ctx, key, value); err != nil {
				return err
			}
			dirty.Store(true)
			return nil
		},
		kafka.FromBeginning(),
	)

	if cfg.Neighbors.Interval > 0 {
		computer := neighbors.New(
			neighbors.WithThreshold(cfg.Neighbors.Threshold),
			neighbors.WithWorkers(cfg.Neighbors.Workers),
		)
		go func() {
			ticker := time.NewTicker(cfg.Neighbors.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if !dirty.Swap(false) {
						continue
					}
					if _, err := computer.Run(ctx, store, engine, indexer.ReasonRanked); err != nil {
						slog.Error("neighbor pass failed", "error", err)
						dirty.Store(true)
					}
				}
			}
		}()
	}

	checker := health.NewChecker()
	checker.Register("postgres", health.PingCheck(store, true))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", m.Handler())
	opsServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           mux,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
	}
	if cfg.Metrics.Enabled {
		go func() {
			if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
		defer opsServer.Close()
	}

	slog.Info("indexer service ready, consuming from kafka",
		"topic", cfg.Kafka.Topics.BookIngest,
		"group", cfg.Kafka.ConsumerGroup,
	)
	if err := ingest.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	slog.Info("indexer service stopped")
}
