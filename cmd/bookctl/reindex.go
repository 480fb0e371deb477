package main

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the occurrence index of every book",
	Long: `Reindex tokenizes the stored content of every book again and replaces its
occurrence index. Searchers are told once, after the last book, so they
drop cached results a single time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, db, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		notifier := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexUpdated)
		defer notifier.Close()
		engine := indexer.NewEngine(store, notifier)

		workers, _ := cmd.Flags().GetInt("workers")
		if workers <= 0 {
			workers = runtime.NumCPU()
		}
		start := time.Now()
		var books, words atomic.Int64

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		err = store.ForEachBook(gctx, func(b search.Book) error {
			g.Go(func() error {
				n, err := engine.IndexLoaded(gctx, b)
				if err != nil {
					return err
				}
				books.Add(1)
				words.Add(int64(n))
				return nil
			})
			return gctx.Err()
		})
		if werr := g.Wait(); werr != nil {
			return fmt.Errorf("reindexing: %w", werr)
		}
		if err != nil {
			return fmt.Errorf("reading books: %w", err)
		}

		engine.Announce(ctx, indexer.ReasonIndexed)
		fmt.Fprintf(cmd.OutOrStdout(), "reindexed %d books (%d distinct words in total) in %s\n",
			books.Load(), words.Load(), time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	reindexCmd.Flags().Int("workers", 0, "books indexed in parallel (default: number of CPUs)")
	rootCmd.AddCommand(reindexCmd)
}
