package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/indexer"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/indexer/neighbors"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
)

var neighborsCmd = &cobra.Command{
	Use:   "neighbors",
	Short: "Recompute neighbor lists and rank scores",
	Long: `Neighbors compares every pair of indexed books with the weighted Jaccard
distance, stores each book's neighbor list and its closeness rank, and
tells searchers that rank order changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, db, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		threshold, _ := cmd.Flags().GetFloat64("threshold")
		if threshold <= 0 {
			threshold = cfg.Neighbors.Threshold
		}
		notifier := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.IndexUpdated)
		defer notifier.Close()

		start := time.Now()
		n, err := neighbors.New(
			neighbors.WithThreshold(threshold),
			neighbors.WithWorkers(cfg.Neighbors.Workers),
		).Run(ctx, store, indexer.NewEngine(store, notifier), indexer.ReasonRanked)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ranked %d books at threshold %.2f in %s\n",
			n, threshold, time.Since(start).Round(time.Millisecond))
		return nil
	},
}

func init() {
	neighborsCmd.Flags().Float64("threshold", 0, "neighbor distance threshold (default: neighbors.threshold from config)")
	rootCmd.AddCommand(neighborsCmd)
}
