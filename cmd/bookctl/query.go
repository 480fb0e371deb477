package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/recommend"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/search"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/logger"
)

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search the catalog directly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		orderFlag, _ := cmd.Flags().GetString("order")
		order, err := search.ParseOrder(orderFlag, search.Order(cfg.Search.DefaultOrder))
		if err != nil {
			return err
		}
		store, db, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer db.Close()

		limit, _ := cmd.Flags().GetInt("limit")
		engine := search.New(store,
			search.WithLimit(limit),
			search.WithLogger(logger.WithComponent("bookctl-search")),
		)
		var books []search.Book
		if advanced, _ := cmd.Flags().GetBool("advanced"); advanced {
			books, err = engine.AdvancedSearch(ctx, args[0], order)
		} else {
			books, err = engine.Search(ctx, args[0], order)
		}
		if err != nil {
			return err
		}
		return printBooks(cmd, books)
	},
}

var recommendCmd = &cobra.Command{
	Use:   "recommend <book-id>",
	Short: "List the precomputed neighbors of a book",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid book id %q", args[0])
		}
		store, db, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		books, err := recommend.New(store, recommend.WithLimit(cfg.Recommend.MaxNeighbors)).Recommend(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printBooks(cmd, books)
	},
}

func printBooks(cmd *cobra.Command, books []search.Book) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(books)
	}
	return writeTable(cmd.OutOrStdout(), books)
}

func writeTable(w io.Writer, books []search.Book) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHOR\tWORDS\tRANK")
	for _, b := range books {
		rank := "-"
		if b.RankScore != nil {
			rank = strconv.FormatFloat(*b.RankScore, 'f', 4, 64)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", b.ID, b.Title, b.Author, b.WordCount, rank)
	}
	fmt.Fprintf(tw, "(%d books)\n", len(books))
	return tw.Flush()
}

func init() {
	searchCmd.Flags().String("order", "", "occurrence or rank (default: search.defaultOrder from config)")
	searchCmd.Flags().Bool("advanced", false, "always scan every occurrence index, even for plain words")
	searchCmd.Flags().Int("limit", 20, "maximum number of books, 0 for all")
	searchCmd.Flags().Bool("json", false, "print JSON instead of a table")
	recommendCmd.Flags().Bool("json", false, "print JSON instead of a table")
	rootCmd.AddCommand(searchCmd, recommendCmd)
}
