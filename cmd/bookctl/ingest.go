package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/ingestion/validator"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/kafka"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <file.txt>",
	Short: "Store a plain-text book and queue it for indexing",
	Long: `Ingest reads a Project Gutenberg style text file, strips the license
banners, validates it like the ingestion service does and stores it. The
book is announced on the book-ingest topic unless --no-publish is set.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading %s: %w", args[0], err)
		}
		req, err := ingestRequestFromFlags(cmd, args[0], string(data))
		if err != nil {
			return err
		}
		req.Normalize()
		if err := validator.ValidateIngestRequest(req, cfg.Ingestion.MinWordCount); err != nil {
			return err
		}

		store, db, err := openCatalog(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		var producer kafka.Publisher
		if skip, _ := cmd.Flags().GetBool("no-publish"); !skip {
			p := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.BookIngest)
			defer p.Close()
			producer = p
		}
		resp, err := publisher.New(store, producer, nil).Ingest(cmd.Context(), req)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "book %d %s (%d words)\n", resp.BookID, strings.ToLower(resp.Status), resp.WordCount)
		return nil
	},
}

func ingestRequestFromFlags(cmd *cobra.Command, path, content string) (*ingestion.IngestRequest, error) {
	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	author, _ := cmd.Flags().GetString("author")
	summary, _ := cmd.Flags().GetString("summary")
	gid, _ := cmd.Flags().GetInt64("gutenberg-id")
	if gid < 0 {
		return nil, errors.New("--gutenberg-id must not be negative")
	}
	return &ingestion.IngestRequest{
		GutenbergID:    gid,
		Title:          title,
		Author:         author,
		Summary:        summary,
		Content:        content,
		IdempotencyKey: fmt.Sprintf("file:%s", filepath.Base(path)),
	}, nil
}

func init() {
	ingestCmd.Flags().String("title", "", "book title (default: file name)")
	ingestCmd.Flags().String("author", "", "book author")
	ingestCmd.Flags().String("summary", "", "short summary")
	ingestCmd.Flags().Int64("gutenberg-id", 0, "Project Gutenberg id")
	ingestCmd.Flags().Bool("no-publish", false, "store only, without notifying the indexer")
	rootCmd.AddCommand(ingestCmd)
}
