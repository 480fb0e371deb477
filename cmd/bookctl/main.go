// Command bookctl is the operator CLI for the book search platform: schema
// migration, offline ingestion, full reindexing, the neighbor pass and
// ad-hoc queries against the catalog.
//
// Usage:
//
//	go run ./cmd/bookctl [--config configs/development.yaml] <command>
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/postgres"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bookctl",
	Short: "Operate the book search platform",
	Long: `bookctl manages the book catalog outside the long-running services.

It applies the schema, ingests book files, rebuilds every occurrence index,
recomputes neighbor lists and rank scores, and runs searches or
recommendations directly against PostgreSQL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
		logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "configs/development.yaml", "path to config file (empty for built-in defaults)")
}

// openCatalog connects to PostgreSQL. The caller closes the client.
func openCatalog(ctx context.Context) (*catalog.Postgres, *postgres.Client, error) {
	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if err := catalog.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("applying schema: %w", err)
	}
	return catalog.NewPostgres(db), db, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
