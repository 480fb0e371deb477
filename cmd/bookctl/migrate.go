package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/Book-Search-Platform/pkg/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the catalog and analytics tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := postgres.New(cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer db.Close()
		if err := catalog.EnsureSchema(cmd.Context(), db); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied %d schema statements\n", len(catalog.Schema))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
