package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rpattn/catalog-export/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := db.RunMigrations(cfg.Database); err != nil {
			return eris.Wrap(err, "migrate")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
