package main

import (
	"fmt"

	"github.com/corray333/backend-labs/storefront/internal/config"
	"github.com/corray333/backend-labs/storefront/internal/dal/sqldb"
	"github.com/spf13/cobra"
)

// storefront migrate up|down|status: manage the schema of the configured database.
var migrateCmd = &cobra.Command{
	Use:       "migrate [up|down|status]",
	Short:     "Apply, roll back or inspect schema migrations",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"up", "down", "status"},
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = args[0]
		}

		cfg, err := loadSQLConfig()
		if err != nil {
			return err
		}

		client, err := sqldb.Open(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer client.Close()

		return client.MigrateCommand(cmd.Context(), command)
	},
}

func loadSQLConfig() (sqldb.Config, error) {
	db, err := config.LoadDatabase()
	if err != nil {
		return sqldb.Config{}, err
	}

	return db.SQLConfig()
}
