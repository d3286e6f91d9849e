package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/entgrid-io/entgrid/internal/infrastructure/config"
	"github.com/entgrid-io/entgrid/internal/infrastructure/database"
	"github.com/entgrid-io/entgrid/internal/infrastructure/migration"
	"github.com/entgrid-io/entgrid/internal/shared/logger"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database schema migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if err := logger.Init(&cfg.Logger); err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			if err := database.Init(&cfg.Database); err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer database.Close()

			return migration.Run(database.Get())
		},
	}
}
