package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reminddo/internal/database"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			pool, err := database.NewDatabasePool(database.PoolConfigFromConfig(cfg))
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := pool.Migrate(); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			logger.Info("database schema is up to date", zap.String("driver", cfg.Database.Driver))
			return nil
		},
	}
}
