package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"reminddo/internal/config"
	"reminddo/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "reminddo",
	Short: "Task planning backend with recurring tasks, AI day plans and calendar sync",
	Long: `reminddo serves the task planner API.

Commands:
  serve    run the HTTP API, background worker and token refresh scheduler
  migrate  create or update the database schema and exit`,
	SilenceUsage: true,
}

func Execute(version string) {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`{{printf "reminddo version %s\n" .Version}}`)

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
}

// loadEnvironment reads the configuration and installs the process-wide logger.
func loadEnvironment() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := logging.New(cfg.Server.Environment, cfg.Server.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(logger)
	return cfg, logger, nil
}
