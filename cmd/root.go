package cmd

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/robalobadob/spotthebot/internal/config"
	"github.com/robalobadob/spotthebot/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "spotthebot",
	Short: "Spot-the-bot game server",
	Long:  "spotthebot serves rounds where players decide whether a text snippet was written by a human or a bot.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd)
	},
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to SQLite database file (overrides DATABASE_PATH env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(markersCmd)
}

// loadConfig reads the environment, applies --db and sets the log level.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if p, _ := cmd.Flags().GetString("db"); p != "" {
		cfg.DatabasePath = p
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	return cfg, nil
}

// openDB loads config and opens the migrated database.
func openDB(cmd *cobra.Command) (*config.Config, *sql.DB, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	db, err := store.OpenMigrated(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}
	return cfg, db, nil
}
