package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	"docvault/internal/logging"
)

var configFile string

// @title                      Document Vault API
// @version                    1.0
// @description                Content-addressed document storage with versioning and soft delete.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "docvault",
		Short: "Content-addressed document storage service",
		Long: `docvault stores document content in a content-addressable store (IPFS or S3)
and keeps versioned metadata in PostgreSQL.

Running without a subcommand starts the HTTP server.`,
		SilenceUsage: true,
		RunE:         runServe,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "Optional YAML config file; environment variables take precedence")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newGrantCmd())
	return rootCmd
}

// loadConfig reads the environment, overlaid on the YAML file when one is given.
func loadConfig() (*config.AppConfig, error) {
	if configFile == "" {
		return config.Load(), nil
	}
	return config.LoadFile(configFile)
}

// bootstrap loads config, builds the logger and opens a migrated database.
func bootstrap(ctx context.Context) (*config.AppConfig, zerolog.Logger, *sql.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	logger := logging.New(cfg.Log)

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return nil, logger, nil, fmt.Errorf("connect database: %w", err)
	}
	if err := migration.EnsureMigrated(ctx, db, logging.Component(logger, "migration"), cfg.Database.Host); err != nil {
		_ = db.Close()
		return nil, logger, nil, fmt.Errorf("migrate: %w", err)
	}
	return cfg, logger, db, nil
}
