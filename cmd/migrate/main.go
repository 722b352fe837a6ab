package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sort-storage/admin/internal/audit"
	"github.com/sort-storage/admin/internal/config"
	"github.com/sort-storage/admin/internal/logging"
)

const migrateTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, databaseURL string

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Create the admin audit schema",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			// Flag wins over DATABASE_URL
			if databaseURL != "" {
				cfg.DatabaseURL = databaseURL
			}
			if cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}

			logger, err := logging.New(cfg.Env, cfg.LogLevel)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, cancel := context.WithTimeout(cmd.Context(), migrateTimeout)
			defer cancel()
			return migrate(ctx, cfg.DatabaseURL, logger)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "optional config file (yaml, json, toml or .env)")
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres URL, overrides DATABASE_URL")
	return cmd
}

func migrate(ctx context.Context, databaseURL string, logger *zap.Logger) error {
	pool, err := audit.Open(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("connected to database")

	// Schema changes in one transaction: all statements or none
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := audit.EnsureSchema(ctx, tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logger.Info("audit schema is up to date")
	return nil
}
