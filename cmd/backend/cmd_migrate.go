package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/stormhead-org/comments/internal/metrics"
)

var migrateCommand = &cobra.Command{
	Use:   "migrate",
	Short: "create or update the comment tables",
	Long:  "",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrateCommandImpl(cmd.Context())
	},
}

func migrateCommandImpl(ctx context.Context) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	if config.Storage.Backend != "postgres" {
		return errors.New("migrate requires the postgres storage backend")
	}

	logger, err := newLogger(config)
	if err != nil {
		return err
	}
	defer logger.Sync()

	client, err := newPostgresClient(config, metrics.New(logger))
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	err = client.Migrate(ctx)
	if err != nil {
		logger.Error("migration failed", zap.Error(err))
		return err
	}

	logger.Info("migration finished", zap.String("database", config.Postgres.Database))
	return nil
}

func init() {
	rootCommand.AddCommand(migrateCommand)
}
