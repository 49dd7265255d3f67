package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	configpkg "github.com/stormhead-org/comments/internal/config"
	eventpkg "github.com/stormhead-org/comments/internal/event"
	"github.com/stormhead-org/comments/internal/metrics"
	"github.com/stormhead-org/comments/internal/services"
	workerpkg "github.com/stormhead-org/comments/internal/worker"
)

var workerCommand = &cobra.Command{
	Use:   "worker",
	Short: "consume comment events and audit cached counters",
	Long:  "",
	RunE: func(cmd *cobra.Command, args []string) error {
		return workerCommandImpl()
	},
}

func workerCommandImpl() error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	// Application
	application := fx.New(
		fx.Supply(config),
		fx.NopLogger,
		fx.Provide(
			newLogger,
			metrics.New,
			newStore,
			newCounterAuditor,
			newKafkaClient,

			// Counter audit
			func(
				lifecycle fx.Lifecycle,
				logger *zap.Logger,
				config *configpkg.Config,
				auditor services.CounterAuditor,
				m *metrics.Metrics,
			) *workerpkg.Audit {
				audit := workerpkg.NewAudit(logger, auditor, m, config.Audit.Schedule, config.Audit.BatchSize)
				lifecycle.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return audit.Start()
					},
					OnStop: func(ctx context.Context) error {
						return audit.Stop()
					},
				})
				return audit
			},

			// Application
			func(
				lifecycle fx.Lifecycle,
				logger *zap.Logger,
				kafkaClient *eventpkg.KafkaClient,
				auditor services.CounterAuditor,
				m *metrics.Metrics,
			) *workerpkg.Worker {
				if kafkaClient == nil {
					logger.Info("kafka disabled, only the scheduled audit runs")
					return nil
				}

				worker := workerpkg.NewWorker(logger, kafkaClient, auditor, m)
				lifecycle.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return worker.Start()
					},
					OnStop: func(ctx context.Context) error {
						return worker.Stop()
					},
				})
				return worker
			},
		),
		fx.Invoke(
			func(*workerpkg.Audit) {},
			func(*workerpkg.Worker) {},
		),
	)
	application.Run()

	err = application.Err()
	if err != nil {
		os.Exit(1)
	}

	return nil
}

func init() {
	rootCommand.AddCommand(workerCommand)
}
