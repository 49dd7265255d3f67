package main

import (
	"context"
	"errors"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	cachepkg "github.com/stormhead-org/comments/internal/cache"
	configpkg "github.com/stormhead-org/comments/internal/config"
	eventpkg "github.com/stormhead-org/comments/internal/event"
	"github.com/stormhead-org/comments/internal/metrics"
	ormpkg "github.com/stormhead-org/comments/internal/orm"
	"github.com/stormhead-org/comments/internal/services"
	storepkg "github.com/stormhead-org/comments/internal/store"
)

func loadConfig() (*configpkg.Config, error) {
	if os.Getenv("DEBUG") == "1" {
		godotenv.Load()
	}
	return configpkg.Load(os.Getenv("CONFIG_FILE"))
}

func newLogger(config *configpkg.Config) (*zap.Logger, error) {
	if config.Debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func fxLogger(logger *zap.Logger) fxevent.Logger {
	return &fxevent.ZapLogger{Logger: logger.Named("fx")}
}

func newPostgresClient(config *configpkg.Config, m *metrics.Metrics) (*ormpkg.PostgresClient, error) {
	return ormpkg.NewPostgresClient(
		config.Postgres.Host,
		config.Postgres.Port,
		config.Postgres.User,
		config.Postgres.Password,
		config.Postgres.Database,
		ormpkg.WithMaxOpenConns(config.Postgres.MaxOpenConns),
		ormpkg.WithConflictRetries(config.Postgres.ConflictRetries),
		ormpkg.WithConflictObserver(m.IncrementConflictRetry),
	)
}

// newStore selects the backing store and wraps it in the Redis read-through
// cache when enabled.
func newStore(lifecycle fx.Lifecycle, config *configpkg.Config, logger *zap.Logger, m *metrics.Metrics) (services.CommentStore, error) {
	var store services.CommentStore

	switch config.Storage.Backend {
	case "memory":
		logger.Warn("using in-memory comment store, data is lost on restart")
		store = storepkg.NewMemoryStore()
	default:
		client, err := newPostgresClient(config, m)
		if err != nil {
			return nil, err
		}
		lifecycle.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				return client.Ping(ctx)
			},
			OnStop: func(ctx context.Context) error {
				return client.Close()
			},
		})
		store = client
	}

	if !config.Redis.Enabled {
		return store, nil
	}

	redisClient, err := cachepkg.NewRedisClient(
		config.Redis.Host,
		config.Redis.Port,
		config.Redis.Password,
		config.Redis.DB,
	)
	if err != nil {
		return nil, err
	}
	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return redisClient.Close()
		},
	})
	return storepkg.NewCachedStore(store, redisClient, logger, config.Redis.UserTTL), nil
}

func newCounterAuditor(store services.CommentStore) (services.CounterAuditor, error) {
	auditor, ok := store.(services.CounterAuditor)
	if !ok {
		return nil, errors.New("comment store cannot audit counters")
	}
	return auditor, nil
}

func newKafkaClient(lifecycle fx.Lifecycle, config *configpkg.Config) (*eventpkg.KafkaClient, error) {
	if !config.Kafka.Enabled {
		return nil, nil
	}

	client, err := eventpkg.NewKafkaClient(
		config.Kafka.Host,
		config.Kafka.Port,
		config.Kafka.Topic,
		config.Kafka.Group,
	)
	if err != nil {
		return nil, err
	}
	lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}
