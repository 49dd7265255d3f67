package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"

	clientpkg "github.com/stormhead-org/comments/internal/client"
	configpkg "github.com/stormhead-org/comments/internal/config"
	eventpkg "github.com/stormhead-org/comments/internal/event"
	gatewaypkg "github.com/stormhead-org/comments/internal/gateway"
	grpcpkg "github.com/stormhead-org/comments/internal/grpc"
	commentgrpcpkg "github.com/stormhead-org/comments/internal/grpc/comment"
	jwtpkg "github.com/stormhead-org/comments/internal/jwt"
	"github.com/stormhead-org/comments/internal/metrics"
	"github.com/stormhead-org/comments/internal/middleware"
	"github.com/stormhead-org/comments/internal/services"
	commentservicepkg "github.com/stormhead-org/comments/internal/services/comment"
)

var serverCommand = &cobra.Command{
	Use:   "server",
	Short: "serve the comment API over gRPC and HTTP",
	Long:  "",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serverCommandImpl()
	},
}

func serverCommandImpl() error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	// Application
	application := fx.New(
		fx.Supply(config),
		fx.WithLogger(fxLogger),
		fx.Provide(
			newLogger,
			metrics.New,

			func(config *configpkg.Config) *jwtpkg.JWT {
				return jwtpkg.NewJWT(config.Auth.JWTSecret)
			},

			// Clients
			newStore,
			newKafkaClient,
			func(config *configpkg.Config, logger *zap.Logger) (*clientpkg.AvatarClient, error) {
				if config.Avatars.Bucket == "" {
					logger.Info("avatar bucket not configured, authors are rendered without avatars")
					return nil, nil
				}
				return clientpkg.NewAvatarClient(
					context.Background(),
					config.Avatars.Region,
					config.Avatars.Endpoint,
					config.Avatars.Bucket,
					config.Avatars.PresignTTL,
				)
			},

			// Service
			func(
				config *configpkg.Config,
				logger *zap.Logger,
				m *metrics.Metrics,
				store services.CommentStore,
				kafkaClient *eventpkg.KafkaClient,
				avatarClient *clientpkg.AvatarClient,
			) services.CommentService {
				options := []commentservicepkg.Option{commentservicepkg.WithMetrics(m)}
				if kafkaClient != nil {
					options = append(options, commentservicepkg.WithPublisher(kafkaClient))
				}
				if avatarClient != nil {
					options = append(options, commentservicepkg.WithAvatarResolver(avatarClient))
				}
				return commentservicepkg.NewCommentService(store, logger, commentservicepkg.Config{
					PageSize:         config.Comments.PageSize,
					MaxPageSize:      config.Comments.MaxPageSize,
					PreviewSize:      config.Comments.PreviewSize,
					ReplyBatchSize:   config.Comments.ReplyBatchSize,
					MaxReplyBatch:    config.Comments.MaxReplyBatch,
					MaxDepth:         config.Comments.MaxDepth,
					MaxContentLength: config.Comments.MaxContentLength,
				}, options...)
			},

			// gRPC Servers
			commentgrpcpkg.NewCommentServer,

			// Main gRPC Server
			func(
				lc fx.Lifecycle,
				log *zap.Logger,
				jwt *jwtpkg.JWT,
				m *metrics.Metrics,
				config *configpkg.Config,
				commentServer *commentgrpcpkg.CommentServer,
			) (*grpcpkg.GRPC, error) {
				grpcServer, err := grpcpkg.NewGRPC(
					log,
					jwt,
					m,
					grpcpkg.RateLimit{RPS: config.RateLimit.RPS, Burst: config.RateLimit.Burst},
					config.Server.GRPCHost,
					config.Server.GRPCPort,
					commentServer,
				)
				if err != nil {
					return nil, err
				}
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return grpcServer.Start()
					},
					OnStop: func(ctx context.Context) error {
						return grpcServer.Stop()
					},
				})
				return grpcServer, nil
			},

			// HTTP Gateway
			func(
				lc fx.Lifecycle,
				log *zap.Logger,
				jwt *jwtpkg.JWT,
				m *metrics.Metrics,
				config *configpkg.Config,
				service services.CommentService,
			) *gatewaypkg.Gateway {
				gateway := gatewaypkg.NewGateway(gatewaypkg.Config{
					Logger:    log,
					JWT:       jwt,
					Metrics:   m,
					Gatherer:  prometheus.DefaultGatherer,
					RateLimit: middleware.NewRateLimitMiddleware(config.RateLimit.RPS, config.RateLimit.Burst),
					Service:   service,
				}, config.Server.HTTPHost, config.Server.HTTPPort)
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						return gateway.Start()
					},
					OnStop: func(ctx context.Context) error {
						return gateway.Stop(ctx)
					},
				})
				return gateway
			},
		),
		fx.Invoke(
			func(*grpcpkg.GRPC) {},
			func(*gatewaypkg.Gateway) {},
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
	rootCommand.AddCommand(serverCommand)
}
