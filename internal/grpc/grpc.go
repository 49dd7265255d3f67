package grpc

import (
	"fmt"
	"net"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/stormhead-org/comments/internal/jwt"
	"github.com/stormhead-org/comments/internal/metrics"
	"github.com/stormhead-org/comments/internal/middleware"
	"github.com/stormhead-org/comments/internal/proto"

	commentgrpcpkg "github.com/stormhead-org/comments/internal/grpc/comment"
)

type RateLimit struct {
	RPS   float64
	Burst int
}

type GRPC struct {
	logger *zap.Logger
	host   string
	port   string
	server *grpc.Server
	health *health.Server
}

func NewGRPC(
	logger *zap.Logger,
	jwt *jwt.JWT,
	m *metrics.Metrics,
	limit RateLimit,
	host string,
	port string,
	commentServer *commentgrpcpkg.CommentServer,
) (*GRPC, error) {
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(limit.RPS, limit.Burst)
	authMiddleware := middleware.NewAuthorizationMiddleware(logger, jwt)
	metricsMiddleware := middleware.NewMetricsMiddleware(m)

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(
			metricsMiddleware,
			rateLimitMiddleware.Unary(),
			authMiddleware,
		),
	)

	// Register services
	proto.RegisterCommentServiceServer(grpcServer, commentServer)

	// Health API
	healthServer := health.NewServer()
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(proto.CommentService_ServiceDesc.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	// Reflection API
	reflection.Register(grpcServer)

	return &GRPC{
		logger: logger,
		host:   host,
		port:   port,
		server: grpcServer,
		health: healthServer,
	}, nil
}

func (this *GRPC) Start() error {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%s", this.host, this.port))
	if err != nil {
		return err
	}

	go this.Serve(listener)

	return nil
}

// Serve blocks serving on listener until Stop.
func (this *GRPC) Serve(listener net.Listener) {
	this.logger.Info("GRPC server started", zap.String("addr", listener.Addr().String()))
	err := this.server.Serve(listener)
	if err != nil {
		this.logger.Error("GRPC server stopped", zap.Error(err))
	}
}

func (this *GRPC) Stop() error {
	this.health.Shutdown()
	this.server.GracefulStop()
	this.logger.Info("GRPC server stopped gracefully")
	return nil
}
