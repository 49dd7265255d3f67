package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	jwtpkg "github.com/stormhead-org/comments/internal/jwt"
	"github.com/stormhead-org/comments/internal/metrics"
	"github.com/stormhead-org/comments/internal/middleware"
	"github.com/stormhead-org/comments/internal/services"
)

type Config struct {
	Logger    *zap.Logger
	JWT       *jwtpkg.JWT
	Metrics   *metrics.Metrics
	Gatherer  prometheus.Gatherer
	RateLimit *middleware.RateLimitMiddleware
	Service   services.CommentService
}

// NewRouter builds the REST gateway over the comment service.
func NewRouter(config Config) *gin.Engine {
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Recovery(config.Logger),
		middleware.Metrics(config.Metrics),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if config.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})))
	}
	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openAPIDocument)
	})
	router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/openapi.json"))))

	api := router.Group("/api/v1")
	if config.RateLimit != nil {
		api.Use(config.RateLimit.Gin())
	}
	api.Use(middleware.Authenticate(config.Logger, config.JWT))

	handler := NewCommentHandler(config.Logger, config.Service)
	api.GET("/posts/:postId/comments", handler.ListComments)
	api.POST("/posts/:postId/comments", handler.CreateComment)
	api.GET("/comments/:commentId", handler.GetComment)
	api.GET("/comments/:commentId/replies", handler.ListReplies)
	api.POST("/comments/:commentId/like", handler.ToggleLike)
	api.DELETE("/comments/:commentId/like", handler.ToggleLike)

	return router
}

type Gateway struct {
	logger *zap.Logger
	server *http.Server
}

func NewGateway(config Config, host string, port string) *Gateway {
	return &Gateway{
		logger: config.Logger,
		server: &http.Server{
			Addr:              fmt.Sprintf("%s:%s", host, port),
			Handler:           NewRouter(config),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (this *Gateway) Start() error {
	listener, err := net.Listen("tcp", this.server.Addr)
	if err != nil {
		return err
	}

	go func() {
		this.logger.Info("HTTP gateway started", zap.String("addr", listener.Addr().String()))
		err := this.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			this.logger.Error("HTTP gateway stopped", zap.Error(err))
		}
	}()

	return nil
}

func (this *Gateway) Stop(ctx context.Context) error {
	err := this.server.Shutdown(ctx)
	this.logger.Info("HTTP gateway stopped gracefully")
	return err
}
