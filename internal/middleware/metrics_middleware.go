package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/stormhead-org/comments/internal/metrics"
)

// NewMetricsMiddleware records the status code and latency of every unary call.
func NewMetricsMiddleware(m *metrics.Metrics) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		request interface{},
		information *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		start := time.Now()
		response, err := handler(ctx, request)
		m.RecordRPC(information.FullMethod, status.Code(err).String(), time.Since(start))
		return response, err
	}
}

// Metrics returns a middleware that records HTTP metrics
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics.ShouldSkipEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		m.RecordHTTPRequest(
			c.Request.Method,
			c.FullPath(), // route pattern, not the concrete path
			c.Writer.Status(),
			time.Since(start),
		)
	}
}
