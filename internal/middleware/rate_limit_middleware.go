package middleware

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RateLimitMiddleware keeps one token bucket per client address.
type RateLimitMiddleware struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      rate.Limit
	burst    int
}

func NewRateLimitMiddleware(rps float64, burst int) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		limiters: make(map[string]*rate.Limiter),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
}

func (i *RateLimitMiddleware) Allow(key string) bool {
	i.mu.Lock()
	limiter, exists := i.limiters[key]
	if !exists {
		limiter = rate.NewLimiter(i.rps, i.burst)
		i.limiters[key] = limiter
	}
	i.mu.Unlock()

	return limiter.Allow()
}

// Unary returns a gRPC unary server interceptor that performs rate limiting.
func (i *RateLimitMiddleware) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		p, ok := peer.FromContext(ctx)
		if !ok {
			return nil, status.Errorf(codes.Internal, "could not get peer from context")
		}

		// Use the IP address as the key.
		if !i.Allow(p.Addr.String()) {
			return nil, status.Errorf(codes.ResourceExhausted, "too many requests")
		}

		return handler(ctx, req)
	}
}

// Gin is the same limit for the REST gateway, keyed by client IP.
func (i *RateLimitMiddleware) Gin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !i.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMITED",
					"message": "too many requests",
				},
			})
			return
		}
		c.Next()
	}
}

