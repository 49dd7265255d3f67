package middleware

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	jwtpkg "github.com/stormhead-org/comments/internal/jwt"
	protopkg "github.com/stormhead-org/comments/internal/proto"
)

// anonymousAllowed lists the methods that serve callers without a token.
// A token that is present is still verified.
var anonymousAllowed = map[string]bool{
	// Comment
	protopkg.CommentService_GetComment_FullMethodName:   true,
	protopkg.CommentService_ListComments_FullMethodName: true,
	protopkg.CommentService_ListReplies_FullMethodName:  true,

	// Health
	"/grpc.health.v1.Health/Check": true,
}

func NewAuthorizationMiddleware(logger *zap.Logger, jwt *jwtpkg.JWT) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		request interface{},
		information *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (interface{}, error) {
		optional := anonymousAllowed[information.FullMethod]

		var header string
		meta, ok := metadata.FromIncomingContext(ctx)
		if ok {
			if values := meta.Get("authorization"); len(values) > 0 {
				header = values[0]
			}
		}

		if header == "" {
			if optional {
				return handler(ctx, request)
			}
			logger.Debug("missing authorization header", zap.String("method", information.FullMethod))
			return nil, status.Errorf(codes.Unauthenticated, "missing or invalid token")
		}

		userID, err := authenticate(jwt, header)
		if err != nil {
			logger.Debug("invalid access token", zap.String("method", information.FullMethod), zap.Error(err))
			return nil, status.Errorf(codes.Unauthenticated, "missing or invalid token")
		}

		return handler(
			SetUserID(ctx, userID),
			request,
		)
	}
}

// authenticate extracts the bearer token from an Authorization header value
// and returns the user id it carries.
func authenticate(jwt *jwtpkg.JWT, header string) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", jwtpkg.ErrInvalidToken
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return jwt.ParseAccessToken(token)
}
