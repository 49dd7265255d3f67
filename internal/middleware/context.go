package middleware

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/stormhead-org/comments/internal/lib"
)

type contextKey string

const (
	userIDKey    contextKey = "user_id"
	requestIDKey contextKey = "request_id"
)

func SetUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}

// GetUserUUID returns the authenticated caller or lib.ErrUnauthenticated.
func GetUserUUID(ctx context.Context) (uuid.UUID, error) {
	userID, ok := GetUserID(ctx)
	if !ok {
		return uuid.Nil, lib.ErrUnauthenticated
	}
	id, err := uuid.Parse(userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: malformed user id", lib.ErrUnauthenticated)
	}
	return id, nil
}

// LookupUserUUID is GetUserUUID for endpoints where identity is optional.
func LookupUserUUID(ctx context.Context) (uuid.UUID, bool) {
	id, err := GetUserUUID(ctx)
	return id, err == nil
}

func SetRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}
