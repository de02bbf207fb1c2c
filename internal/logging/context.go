package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "log_user_id"
)

func GenerateRequestID() string {
	return uuid.New().String()
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithUserID records the authenticated actor so later log lines carry it.
func ContextWithUserID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Ctx returns the global logger enriched with request_id and user_id from ctx.
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()
	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	if uid, ok := ctx.Value(userIDKey).(int64); ok {
		logCtx = logCtx.Int64("user_id", uid)
	}
	l := logCtx.Logger()
	return &l
}
