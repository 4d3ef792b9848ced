package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyCaseID    contextKey = "case_id"
	ContextKeyActor     contextKey = "actor"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithActor records who triggered an operation (cli user, daemon, reviewer id).
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// ActorFromContext returns the actor or "system".
func ActorFromContext(ctx context.Context) string {
	if a, ok := ctx.Value(ContextKeyActor).(string); ok && a != "" {
		return a
	}
	return "system"
}

// LoggerWith returns logger enriched with request scoped attributes from ctx.
func LoggerWith(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	if rid := RequestIDFromContext(ctx); rid != "" {
		logger = logger.With("req_id", rid)
	}
	return logger
}
