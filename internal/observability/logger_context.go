// Package observability carries request-scoped loggers and request ids
// through context so the worker can correlate its logs with the submission.
package observability

import (
	"context"
	"log/slog"
)

type loggerContextKey struct{}

type requestIDContextKey struct{}

// ContextWithLogger attaches a non-nil logger to the context.
func ContextWithLogger(ctx context.Context, lg *slog.Logger) context.Context {
	if ctx == nil || lg == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerContextKey{}, lg)
}

// LoggerFromContext returns the logger stored in the context or slog.Default.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if lg, ok := ctx.Value(loggerContextKey{}).(*slog.Logger); ok && lg != nil {
		return lg
	}
	return slog.Default()
}

// ContextWithRequestID stores a non-empty request id in the context.
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDContextKey{}, requestID)
}

// RequestIDFromContext retrieves the request id, or "" when none is present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	rid, _ := ctx.Value(requestIDContextKey{}).(string)
	return rid
}

// WithJob prepares a context for one feedback job: the originating request id
// is restored and the logger gains interview_id and request_id attributes.
func WithJob(ctx context.Context, base *slog.Logger, interviewID, requestID string) (context.Context, *slog.Logger) {
	if base == nil {
		base = LoggerFromContext(ctx)
	}
	lg := base.With(slog.String("interview_id", interviewID))
	if requestID != "" {
		lg = lg.With(slog.String("request_id", requestID))
		ctx = ContextWithRequestID(ctx, requestID)
	}
	return ContextWithLogger(ctx, lg), lg
}
