package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	ctxKeySessionID ctxKey = iota
	ctxKeyTraceID
	ctxKeyRequestID
)

// WithSessionID stamps the session a request operates on into ctx so
// every log line emitted downstream carries it.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeySessionID, id)
}

func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyTraceID, id)
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyRequestID, id)
}

// ContextLogger decorates log entries with the IDs stamped into the
// request context.
type ContextLogger struct {
	logger *zap.Logger
}

func NewContextLogger(logger *zap.Logger) *ContextLogger {
	return &ContextLogger{logger: logger}
}

// WithContext returns the underlying logger enriched with whatever IDs
// the context carries.
func (cl *ContextLogger) WithContext(ctx context.Context) *zap.Logger {
	var fields []zap.Field
	if id, ok := ctx.Value(ctxKeySessionID).(string); ok {
		fields = append(fields, zap.String("session_id", id))
	}
	if id, ok := ctx.Value(ctxKeyTraceID).(string); ok {
		fields = append(fields, zap.String("trace_id", id))
	}
	if id, ok := ctx.Value(ctxKeyRequestID).(string); ok {
		fields = append(fields, zap.String("request_id", id))
	}

	if len(fields) == 0 {
		return cl.logger
	}
	return cl.logger.With(fields...)
}

// LogRequest writes the access log line for one HTTP request.
func (cl *ContextLogger) LogRequest(ctx context.Context, method, path string, statusCode int, durationMS int64) {
	cl.WithContext(ctx).Info("http_request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", statusCode),
		zap.Int64("duration_ms", durationMS),
	)
}
