package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey int

const (
	eventIDKey contextKey = iota
	userIDKey
	peerIDKey
)

// WithEvent stores the identifiers of the event being processed so every log
// line written for it can be correlated.
func WithEvent(ctx context.Context, eventID string, userID, peerID int64) context.Context {
	ctx = context.WithValue(ctx, eventIDKey, eventID)
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, peerIDKey, peerID)
}

// EventID returns the event id stored by WithEvent, if any.
func EventID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(eventIDKey).(string)
	return id, ok
}

// ContextLogger provides context-aware logging
type ContextLogger struct {
	logger *zap.SugaredLogger
}

func NewContextLogger(logger *zap.SugaredLogger) *ContextLogger {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &ContextLogger{logger: logger}
}

// WithContext adds the event fields found in ctx.
func (cl *ContextLogger) WithContext(ctx context.Context) *zap.SugaredLogger {
	var fields []interface{}

	if id, ok := EventID(ctx); ok {
		fields = append(fields, "event_id", id)
	}
	if id, ok := ctx.Value(userIDKey).(int64); ok {
		fields = append(fields, "user_id", id)
	}
	if id, ok := ctx.Value(peerIDKey).(int64); ok {
		fields = append(fields, "peer_id", id)
	}

	if len(fields) == 0 {
		return cl.logger
	}
	return cl.logger.With(fields...)
}

// Base returns the logger without context fields.
func (cl *ContextLogger) Base() *zap.SugaredLogger {
	return cl.logger
}

// LogError logs an error with context
func (cl *ContextLogger) LogError(ctx context.Context, err error, message string, keysAndValues ...interface{}) {
	cl.WithContext(ctx).With("error", err).Errorw(message, keysAndValues...)
}
