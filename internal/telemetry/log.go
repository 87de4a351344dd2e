package telemetry

import (
	"context"

	"go.uber.org/zap"
)

// LogEmitter writes each event as one structured log line.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter returns an emitter that logs to logger.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) Emit(_ context.Context, event *Event) error {
	if event == nil {
		return nil
	}
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("source", event.Source),
		zap.Time("created_at", event.CreatedAt),
	}
	if event.UserID != "" {
		fields = append(fields, zap.String("user_id", event.UserID))
	}
	if event.Username != "" {
		fields = append(fields, zap.String("username", event.Username))
	}
	if event.SessionID != "" {
		fields = append(fields, zap.String("session_id", event.SessionID))
	}
	if len(event.Metadata) > 0 {
		fields = append(fields, zap.Any("metadata", event.Metadata))
	}
	if event.Type == EventLoginFailed {
		e.logger.Warn("auth event", fields...)
	} else {
		e.logger.Info("auth event", fields...)
	}
	return nil
}
