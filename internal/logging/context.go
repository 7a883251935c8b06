package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID is the standardized structured logging key for the daemon run identifier.
	FieldRunID = "run_id"
	// FieldTopic is the standardized structured logging key for ntfy topic names.
	FieldTopic = "topic"
	// FieldMessageID is the standardized structured logging key for ntfy message identifiers.
	FieldMessageID = "message_id"
	// FieldEventType is the standardized structured logging key for machine-readable event names.
	FieldEventType = "event_type"
	// FieldErrorHint is the standardized structured logging key for operator next steps.
	FieldErrorHint = "error_hint"
	// FieldImpact is the standardized key for user-facing consequence of a warning.
	FieldImpact = "impact"
)

type contextKey int

const (
	topicKey contextKey = iota
	messageIDKey
)

// WithTopic records the topic being processed on ctx.
func WithTopic(ctx context.Context, topic string) context.Context {
	return context.WithValue(ctx, topicKey, topic)
}

// WithMessageID records the message being processed on ctx.
func WithMessageID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, messageIDKey, id)
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if topic, ok := ctx.Value(topicKey).(string); ok && topic != "" {
		fields = append(fields, slog.String(FieldTopic, topic))
	}
	if id, ok := ctx.Value(messageIDKey).(string); ok && id != "" {
		fields = append(fields, slog.String(FieldMessageID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
