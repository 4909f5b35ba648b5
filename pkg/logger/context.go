package logger

import (
	"context"
	"log/slog"
)

type messageIDKey struct{}

// WithMessageID returns a context carrying the ID of the message being sent.
func WithMessageID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, messageIDKey{}, id)
}

// MessageID returns the message ID stored by WithMessageID.
func MessageID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(messageIDKey{}).(string)
	return id, ok && id != ""
}

// MessageIDExtractor adds "message_id" to records logged with a message context.
func MessageIDExtractor() ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id, ok := MessageID(ctx); ok {
			return slog.String("message_id", id), true
		}
		return slog.Attr{}, false
	}
}
