// Package logtransport provides a transport that logs messages instead of
// delivering them. Useful for local development and dry runs.
package logtransport

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/mailkit/pkg/mailer"
)

// Transport implements mailer.Transport by writing each message to a logger.
type Transport struct {
	log   *slog.Logger
	hooks mailer.Hooks
	level slog.Level
}

// Option configures a Transport.
type Option func(*Transport)

// WithLevel sets the level messages are logged at. Default: info.
func WithLevel(level slog.Level) Option {
	return func(t *Transport) { t.level = level }
}

// WithHooks sets the pre-send and post-send callbacks.
func WithHooks(h mailer.Hooks) Option {
	return func(t *Transport) { t.hooks = h }
}

// New creates a log transport.
func New(log *slog.Logger, opts ...Option) *Transport {
	t := &Transport{log: log, level: slog.LevelInfo}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Send implements mailer.Transport. It never fails.
func (t *Transport) Send(ctx context.Context, msg *mailer.Message) (int, error) {
	t.hooks.Before(ctx, msg)

	recipients := mailer.RecipientCount(msg)
	parts := make([]string, len(msg.Children))
	for i, p := range msg.Children {
		parts[i] = p.ContentType
	}

	t.log.LogAttrs(ctx, t.level, "email not sent: log transport",
		slog.String("message_id", msg.ID),
		slog.Any("from", msg.From.Strings()),
		slog.Any("to", msg.To.Strings()),
		slog.Any("cc", msg.Cc.Strings()),
		slog.Any("bcc", msg.Bcc.Strings()),
		slog.String("subject", msg.Subject),
		slog.String("content_type", msg.ContentType),
		slog.Any("parts", parts),
		slog.Int("attachments", len(msg.Attachments)),
		slog.Int("recipients", recipients),
	)

	t.hooks.After(ctx, msg, recipients)
	return recipients, nil
}
