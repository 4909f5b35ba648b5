package mailer

import (
	"context"
	"log/slog"
)

// LogHooks returns hooks that record each send attempt and success.
func LogHooks(log *slog.Logger) Hooks {
	return Hooks{
		BeforeSend: func(ctx context.Context, msg *Message) {
			log.DebugContext(ctx, "sending email",
				slog.String("message_id", msg.ID),
				slog.String("subject", msg.Subject),
				slog.Int("recipients", RecipientCount(msg)),
			)
		},
		SendPerformed: func(ctx context.Context, msg *Message, recipients int) {
			log.InfoContext(ctx, "email accepted",
				slog.String("message_id", msg.ID),
				slog.Int("recipients", recipients),
			)
		},
	}
}
