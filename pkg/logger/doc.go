// Package logger builds the slog loggers used across mailkit.
//
// Loggers write JSON (or text) records to stdout and can fan out to Sentry
// when a DSN is configured. Context extractors add request-scoped attributes
// to every record; MessageIDExtractor tags records emitted while a message is
// being delivered:
//
//	log := logger.New(logger.MessageIDExtractor())
//	ctx := logger.WithMessageID(context.Background(), msg.ID)
//	log.InfoContext(ctx, "email accepted")
//	// {"level":"INFO","msg":"email accepted","message_id":"..."}
//
// Libraries default to NewNope so nothing is written unless a logger is
// passed in explicitly.
package logger
